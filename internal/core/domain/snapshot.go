package domain

import "time"

type SnapshotStatus string

const (
	SnapshotUploaded   SnapshotStatus = "uploaded"
	SnapshotProcessing SnapshotStatus = "processing"
	SnapshotReady      SnapshotStatus = "ready"
	SnapshotFailed     SnapshotStatus = "failed"
)

// DatasetSnapshot tracks one uploaded holdings/trades pair through the
// offline indexing pipeline.
type DatasetSnapshot struct {
	ID           string         `json:"id"`
	HoldingsPath string         `json:"holdings_path"`
	TradesPath   string         `json:"trades_path"`
	Status       SnapshotStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	FundCount    int            `json:"fund_count"`
	HoldingsRows int            `json:"holdings_rows"`
	TradesRows   int            `json:"trades_rows"`
	ChunkCount   int            `json:"chunk_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SnapshotStats is persisted after a snapshot is indexed.
type SnapshotStats struct {
	FundCount    int
	HoldingsRows int
	TradesRows   int
	ChunkCount   int
}
