package ports

import (
	"context"
	"io"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

// DatasetProvider exposes the two read-only row collections. Rows are
// type-coerced at load time; the core never mutates them.
type DatasetProvider interface {
	Holdings() []domain.HoldingRow
	Trades() []domain.TradeRow
}

// DatasetLoader reads and cleans a holdings/trades pair from storage.
type DatasetLoader interface {
	Load(ctx context.Context, holdingsKey, tradesKey string) (*domain.Dataset, error)
}

// Embedder builds vectors for chunk texts and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator is the external text-generation capability: synchronous,
// single-shot.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorSearcher queries a named partition of the vector index, or merges
// across all partitions client-side.
type VectorSearcher interface {
	Search(ctx context.Context, partition domain.Partition, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedMatch, error)
	SearchAll(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedMatch, error)
}

// VectorIndexer writes chunks into a partition during offline ingestion.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, partition domain.Partition, chunks []domain.Chunk, vectors [][]float32) error
	DropPartition(ctx context.Context, partition domain.Partition) error
}

// Chunker groups pre-rendered rows of one fund into token-bounded chunks.
type Chunker interface {
	Chunk(fund string, source domain.Partition, rows []domain.ChunkRow) []domain.Chunk
}

// SnapshotRepository persists dataset snapshot state.
type SnapshotRepository interface {
	Create(ctx context.Context, snap *domain.DatasetSnapshot) error
	GetByID(ctx context.Context, id string) (*domain.DatasetSnapshot, error)
	UpdateStatus(ctx context.Context, id string, status domain.SnapshotStatus, errMessage string) error
	SaveStats(ctx context.Context, id string, stats domain.SnapshotStats) error
}

// ObjectStorage stores uploaded dataset files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes snapshot ingestion events.
type MessageQueue interface {
	PublishSnapshotIngested(ctx context.Context, snapshotID string) error
	SubscribeSnapshotIngested(ctx context.Context, handler func(context.Context, string) error) error
}
