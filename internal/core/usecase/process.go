package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

// ProcessSnapshotUseCase runs the offline indexing pipeline for one
// snapshot: load and clean the dataset, segment every fund into
// token-bounded chunks, embed them and index both partitions.
type ProcessSnapshotUseCase struct {
	repo     ports.SnapshotRepository
	loader   ports.DatasetLoader
	chunker  ports.Chunker
	embedder ports.Embedder
	indexer  ports.VectorIndexer
}

func NewProcessSnapshotUseCase(
	repo ports.SnapshotRepository,
	loader ports.DatasetLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.VectorIndexer,
) *ProcessSnapshotUseCase {
	return &ProcessSnapshotUseCase{
		repo:     repo,
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		indexer:  indexer,
	}
}

func (uc *ProcessSnapshotUseCase) ProcessByID(ctx context.Context, snapshotID string) error {
	if err := uc.repo.UpdateStatus(ctx, snapshotID, domain.SnapshotProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	stats, err := uc.processPipeline(ctx, snapshotID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, snapshotID, domain.SnapshotFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveStats(ctx, snapshotID, stats); err != nil {
		return fmt.Errorf("save snapshot stats: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, snapshotID, domain.SnapshotReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessSnapshotUseCase) processPipeline(ctx context.Context, snapshotID string) (domain.SnapshotStats, error) {
	snap, err := uc.repo.GetByID(ctx, snapshotID)
	if err != nil {
		return domain.SnapshotStats{}, fmt.Errorf("fetch snapshot by id: %w", err)
	}

	dataset, err := uc.loader.Load(ctx, snap.HoldingsPath, snap.TradesPath)
	if err != nil {
		return domain.SnapshotStats{}, fmt.Errorf("load dataset: %w", err)
	}
	if len(dataset.HoldingRows) == 0 && len(dataset.TradeRows) == 0 {
		return domain.SnapshotStats{}, domain.WrapError(domain.ErrInvalidInput, "load dataset", errors.New("both tables are empty"))
	}

	chunks := uc.buildChunks(dataset)
	if len(chunks[domain.PartitionHoldings])+len(chunks[domain.PartitionTrades]) == 0 {
		return domain.SnapshotStats{}, domain.WrapError(domain.ErrInvalidInput, "chunk dataset", errors.New("chunking produced zero chunks"))
	}

	total := 0
	for _, partition := range domain.Partitions() {
		partitionChunks := chunks[partition]
		if len(partitionChunks) == 0 {
			continue
		}
		if err := uc.indexPartition(ctx, partition, partitionChunks); err != nil {
			return domain.SnapshotStats{}, err
		}
		total += len(partitionChunks)
	}

	return domain.SnapshotStats{
		FundCount:    len(dataset.FundNames()),
		HoldingsRows: len(dataset.HoldingRows),
		TradesRows:   len(dataset.TradeRows),
		ChunkCount:   total,
	}, nil
}

// buildChunks segments each fund's rows per partition, preserving row order
// within a fund.
func (uc *ProcessSnapshotUseCase) buildChunks(dataset *domain.Dataset) map[domain.Partition][]domain.Chunk {
	holdingsByFund := make(map[string][]domain.ChunkRow)
	tradesByFund := make(map[string][]domain.ChunkRow)
	var holdingFunds, tradeFunds []string

	for _, row := range dataset.HoldingRows {
		if _, ok := holdingsByFund[row.Fund]; !ok {
			holdingFunds = append(holdingFunds, row.Fund)
		}
		holdingsByFund[row.Fund] = append(holdingsByFund[row.Fund], domain.ChunkRow{
			Text:         row.ChunkText(),
			SecurityType: row.SecurityType,
			HasPL:        row.PLYearly != 0,
		})
	}
	for _, row := range dataset.TradeRows {
		if _, ok := tradesByFund[row.Fund]; !ok {
			tradeFunds = append(tradeFunds, row.Fund)
		}
		tradesByFund[row.Fund] = append(tradesByFund[row.Fund], domain.ChunkRow{
			Text:         row.ChunkText(),
			SecurityType: row.SecurityType,
			TradeType:    row.TradeType,
		})
	}

	out := make(map[domain.Partition][]domain.Chunk, 2)
	for _, fund := range holdingFunds {
		out[domain.PartitionHoldings] = append(out[domain.PartitionHoldings], uc.chunker.Chunk(fund, domain.PartitionHoldings, holdingsByFund[fund])...)
	}
	for _, fund := range tradeFunds {
		out[domain.PartitionTrades] = append(out[domain.PartitionTrades], uc.chunker.Chunk(fund, domain.PartitionTrades, tradesByFund[fund])...)
	}
	return out
}

func (uc *ProcessSnapshotUseCase) indexPartition(ctx context.Context, partition domain.Partition, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s chunks: %w", partition, err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	// Reindexing replaces the partition wholesale so stale chunks from a
	// previous snapshot cannot surface in retrieval.
	if err := uc.indexer.DropPartition(ctx, partition); err != nil {
		return fmt.Errorf("drop %s partition: %w", partition, err)
	}
	if err := uc.indexer.IndexChunks(ctx, partition, chunks, vectors); err != nil {
		return fmt.Errorf("index %s chunks: %w", partition, err)
	}
	return nil
}
