package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

// RegisterSnapshotUseCase accepts an uploaded holdings/trades pair, stores
// the files and publishes the snapshot for offline indexing.
type RegisterSnapshotUseCase struct {
	repo    ports.SnapshotRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewRegisterSnapshotUseCase(
	repo ports.SnapshotRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *RegisterSnapshotUseCase {
	return &RegisterSnapshotUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *RegisterSnapshotUseCase) Register(
	ctx context.Context,
	holdingsName string, holdings io.Reader,
	tradesName string, trades io.Reader,
) (*domain.DatasetSnapshot, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	snap := &domain.DatasetSnapshot{
		ID:           id,
		HoldingsPath: id + "_holdings" + dataExt(holdingsName),
		TradesPath:   id + "_trades" + dataExt(tradesName),
		Status:       domain.SnapshotUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.storage.Save(ctx, snap.HoldingsPath, holdings); err != nil {
		return nil, fmt.Errorf("store holdings file: %w", err)
	}
	if err := uc.storage.Save(ctx, snap.TradesPath, trades); err != nil {
		return nil, fmt.Errorf("store trades file: %w", err)
	}
	if err := uc.repo.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("create snapshot record: %w", err)
	}
	if err := uc.queue.PublishSnapshotIngested(ctx, snap.ID); err != nil {
		return nil, fmt.Errorf("publish snapshot event: %w", err)
	}
	return snap, nil
}

func dataExt(filename string) string {
	ext := filepath.Ext(filename)
	if ext == ".xlsx" {
		return ext
	}
	return ".csv"
}
