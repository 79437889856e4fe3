package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

type snapshotRepoFake struct {
	created   *domain.DatasetSnapshot
	createErr error

	snapshots map[string]*domain.DatasetSnapshot
	statuses  []domain.SnapshotStatus
	lastError string
	stats     *domain.SnapshotStats
}

func (f *snapshotRepoFake) Create(_ context.Context, snap *domain.DatasetSnapshot) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = snap
	return nil
}

func (f *snapshotRepoFake) GetByID(_ context.Context, id string) (*domain.DatasetSnapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSnapshotNotFound, "get snapshot", errors.New(id))
	}
	return snap, nil
}

func (f *snapshotRepoFake) UpdateStatus(_ context.Context, _ string, status domain.SnapshotStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastError = errMessage
	return nil
}

func (f *snapshotRepoFake) SaveStats(_ context.Context, _ string, stats domain.SnapshotStats) error {
	f.stats = &stats
	return nil
}

type storageFake struct {
	saved   map[string]string
	saveErr error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(content)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.saved[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishSnapshotIngested(_ context.Context, snapshotID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, snapshotID)
	return nil
}

func (f *queueFake) SubscribeSnapshotIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestRegisterStoresFilesAndPublishes(t *testing.T) {
	repo := &snapshotRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewRegisterSnapshotUseCase(repo, storage, queue)

	snap, err := uc.Register(context.Background(),
		"holdings.xlsx", strings.NewReader("holdings-bytes"),
		"trades.csv", strings.NewReader("trades-bytes"),
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if snap.Status != domain.SnapshotUploaded {
		t.Errorf("status = %q, want uploaded", snap.Status)
	}
	if !strings.HasSuffix(snap.HoldingsPath, "_holdings.xlsx") {
		t.Errorf("holdings path = %q", snap.HoldingsPath)
	}
	if !strings.HasSuffix(snap.TradesPath, "_trades.csv") {
		t.Errorf("trades path = %q", snap.TradesPath)
	}
	if storage.saved[snap.HoldingsPath] != "holdings-bytes" {
		t.Errorf("holdings content not stored under %q", snap.HoldingsPath)
	}
	if repo.created == nil || repo.created.ID != snap.ID {
		t.Errorf("snapshot record not created")
	}
	if len(queue.published) != 1 || queue.published[0] != snap.ID {
		t.Errorf("published = %v, want [%s]", queue.published, snap.ID)
	}
}

func TestRegisterUnknownExtensionFallsBackToCSV(t *testing.T) {
	uc := NewRegisterSnapshotUseCase(&snapshotRepoFake{}, &storageFake{}, &queueFake{})

	snap, err := uc.Register(context.Background(),
		"holdings.parquet", strings.NewReader("h"),
		"trades", strings.NewReader("t"),
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !strings.HasSuffix(snap.HoldingsPath, ".csv") || !strings.HasSuffix(snap.TradesPath, ".csv") {
		t.Fatalf("paths = %q, %q, want .csv fallback", snap.HoldingsPath, snap.TradesPath)
	}
}

func TestRegisterStorageFailure(t *testing.T) {
	queue := &queueFake{}
	uc := NewRegisterSnapshotUseCase(&snapshotRepoFake{}, &storageFake{saveErr: errors.New("disk full")}, queue)

	_, err := uc.Register(context.Background(),
		"holdings.csv", strings.NewReader("h"),
		"trades.csv", strings.NewReader("t"),
	)
	if err == nil {
		t.Fatalf("expected storage failure")
	}
	if len(queue.published) != 0 {
		t.Fatalf("event published after storage failure")
	}
}
