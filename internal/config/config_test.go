package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("RETRIEVAL_MIN_SCORE", "")
	t.Setenv("RETRIEVAL_MIN_MATCHES", "")
	t.Setenv("RETRIEVAL_DEDUP_TOLERANCE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 10 {
		t.Fatalf("expected default top k 10, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.3 {
		t.Fatalf("expected default min score 0.3, got %v", cfg.MinScore)
	}
	if cfg.MinMatches != 3 {
		t.Fatalf("expected default min matches 3, got %d", cfg.MinMatches)
	}
	if cfg.DedupTolerance != 0.05 {
		t.Fatalf("expected default dedup tolerance 0.05, got %v", cfg.DedupTolerance)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RETRIEVAL_TOP_K", "25")
	t.Setenv("RETRIEVAL_MIN_SCORE", "0.5")
	t.Setenv("QDRANT_HOLDINGS_COLLECTION", "alt_holdings")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 25 {
		t.Fatalf("expected top k 25, got %d", cfg.TopK)
	}
	if cfg.MinScore != 0.5 {
		t.Fatalf("expected min score 0.5, got %v", cfg.MinScore)
	}
	if cfg.QdrantHoldingsCollection != "alt_holdings" {
		t.Fatalf("expected collection override, got %q", cfg.QdrantHoldingsCollection)
	}
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_port: \"9999\"\nmin_score: 0.45\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// File overlays env.
	if cfg.APIPort != "9999" {
		t.Fatalf("api port = %q, want file value", cfg.APIPort)
	}
	if cfg.MinScore != 0.45 {
		t.Fatalf("min score = %v, want file value", cfg.MinScore)
	}
	// Keys absent from the file keep their env/default values.
	if cfg.NATSSubject != "snapshots.ingest" {
		t.Fatalf("nats subject = %q", cfg.NATSSubject)
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
