package infra

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KROMA_CONFIG_ROOT", "")
	t.Setenv("KROMA_DATA_ROOT", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.ConfigRoot != "./config" {
		t.Fatalf("ConfigRoot mismatch: got %q want %q", cfg.ConfigRoot, "./config")
	}
	if cfg.DataRoot != "./data" {
		t.Fatalf("DataRoot mismatch: got %q want %q", cfg.DataRoot, "./data")
	}
	if cfg.MaxConcurrentRuns != 2 {
		t.Fatalf("MaxConcurrentRuns mismatch: got %d want 2", cfg.MaxConcurrentRuns)
	}
	if cfg.SafeBatchLimit != 25 {
		t.Fatalf("SafeBatchLimit mismatch: got %d want 25", cfg.SafeBatchLimit)
	}
}

func TestLoadConfigHonorsExplicitRoots(t *testing.T) {
	t.Setenv("KROMA_CONFIG_ROOT", "/etc/kroma")
	t.Setenv("KROMA_DATA_ROOT", "/var/lib/kroma")
	t.Setenv("SAFE_BATCH_LIMIT", "100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConfigRoot != "/etc/kroma" {
		t.Fatalf("ConfigRoot mismatch: got %q want %q", cfg.ConfigRoot, "/etc/kroma")
	}
	if cfg.DataRoot != "/var/lib/kroma" {
		t.Fatalf("DataRoot mismatch: got %q want %q", cfg.DataRoot, "/var/lib/kroma")
	}
	if cfg.SafeBatchLimit != 100 {
		t.Fatalf("SafeBatchLimit mismatch: got %d want 100", cfg.SafeBatchLimit)
	}
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_RUNS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should reject MAX_CONCURRENT_RUNS=0")
	}
}
