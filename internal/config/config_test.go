package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage.backend = %q, want %q", cfg.Storage.Backend, "memory")
	}
	if cfg.Storage.Table != "tsdb" {
		t.Errorf("storage.table = %q, want %q", cfg.Storage.Table, "tsdb")
	}
	if cfg.Storage.PageSize != 128 {
		t.Errorf("storage.page_size = %d, want 128", cfg.Storage.PageSize)
	}
	if cfg.Scan.DeleteWorkers != 16 {
		t.Errorf("scan.delete_workers = %d, want 16", cfg.Scan.DeleteWorkers)
	}
	if cfg.Scan.ProgressIntervalSeconds != 60 {
		t.Errorf("scan.progress_interval_seconds = %d, want 60", cfg.Scan.ProgressIntervalSeconds)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TSDUMP_STORAGE_TABLE", "tsdb-staging")
	t.Setenv("TSDUMP_SCAN_DELETE_WORKERS", "4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Table != "tsdb-staging" {
		t.Errorf("storage.table = %q, want %q", cfg.Storage.Table, "tsdb-staging")
	}
	if cfg.Scan.DeleteWorkers != 4 {
		t.Errorf("scan.delete_workers = %d, want 4", cfg.Scan.DeleteWorkers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsdump.toml")
	content := "[storage]\npage_size = 32\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.PageSize != 32 {
		t.Errorf("storage.page_size = %d, want 32", cfg.Storage.PageSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Scan.DeleteWorkers != 16 {
		t.Errorf("scan.delete_workers = %d, want default 16", cfg.Scan.DeleteWorkers)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative page size", "TSDUMP_STORAGE_PAGE_SIZE", "-1"},
		{"zero workers", "TSDUMP_SCAN_DELETE_WORKERS", "0"},
		{"zero progress interval", "TSDUMP_SCAN_PROGRESS_INTERVAL_SECONDS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}

func TestValidateEmptyTable(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory", PageSize: 128},
		Scan:    ScanConfig{DeleteWorkers: 16, ProgressIntervalSeconds: 60},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() succeeded with an empty storage table")
	}
}
