package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "TABLE_PREFIX", "INGEST_WORKERS", "TTL_SWEEP_INTERVAL", "CONTENT_STORE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Environment != "dev" || cfg.TablePrefix != "dev_" || !cfg.IsDev() {
		t.Errorf("environment = %q, prefix = %q", cfg.Environment, cfg.TablePrefix)
	}
	if cfg.IngestWorkers != 4 || cfg.TTLSweepInterval != time.Hour || cfg.ContentStore != "minio" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(*Config) bool
	}{
		{"prod prefix", map[string]string{"ENVIRONMENT": "prod"}, func(c *Config) bool { return c.TablePrefix == "prod_" && !c.IsDev() }},
		{"explicit prefix", map[string]string{"ENVIRONMENT": "prod", "TABLE_PREFIX": "lex_"}, func(c *Config) bool { return c.TablePrefix == "lex_" }},
		{"workers", map[string]string{"INGEST_WORKERS": "12"}, func(c *Config) bool { return c.IngestWorkers == 12 }},
		{"invalid workers fall back", map[string]string{"INGEST_WORKERS": "-3"}, func(c *Config) bool { return c.IngestWorkers == 4 }},
		{"sweep interval", map[string]string{"TTL_SWEEP_INTERVAL": "15m"}, func(c *Config) bool { return c.TTLSweepInterval == 15*time.Minute }},
		{"quota", map[string]string{"ORG_STORAGE_QUOTA_BYTES": "1073741824"}, func(c *Config) bool { return c.OrgStorageQuotaBytes == 1<<30 }},
		{"store is case-insensitive", map[string]string{"CONTENT_STORE": "GCS"}, func(c *Config) bool { return c.ContentStore == "gcs" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if cfg := Load(); !tt.check(cfg) {
				t.Errorf("config = %+v", cfg)
			}
		})
	}
}

func TestSetupLogFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"lexcorpus-2026-01-01T00-00-00.log", "lexcorpus-2026-01-02T00-00-00.log", "other.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("SetupLogFile: %v", err)
	}
	f.Close()

	logs, _ := filepath.Glob(filepath.Join(dir, "lexcorpus-*.log"))
	if len(logs) != 2 {
		t.Fatalf("kept %v, want 2 files", logs)
	}
	if filepath.Base(logs[0]) != "lexcorpus-2026-01-02T00-00-00.log" {
		t.Errorf("oldest log survived: %v", logs)
	}
	if _, err := os.Stat(filepath.Join(dir, "other.log")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
