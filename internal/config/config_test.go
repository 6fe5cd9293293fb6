package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != DefaultAddr || cfg.Scheduler.Cron != DefaultCron || cfg.Scheduler.Concurrency != DefaultBatchConcurrency {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Scheduler.WriteThroughDays != constants.DefaultWriteThroughDays {
		t.Errorf("write_through_days = %d", cfg.Scheduler.WriteThroughDays)
	}
	if strings.HasPrefix(cfg.DB, "~") {
		t.Errorf("db path not expanded: %s", cfg.DB)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
db: /var/lib/timeblock/timeblock.db
server:
  addr: "127.0.0.1:9000"
  read_timeout: 5s
  rate_per_sec: 1
  burst: 2
scheduler:
  cron: "0 * * * *"
  concurrency: 8
  write_through_days: 3
  mode: RUSH
logging:
  json: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB != "/var/lib/timeblock/timeblock.db" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Scheduler.Concurrency != 8 || cfg.Scheduler.WriteThroughDays != 3 || cfg.Scheduler.Mode != "RUSH" {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if !cfg.Logging.JSON {
		t.Error("logging.json not read")
	}
	read, write, shutdown := cfg.Server.Timeouts()
	if read != 5*time.Second || write != DefaultWriteTimeout || shutdown != DefaultShutdownTimeout {
		t.Errorf("timeouts = %v %v %v", read, write, shutdown)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"server": {"addr": ":7000"}, "scheduler": {"cron": "off"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Scheduler.BatchEnabled() {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown field", "c.yaml", "serverr:\n  addr: x\n", "unknown field"},
		{"bad yaml", "c.yaml", "server: [", "yaml"},
		{"bad duration", "c.yaml", "server:\n  read_timeout: soon\n", "server.read_timeout"},
		{"negative duration", "c.yaml", "server:\n  write_timeout: -1s\n", "server.write_timeout"},
		{"bad cron", "c.yaml", "scheduler:\n  cron: every minute\n", "scheduler.cron"},
		{"horizon too long", "c.yaml", "scheduler:\n  write_through_days: 30\n", "write_through_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDB, "postgres://planner@db/timeblock")
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvConcurrency, "2")
	t.Setenv(EnvLogJSON, "true")

	path := writeConfig(t, "config.yaml", "db: /tmp/file.db\nserver:\n  addr: \":1\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB != "postgres://planner@db/timeblock" || cfg.Server.Addr != ":9999" {
		t.Errorf("env did not win: %+v", cfg)
	}
	if cfg.Scheduler.Concurrency != 2 || !cfg.Logging.JSON {
		t.Errorf("env overrides = %+v", cfg)
	}

	t.Setenv(EnvConcurrency, "many")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed concurrency")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y.db"); got != filepath.Join(home, "x/y.db") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome() changed absolute path to %q", got)
	}
}
