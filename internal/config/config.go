package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/timeblock/internal/constants"
)

// Config is the on-disk configuration. Every field may be omitted.
type Config struct {
	// DB is a sqlite path or a PostgreSQL connection string without password.
	DB        string          `json:"db"`
	Server    ServerConfig    `json:"server"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
}

type ServerConfig struct {
	Addr            string  `json:"addr"`
	ReadTimeout     string  `json:"read_timeout"`
	WriteTimeout    string  `json:"write_timeout"`
	ShutdownTimeout string  `json:"shutdown_timeout"`
	RatePerSec      float64 `json:"rate_per_sec"`
	Burst           int     `json:"burst"`
}

type SchedulerConfig struct {
	// Cron is a standard five-field spec for the background batch pass.
	// "off" disables the batch job.
	Cron             string `json:"cron"`
	Concurrency      int    `json:"concurrency"`
	WriteThroughDays int    `json:"write_through_days"`
	Mode             string `json:"mode"`
}

type LoggingConfig struct {
	Debug bool   `json:"debug"`
	JSON  bool   `json:"json"`
	Dir   string `json:"dir"`
}

const (
	DefaultAddr             = ":8080"
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultRatePerSec       = 0.2
	DefaultBurst            = 3
	DefaultCron             = "*/15 * * * *"
	CronOff                 = "off"
	DefaultBatchConcurrency = 4
)

// Environment overrides, applied after the file.
const (
	EnvDB          = "TIMEBLOCK_DB"
	EnvAddr        = "TIMEBLOCK_ADDR"
	EnvCron        = "TIMEBLOCK_CRON"
	EnvConcurrency = "TIMEBLOCK_CONCURRENCY"
	EnvLogJSON     = "TIMEBLOCK_LOG_JSON"
	EnvDebug       = "TIMEBLOCK_DEBUG"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (YAML or JSON), rejects unknown fields, applies environment
// overrides and defaults, and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		path = ExpandHome(path)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	raw, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode %s config %s: %w", format, path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDB); ok && strings.TrimSpace(v) != "" {
		c.DB = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAddr); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCron); ok && strings.TrimSpace(v) != "" {
		c.Scheduler.Cron = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvConcurrency); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		c.Scheduler.Concurrency = n
	}
	for env, dst := range map[string]*bool{EnvLogJSON: &c.Logging.JSON, EnvDebug: &c.Logging.Debug} {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DB == "" {
		c.DB = constants.DefaultDBPath
	}
	if !strings.Contains(c.DB, "://") {
		c.DB = ExpandHome(c.DB)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RatePerSec == 0 {
		c.Server.RatePerSec = DefaultRatePerSec
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = DefaultBurst
	}
	if c.Scheduler.Cron == "" {
		c.Scheduler.Cron = DefaultCron
	}
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = DefaultBatchConcurrency
	}
	if c.Scheduler.WriteThroughDays <= 0 {
		c.Scheduler.WriteThroughDays = constants.DefaultWriteThroughDays
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = filepath.Dir(ExpandHome(constants.DefaultConfigPath))
	}
	c.Logging.Dir = ExpandHome(c.Logging.Dir)
}

// Validate checks the fields that are parsed lazily elsewhere so mistakes
// surface at startup.
func (c *Config) Validate() error {
	for field, raw := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := ParseDurationField(field, raw); err != nil {
			return err
		}
	}
	if c.Server.RatePerSec < 0 {
		return fmt.Errorf("server.rate_per_sec must be >= 0")
	}
	if c.Server.Burst < 0 {
		return fmt.Errorf("server.burst must be >= 0")
	}
	if c.Scheduler.BatchEnabled() {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("scheduler.cron: invalid spec %q: %w", c.Scheduler.Cron, err)
		}
	}
	if c.Scheduler.WriteThroughDays > constants.MaxScheduleLookaheadDays {
		return fmt.Errorf("scheduler.write_through_days must be <= %d", constants.MaxScheduleLookaheadDays)
	}
	return nil
}

// BatchEnabled reports whether the background batch pass should run.
func (s SchedulerConfig) BatchEnabled() bool {
	return s.Cron != "" && !strings.EqualFold(s.Cron, CronOff)
}

// Timeouts returns the server timeouts with defaults for unset fields.
func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	read, _ = ParseDurationOrDefault("server.read_timeout", s.ReadTimeout, DefaultReadTimeout)
	write, _ = ParseDurationOrDefault("server.write_timeout", s.WriteTimeout, DefaultWriteTimeout)
	shutdown, _ = ParseDurationOrDefault("server.shutdown_timeout", s.ShutdownTimeout, DefaultShutdownTimeout)
	return read, write, shutdown
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
