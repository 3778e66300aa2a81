package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// maxFileSize limits the YAML config file.
const maxFileSize = 1 << 20

type Config struct {
	Port string `yaml:"port"`

	// Storage
	DatabaseURL string `yaml:"database_url"`

	// Auth
	AdminPassword string `yaml:"admin_password"`

	// Content
	ProposalPath string `yaml:"proposal_path"`
	ScenariosDir string `yaml:"scenarios_dir"`

	// Pagination
	LayoutBackend string        `yaml:"layout_backend"`
	RodBrowserBin string        `yaml:"rod_browser_bin"`
	PageCacheTTL  time.Duration `yaml:"page_cache_ttl"`

	// Notifications
	NotifyWebhookURL    string        `yaml:"notify_webhook_url"`
	NotifyWebhookSecret string        `yaml:"notify_webhook_secret"`
	NotifyWorkers       int           `yaml:"notify_workers"`
	NotifyQueueSize     int           `yaml:"notify_queue_size"`
	NotifyRetryBase     time.Duration `yaml:"notify_retry_base"`
	NotifyRetryMax      time.Duration `yaml:"notify_retry_max"`

	// Request limits
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		ProposalPath:         "content/proposal.md",
		ScenariosDir:         "content/scenarios",
		LayoutBackend:        "estimate",
		PageCacheTTL:         10 * time.Minute,
		NotifyWorkers:        2,
		NotifyQueueSize:      100,
		NotifyRetryBase:      time.Second,
		NotifyRetryMax:       30 * time.Second,
		MaxBodyBytes:         65536,
		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if any, then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.AdminPassword = envOr("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.ProposalPath = envOr("PROPOSAL_PATH", cfg.ProposalPath)
	cfg.ScenariosDir = envOr("SCENARIOS_DIR", cfg.ScenariosDir)
	cfg.LayoutBackend = envOr("LAYOUT_BACKEND", cfg.LayoutBackend)
	cfg.RodBrowserBin = envOr("ROD_BROWSER_BIN", cfg.RodBrowserBin)
	cfg.PageCacheTTL = envDuration("PAGE_CACHE_TTL", cfg.PageCacheTTL)
	cfg.NotifyWebhookURL = envOr("NOTIFY_WEBHOOK_URL", cfg.NotifyWebhookURL)
	cfg.NotifyWebhookSecret = envOr("NOTIFY_WEBHOOK_SECRET", cfg.NotifyWebhookSecret)
	cfg.NotifyWorkers = envInt("NOTIFY_WORKERS", cfg.NotifyWorkers)
	cfg.NotifyQueueSize = envInt("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize)
	cfg.NotifyRetryBase = envDuration("NOTIFY_RETRY_BASE", cfg.NotifyRetryBase)
	cfg.NotifyRetryMax = envDuration("NOTIFY_RETRY_MAX", cfg.NotifyRetryMax)
	cfg.MaxBodyBytes = envInt64("MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	d := defaults()
	if cfg.NotifyWorkers <= 0 {
		cfg.NotifyWorkers = d.NotifyWorkers
	}
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = d.NotifyQueueSize
	}
	if cfg.NotifyRetryBase <= 0 {
		cfg.NotifyRetryBase = d.NotifyRetryBase
	}
	if cfg.NotifyRetryMax < cfg.NotifyRetryBase {
		cfg.NotifyRetryMax = cfg.NotifyRetryBase
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = d.MaxBodyBytes
	}
	if cfg.PageCacheTTL < 0 {
		cfg.PageCacheTTL = 0
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return fmt.Errorf("config file %s: %d bytes exceeds %d", path, info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	// Unknown keys are rejected so typos do not pass silently.
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}
	switch c.LayoutBackend {
	case "", "estimate", "browser":
	default:
		errs = append(errs, fmt.Errorf("LAYOUT_BACKEND must be estimate or browser, got %q", c.LayoutBackend))
	}
	if c.ProposalPath == "" {
		errs = append(errs, fmt.Errorf("PROPOSAL_PATH is required"))
	}
	return errors.Join(errs...)
}

// AdminEnabled reports whether admin routes can authenticate anyone.
func (c Config) AdminEnabled() bool { return c.AdminPassword != "" }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
