package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/goccy/go-yaml"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// Config holds all service settings. Values come from an optional YAML file
// (CONFIG_PATH) and are overridden by environment variables.
type Config struct {
	// Pipeline inputs and outputs.
	TentsCSV      string
	FacilitiesDir string
	ProcessedDir  string

	HexResolution int
	TentRing      int
	Workers       int
	Catalogue     domain.Catalogue

	// Lookup API.
	EnrichedCSVPath    string
	HTTPAddr           string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	LookupCacheSize    int

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional sinks; empty disables them.
	KafkaBrokers       []string
	KafkaEnrichedTopic string
	SQLiteExportPath   string
	MetricsTextfile    string
}

// fileConfig mirrors the YAML layout of config/config.example.yaml.
type fileConfig struct {
	Data struct {
		TentsCSV      string `yaml:"tents_csv"`
		FacilitiesDir string `yaml:"facilities_dir"`
		ProcessedDir  string `yaml:"processed_dir"`
	} `yaml:"data"`
	Pipeline struct {
		H3Resolution *int                      `yaml:"h3_resolution"`
		TentRing     *int                      `yaml:"tent_ring"`
		Workers      *int                      `yaml:"workers"`
		Categories   []domain.FacilityCategory `yaml:"categories"`
	} `yaml:"pipeline"`
	Service struct {
		EnrichedCSVPath    string   `yaml:"enriched_csv_path"`
		HTTPAddr           string   `yaml:"http_addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		RateLimitRPS       *float64 `yaml:"rate_limit_rps"`
		RateLimitBurst     *int     `yaml:"rate_limit_burst"`
		CacheSize          *int     `yaml:"cache_size"`
	} `yaml:"service"`
}

// Load reads configuration from CONFIG_PATH (when set) and environment
// variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		TentsCSV:           "data/raw/Tents.csv",
		FacilitiesDir:      "data/raw/facilities",
		ProcessedDir:       "data/processed",
		HexResolution:      10,
		TentRing:           1,
		Workers:            4,
		Catalogue:          domain.DefaultCatalogue(),
		EnrichedCSVPath:    "data/processed/enriched.csv",
		HTTPAddr:           ":8080",
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       50,
		RateLimitBurst:     100,
		LookupCacheSize:    4096,
		LogLevel:           "info",
		LogFormat:          "json",
		ShutdownTimeout:    10 * time.Second,
		KafkaEnrichedTopic: "enriched-hexes",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.TentsCSV, fc.Data.TentsCSV)
	setString(&c.FacilitiesDir, fc.Data.FacilitiesDir)
	setString(&c.ProcessedDir, fc.Data.ProcessedDir)
	setPtr(&c.HexResolution, fc.Pipeline.H3Resolution)
	setPtr(&c.TentRing, fc.Pipeline.TentRing)
	setPtr(&c.Workers, fc.Pipeline.Workers)
	if len(fc.Pipeline.Categories) > 0 {
		cat, err := domain.NewCatalogue(fc.Pipeline.Categories)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		c.Catalogue = cat
	}
	setString(&c.EnrichedCSVPath, fc.Service.EnrichedCSVPath)
	setString(&c.HTTPAddr, fc.Service.HTTPAddr)
	if len(fc.Service.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.Service.CORSAllowedOrigins
	}
	setPtr(&c.RateLimitRPS, fc.Service.RateLimitRPS)
	setPtr(&c.RateLimitBurst, fc.Service.RateLimitBurst)
	setPtr(&c.LookupCacheSize, fc.Service.CacheSize)
	return nil
}

func (c *Config) applyEnv() error {
	c.TentsCSV = sharedcfg.EnvOrDefault("TENTS_CSV", c.TentsCSV)
	c.FacilitiesDir = sharedcfg.EnvOrDefault("FACILITIES_DIR", c.FacilitiesDir)
	c.ProcessedDir = sharedcfg.EnvOrDefault("PROCESSED_DIR", c.ProcessedDir)
	c.EnrichedCSVPath = sharedcfg.EnvOrDefault("ENRICHED_CSV_PATH", c.EnrichedCSVPath)
	c.HTTPAddr = sharedcfg.EnvOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = sharedcfg.EnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = sharedcfg.EnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.KafkaEnrichedTopic = sharedcfg.EnvOrDefault("KAFKA_ENRICHED_TOPIC", c.KafkaEnrichedTopic)
	c.SQLiteExportPath = sharedcfg.EnvOrDefault("SQLITE_EXPORT_PATH", c.SQLiteExportPath)
	c.MetricsTextfile = sharedcfg.EnvOrDefault("METRICS_TEXTFILE", c.MetricsTextfile)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return err
	}
	c.ShutdownTimeout = shutdownTimeout

	ints := []struct {
		key string
		dst *int
	}{
		{"H3_RESOLUTION", &c.HexResolution},
		{"TENT_RING", &c.TentRing},
		{"ENRICH_WORKERS", &c.Workers},
		{"RATE_LIMIT_BURST", &c.RateLimitBurst},
		{"LOOKUP_CACHE_SIZE", &c.LookupCacheSize},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.dst); err != nil {
			return err
		}
	}

	if s := os.Getenv("RATE_LIMIT_RPS"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.New("invalid RATE_LIMIT_RPS")
		}
		c.RateLimitRPS = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.HexResolution < 0 || c.HexResolution > 15 {
		return fmt.Errorf("H3_RESOLUTION must be between 0 and 15, got %d", c.HexResolution)
	}
	if c.TentRing < 0 {
		return fmt.Errorf("TENT_RING must be non-negative, got %d", c.TentRing)
	}
	if c.Workers < 1 {
		return fmt.Errorf("ENRICH_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.RateLimitRPS <= 0 {
		return errors.New("RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1")
	}
	if c.LookupCacheSize < 1 {
		return errors.New("LOOKUP_CACHE_SIZE must be at least 1")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaEnrichedTopic == "" {
		return errors.New("KAFKA_ENRICHED_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func envInt(key string, dst *int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
