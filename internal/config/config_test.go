package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw/Tents.csv", cfg.TentsCSV)
	assert.Equal(t, "data/raw/facilities", cfg.FacilitiesDir)
	assert.Equal(t, "data/processed", cfg.ProcessedDir)
	assert.Equal(t, 10, cfg.HexResolution)
	assert.Equal(t, 1, cfg.TentRing)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15, cfg.Catalogue.Len())
	assert.Equal(t, "data/processed/enriched.csv", cfg.EnrichedCSVPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
	assert.Equal(t, 100, cfg.RateLimitBurst)
	assert.Equal(t, 4096, cfg.LookupCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "enriched-hexes", cfg.KafkaEnrichedTopic)
	assert.Empty(t, cfg.SQLiteExportPath)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("TENTS_CSV", "/in/tents.csv")
	t.Setenv("FACILITIES_DIR", "/in/facilities")
	t.Setenv("PROCESSED_DIR", "/out")
	t.Setenv("H3_RESOLUTION", "9")
	t.Setenv("TENT_RING", "2")
	t.Setenv("ENRICH_WORKERS", "8")
	t.Setenv("ENRICHED_CSV_PATH", "/out/enriched.csv")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ENRICHED_TOPIC", "hexes")
	t.Setenv("SQLITE_EXPORT_PATH", "/out/enriched.db")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/tent_hex.prom")
	t.Setenv("LOOKUP_CACHE_SIZE", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in/tents.csv", cfg.TentsCSV)
	assert.Equal(t, "/in/facilities", cfg.FacilitiesDir)
	assert.Equal(t, "/out", cfg.ProcessedDir)
	assert.Equal(t, 9, cfg.HexResolution)
	assert.Equal(t, 2, cfg.TentRing)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/out/enriched.csv", cfg.EnrichedCSVPath)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, 64, cfg.LookupCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "hexes", cfg.KafkaEnrichedTopic)
	assert.Equal(t, "/out/enriched.db", cfg.SQLiteExportPath)
	assert.Equal(t, "/var/lib/node_exporter/tent_hex.prom", cfg.MetricsTextfile)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
data:
  tents_csv: data/raw/tents_2024.csv
  facilities_dir: data/raw/fac
pipeline:
  h3_resolution: 9
  tent_ring: 0
  categories:
    - name: Transit_Stops_GTFS
      prefix: transit
    - name: Shelters
      prefix: shelter
service:
  enriched_csv_path: data/processed/run/enriched.csv
  rate_limit_rps: 10
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw/tents_2024.csv", cfg.TentsCSV)
	assert.Equal(t, "data/raw/fac", cfg.FacilitiesDir)
	assert.Equal(t, "data/processed", cfg.ProcessedDir, "unset keys keep defaults")
	assert.Equal(t, 9, cfg.HexResolution)
	assert.Equal(t, 0, cfg.TentRing, "explicit zero ring is honored")
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, "data/processed/run/enriched.csv", cfg.EnrichedCSVPath)
	assert.Equal(t, []domain.FacilityCategory{
		{Name: "Transit_Stops_GTFS", Prefix: "transit"},
		{Name: "Shelters", Prefix: "shelter"},
	}, cfg.Catalogue.Categories())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "pipeline:\n  h3_resolution: 9\n"))
	t.Setenv("H3_RESOLUTION", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.HexResolution)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join("..", "..", "config", "config.example.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCatalogue().Categories(), cfg.Catalogue.Categories())
}

func TestLoad_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"bad yaml", "pipeline: [", "parse config file"},
		{"duplicate prefix", "pipeline:\n  categories:\n    - {name: A, prefix: a}\n    - {name: B, prefix: a}\n", "duplicate prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", writeConfig(t, tt.content))
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, msg string
	}{
		{"H3_RESOLUTION", "16", "H3_RESOLUTION"},
		{"H3_RESOLUTION", "ten", "H3_RESOLUTION"},
		{"TENT_RING", "-1", "TENT_RING"},
		{"ENRICH_WORKERS", "0", "ENRICH_WORKERS"},
		{"RATE_LIMIT_RPS", "0", "RATE_LIMIT_RPS"},
		{"RATE_LIMIT_RPS", "fast", "RATE_LIMIT_RPS"},
		{"RATE_LIMIT_BURST", "0", "RATE_LIMIT_BURST"},
		{"LOOKUP_CACHE_SIZE", "0", "LOOKUP_CACHE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
