//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/h3grid"
	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
	"github.com/couchcryptid/tent-hex-enrichment/internal/observability"
	"github.com/couchcryptid/tent-hex-enrichment/internal/pipeline"
)

const testTopic = "test-enriched-hexes"

// TestPipelineKafkaSink runs a full enrichment and reads every published row
// back from the topic.
func TestPipelineKafkaSink(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	dir := t.TempDir()
	tents := filepath.Join(dir, "Tents.csv")
	facilities := filepath.Join(dir, "facilities")
	require.NoError(t, os.WriteFile(tents, []byte("lat,lon\n32.7157,-117.1611\n"), 0o644))
	require.NoError(t, os.MkdirAll(facilities, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(facilities, "Transit_Stops_GTFS.csv"),
		[]byte("stop_lat,stop_lon\n32.7157,-117.1611\n32.7157,-117.1611\n"), 0o644))

	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger())
	defer writer.Close()

	indexer := h3grid.NewIndexer(discardLogger())
	p := pipeline.New(indexer, pipeline.Options{
		Resolution: 10,
		Ring:       1,
		Workers:    2,
		Catalogue:  domain.MustCatalogue([]domain.FacilityCategory{{Name: "Transit_Stops_GTFS", Prefix: "transit"}}),
	}, discardLogger(), observability.NewMetricsForTesting(), writer)

	res, err := p.Run(ctx, pipeline.RunInput{TentsCSV: tents, FacilitiesDir: facilities, ProcessedDir: filepath.Join(dir, "processed")})
	require.NoError(t, err)
	require.Equal(t, 7, res.Rows)

	tentCell, err := indexer.PointToCell(domain.Point{Lat: 32.7157, Lon: -117.1611}, 10)
	require.NoError(t, err)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	seen := make(map[string]kafka.RowMessage, res.Rows)
	for range res.Rows {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read enriched row")

		var row kafka.RowMessage
		require.NoError(t, json.Unmarshal(msg.Value, &row))
		assert.Equal(t, row.H3ID, string(msg.Key))

		h := headerMap(msg.Headers)
		assert.Equal(t, res.Info.ID, h["run_id"])
		assert.Equal(t, "10", h["resolution"])
		seen[row.H3ID] = row
	}

	require.Len(t, seen, 7)
	tent, ok := seen[string(tentCell)]
	require.True(t, ok)
	assert.Equal(t, 1, tent.TentStatus)
	assert.Equal(t, 2, tent.Facilities["transit_count"])
}
