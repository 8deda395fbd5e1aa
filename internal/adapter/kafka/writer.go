package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

const (
	maxAttempts    = 4
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Writer publishes enriched hex rows to a Kafka topic, one message per row.
// It implements pipeline.Sink.
type Writer struct {
	writer    *kafkago.Writer
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the enriched-hex topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, batchSize: 500, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Publish writes every row of tbl in chunks. Messages are keyed by h3_id so
// rows for the same cell land on the same partition across runs.
func (w *Writer) Publish(ctx context.Context, info domain.RunInfo, tbl domain.EnrichedTable) error {
	if len(tbl.Rows) == 0 {
		return nil
	}
	cols := tbl.CountColumns()
	msgs := make([]kafkago.Message, 0, w.batchSize)
	sent := 0
	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}
		if err := w.writeWithRetry(ctx, msgs); err != nil {
			return fmt.Errorf("write enriched rows after %d of %d: %w", sent, len(tbl.Rows), err)
		}
		sent += len(msgs)
		msgs = msgs[:0]
		return nil
	}

	for _, row := range tbl.Rows {
		msg, err := serializeRow(info, row, cols)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		if len(msgs) == w.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	w.logger.Debug("enriched rows published", "topic", w.writer.Topic, "rows", sent, "run_id", info.ID)
	return nil
}

// writeWithRetry retries transient broker errors with exponential backoff.
func (w *Writer) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		w.logger.Warn("kafka write failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// RowMessage is the JSON value of an enriched-row message.
type RowMessage struct {
	H3ID       string         `json:"h3_id"`
	CenterLat  float64        `json:"center_lat"`
	CenterLon  float64        `json:"center_lon"`
	TentStatus int            `json:"tent_status"`
	Facilities map[string]int `json:"facilities"`
	RunID      string         `json:"run_id"`
}

func serializeRow(info domain.RunInfo, row domain.EnrichedRow, cols []string) (kafkago.Message, error) {
	if len(row.Counts) != len(cols) {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %d counts for %d columns", row.ID, len(row.Counts), len(cols))
	}
	facilities := make(map[string]int, len(cols))
	for i, c := range cols {
		facilities[c] = row.Counts[i]
	}
	data, err := json.Marshal(RowMessage{
		H3ID:       string(row.ID),
		CenterLat:  row.Center.Lat,
		CenterLon:  row.Center.Lon,
		TentStatus: row.TentStatus,
		Facilities: facilities,
		RunID:      info.ID,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", row.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(row.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(info.ID)},
			{Key: "resolution", Value: []byte(strconv.Itoa(info.Resolution))},
		},
	}, nil
}
