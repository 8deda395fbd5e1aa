package pipeline

import (
	"context"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// Sink receives the enriched table produced by a run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, info domain.RunInfo, tbl domain.EnrichedTable) error
}
