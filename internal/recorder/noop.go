package recorder

import (
	"context"

	"TaxSentinel/internal/model"
)

// NoopSink discards reports. Used when no output is configured.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (n *NoopSink) Emit(_ context.Context, _ *model.EcosystemReport) error { return nil }

func (n *NoopSink) Close() error { return nil }
