package recorder

import (
	"context"
	"errors"
	"fmt"

	"TaxSentinel/internal/model"
)

// ErrWriteFailure wraps every failure to persist a report.
var ErrWriteFailure = errors.New("report write failure")

// Sink persists an ecosystem report. Sinks never alter the report.
type Sink interface {
	Emit(ctx context.Context, report *model.EcosystemReport) error
	Close() error
}

// MultiSink fans a report out to several sinks. Every sink is attempted;
// failures are joined.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, report *model.EcosystemReport) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrWriteFailure, fmt.Errorf(format, args...))
}
