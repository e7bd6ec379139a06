package collector

import (
	"context"
	"errors"
	"fmt"

	"TaxSentinel/internal/model"
)

var (
	// ErrSourceUnavailable wraps every failure of an external data source.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrNotFound          = errors.New("not found")
	ErrNetworkFailure    = errors.New("network failure")
)

// SampleSource returns chronological price/volume samples for a token.
type SampleSource interface {
	FetchTokenSamples(ctx context.Context, tokenID string, windowDays int) ([]model.TokenSample, error)
	Name() string
}

// ChainSource returns a wallet's decoded transfer history.
type ChainSource interface {
	FetchWalletTransactions(ctx context.Context, address string, windowDays int) ([]model.Transaction, error)
	Name() string
}

func unavailable(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrSourceUnavailable, kind, fmt.Sprintf(format, args...))
}

// retryable reports whether a source error may succeed on a later attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetworkFailure)
}
