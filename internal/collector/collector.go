package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"TaxSentinel/internal/model"
)

// TokenTarget is a token whose market samples should be fetched.
type TokenTarget struct {
	ID string
}

// WalletTarget is a named wallet whose transfers should be fetched.
type WalletTarget struct {
	Name    string
	Address string
	TokenID string
}

// TokenResult is the fetch outcome for one token. Err is set when the source failed.
type TokenResult struct {
	TokenID string
	Samples []model.TokenSample
	Err     error
}

// WalletResult is the fetch outcome for one wallet.
type WalletResult struct {
	Target       WalletTarget
	Transactions []model.Transaction
	Err          error
}

// Snapshot holds every fetch result of one run, in target order.
type Snapshot struct {
	Tokens  []TokenResult
	Wallets []WalletResult
}

// Collector fetches market samples and wallet histories concurrently.
// A failing target never aborts the others.
type Collector struct {
	Samples     SampleSource
	Chain       ChainSource
	WindowDays  int
	Concurrency int
	Retries     int
	Backoff     time.Duration
	logger      *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(samples SampleSource, chain ChainSource, windowDays int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Samples:     samples,
		Chain:       chain,
		WindowDays:  windowDays,
		Concurrency: 4,
		Retries:     3,
		Backoff:     time.Second,
		logger:      logger,
	}
}

// Collect fetches all targets. The returned error is only non-nil when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, tokens []TokenTarget, wallets []WalletTarget) (*Snapshot, error) {
	snap := &Snapshot{
		Tokens:  make([]TokenResult, len(tokens)),
		Wallets: make([]WalletResult, len(wallets)),
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}

	for i, t := range tokens {
		g.Go(func() error {
			res := TokenResult{TokenID: t.ID}
			if c.Samples == nil {
				res.Err = unavailable(ErrNetworkFailure, "no sample source configured")
			} else {
				res.Err = c.withRetry(gctx, "token "+t.ID, func() error {
					s, err := c.Samples.FetchTokenSamples(gctx, t.ID, c.WindowDays)
					res.Samples = s
					return err
				})
			}
			if res.Err != nil {
				c.logger.Warn("token fetch failed", zap.String("token", t.ID), zap.Error(res.Err))
			} else {
				c.logger.Debug("token fetched", zap.String("token", t.ID), zap.Int("samples", len(res.Samples)))
			}
			snap.Tokens[i] = res
			return nil
		})
	}

	for i, w := range wallets {
		g.Go(func() error {
			res := WalletResult{Target: w}
			if c.Chain == nil {
				res.Err = unavailable(ErrNetworkFailure, "no chain source configured")
			} else {
				res.Err = c.withRetry(gctx, "wallet "+w.Name, func() error {
					txs, err := c.Chain.FetchWalletTransactions(gctx, w.Address, c.WindowDays)
					res.Transactions = txs
					return err
				})
			}
			if res.Err != nil {
				c.logger.Warn("wallet fetch failed", zap.String("wallet", w.Name), zap.Error(res.Err))
			} else {
				c.logger.Debug("wallet fetched", zap.String("wallet", w.Name), zap.Int("transactions", len(res.Transactions)))
			}
			snap.Wallets[i] = res
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	return snap, nil
}

// withRetry runs fn with exponential backoff, retrying only transient failures.
func (c *Collector) withRetry(ctx context.Context, what string, fn func() error) error {
	var lastErr error
	for i := 0; i <= c.Retries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || i == c.Retries {
			break
		}
		backoff := c.Backoff * time.Duration(1<<uint(i))
		c.logger.Debug("fetch failed, retrying",
			zap.String("target", what),
			zap.Int("attempt", i+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}
