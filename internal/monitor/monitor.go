// Package monitor runs one full ecosystem check: fetch, evaluate, aggregate, emit.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TaxSentinel/internal/collector"
	"TaxSentinel/internal/ecosystem"
	"TaxSentinel/internal/model"
	"TaxSentinel/internal/notifier"
	"TaxSentinel/internal/plot"
	"TaxSentinel/internal/recorder"
)

// Options are the fixed inputs of every run.
type Options struct {
	Settings      ecosystem.Settings
	Tokens        []ecosystem.TokenSpec
	Wallets       []collector.WalletTarget
	Distributions []ecosystem.DistributionSpec
	PlotDir       string
	NotifyRetries int
}

// Monitor owns the collaborators of a run. Renderer and Notifier are optional.
type Monitor struct {
	opts      Options
	collector *collector.Collector
	sink      recorder.Sink
	renderer  plot.Renderer
	notifier  notifier.Notifier
	logger    *zap.Logger

	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	last *model.EcosystemReport
	runs sync.Mutex
}

func New(opts Options, c *collector.Collector, sink recorder.Sink, renderer plot.Renderer, n notifier.Notifier, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = recorder.NewNoopSink()
	}
	return &Monitor{
		opts:      opts,
		collector: c,
		sink:      sink,
		renderer:  renderer,
		notifier:  n,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

// Run performs one ecosystem check. Runs are serialized. The report is
// returned even when emitting it failed; only a cancelled collection yields
// no report.
func (m *Monitor) Run(ctx context.Context) (*model.EcosystemReport, error) {
	m.runs.Lock()
	defer m.runs.Unlock()

	start := time.Now()
	targets := make([]collector.TokenTarget, len(m.opts.Tokens))
	for i, t := range m.opts.Tokens {
		targets[i] = collector.TokenTarget{ID: t.ID}
	}
	snap, err := m.collector.Collect(ctx, targets, m.opts.Wallets)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := m.opts.Settings

	tokens := make([]model.TokenAssessment, len(m.opts.Tokens))
	for i, spec := range m.opts.Tokens {
		res := snap.Tokens[i]
		tokens[i] = ecosystem.AssessToken(spec, res.Samples, res.Err, s, now)
		if tokens[i].Status == model.StatusOK {
			tokens[i].Plot = m.renderPlot(spec, res.Samples)
		}
	}

	walletInputs := make([]ecosystem.WalletInput, len(snap.Wallets))
	for i, w := range snap.Wallets {
		walletInputs[i] = ecosystem.WalletInput{
			Name:         w.Target.Name,
			Address:      w.Target.Address,
			TokenID:      w.Target.TokenID,
			Transactions: w.Transactions,
			Err:          w.Err,
		}
	}

	rep := ecosystem.Aggregate(m.newID(), ecosystem.Input{
		Tokens:        tokens,
		Wallets:       ecosystem.AnalyzeWallets(walletInputs, s),
		Distributions: ecosystem.VerifyDistributions(m.opts.Distributions, walletInputs, s),
		Relationships: ecosystem.Relationships(m.opts.Tokens),
	}, s, now)

	m.logger.Info("ecosystem run complete",
		zap.String("run_id", rep.RunID),
		zap.Stringer("overall_status", rep.OverallStatus),
		zap.Int("alerts", len(rep.Alerts)),
		zap.Int("tokens_unavailable", rep.Metrics.TokensUnavailable),
		zap.Duration("elapsed", time.Since(start)))

	m.mu.Lock()
	m.last = rep
	m.mu.Unlock()

	m.notify(ctx, rep)

	if err := m.sink.Emit(ctx, rep); err != nil {
		m.logger.Error("emit report failed", zap.String("run_id", rep.RunID), zap.Error(err))
		return rep, fmt.Errorf("emit report %s: %w", rep.RunID, err)
	}
	return rep, nil
}

// Last returns the most recent report, or nil before the first run.
func (m *Monitor) Last() *model.EcosystemReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monitor) renderPlot(spec ecosystem.TokenSpec, samples []model.TokenSample) string {
	if m.renderer == nil || m.opts.PlotDir == "" {
		return ""
	}
	path := filepath.Join(m.opts.PlotDir, plot.FileName(spec.ID))
	if err := m.renderer.RenderSeries(spec.Name, samples, path); err != nil {
		m.logger.Warn("plot failed", zap.String("token", spec.ID), zap.Error(err))
		return ""
	}
	return path
}

func (m *Monitor) notify(ctx context.Context, rep *model.EcosystemReport) {
	if m.notifier == nil || !notifier.ShouldNotify(rep) {
		return
	}
	if err := m.notifier.SendWithRetry(ctx, notifier.FormatEcosystemReport(rep), m.opts.NotifyRetries); err != nil {
		m.logger.Error("alert notification failed", zap.String("run_id", rep.RunID), zap.Error(err))
	}
}
