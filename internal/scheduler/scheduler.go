package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"TaxSentinel/internal/model"
	"TaxSentinel/internal/notifier"
	"TaxSentinel/internal/recorder"
)

// Runner performs one ecosystem check.
type Runner interface {
	Run(ctx context.Context) (*model.EcosystemReport, error)
	Last() *model.EcosystemReport
}

// History lists stored runs. Optional.
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]recorder.RunSummary, error)
}

const historyLimit = 10

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier notifier.Notifier
	History  History
	Ctx      context.Context
	logger   *zap.Logger
}

// NewScheduler creates a new Scheduler. Notifier and History may be nil.
func NewScheduler(ctx context.Context, runner Runner, n notifier.Notifier, history History, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: n,
		History:  history,
		Ctx:      ctx,
		logger:   logger,
	}
}

// Register adds the periodic check and, when summaryCron is set, a summary
// of the latest report.
func (s *Scheduler) Register(checkCron, summaryCron string) error {
	if _, err := s.Cron.AddFunc(checkCron, s.checkTask); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	if summaryCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(summaryCron, s.summaryTask); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes a check immediately (manual trigger / run on start).
func (s *Scheduler) RunNow() (*model.EcosystemReport, error) {
	return s.Runner.Run(s.Ctx)
}

func (s *Scheduler) checkTask() {
	s.logger.Info("running ecosystem check")
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("ecosystem check failed", zap.Error(err))
		if s.Ctx.Err() == nil {
			s.trySend(fmt.Sprintf("❌ Ecosystem check failed: %v", err))
		}
	}
}

func (s *Scheduler) summaryTask() {
	rep := s.Runner.Last()
	if rep == nil {
		s.logger.Info("no report yet, skipping summary")
		return
	}
	s.trySend(notifier.FormatEcosystemReport(rep))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/status":
		rep, err := s.Runner.Run(ctx)
		if rep == nil {
			return fmt.Sprintf("❌ Check failed: %v", err)
		}
		return formatStatus(rep)
	case "/report":
		rep, err := s.Runner.Run(ctx)
		if rep == nil {
			return fmt.Sprintf("❌ Check failed: %v", err)
		}
		return notifier.FormatEcosystemReport(rep)
	case "/history":
		if s.History == nil {
			return "History is not enabled"
		}
		runs, err := s.History.RecentRuns(ctx, historyLimit)
		if err != nil {
			s.logger.Error("load history failed", zap.Error(err))
			return "❌ Could not load history"
		}
		return notifier.FormatRunHistory(runs)
	default:
		return "Available commands:\n• /status\n• /report\n• /history"
	}
}

func formatStatus(rep *model.EcosystemReport) string {
	return fmt.Sprintf("Overall: %s | alerts: %d | tokens: %d ok, %d unavailable",
		rep.OverallStatus, len(rep.Alerts), rep.Metrics.TokensEvaluated, rep.Metrics.TokensUnavailable)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification failed", zap.Error(err))
	}
}
