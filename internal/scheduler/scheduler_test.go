package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TaxSentinel/internal/model"
	"TaxSentinel/internal/recorder"
)

type fakeRunner struct {
	runs int
	rep  *model.EcosystemReport
	err  error
	last *model.EcosystemReport
}

func (f *fakeRunner) Run(context.Context) (*model.EcosystemReport, error) {
	f.runs++
	if f.rep != nil {
		f.last = f.rep
	}
	return f.rep, f.err
}

func (f *fakeRunner) Last() *model.EcosystemReport { return f.last }

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.sent = append(f.sent, text)
	return nil
}

type fakeHistory struct{ runs []recorder.RunSummary }

func (f *fakeHistory) RecentRuns(context.Context, int) ([]recorder.RunSummary, error) {
	return f.runs, nil
}

func report() *model.EcosystemReport {
	return &model.EcosystemReport{
		Ecosystem:     "pulse",
		OverallStatus: model.SeverityWarning,
		Alerts:        []string{"[Warning] volume: X"},
		Metrics:       model.EcosystemMetrics{TokensEvaluated: 2, TokensUnavailable: 1},
		Timestamp:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleCommand(t *testing.T) {
	runner := &fakeRunner{rep: report()}
	s := NewScheduler(context.Background(), runner, nil, &fakeHistory{}, zap.NewNop())

	assert.Equal(t, "Overall: Warning | alerts: 1 | tokens: 2 ok, 1 unavailable",
		s.HandleCommand(context.Background(), "/status"))
	assert.Contains(t, s.HandleCommand(context.Background(), "/report@TaxSentinelBot"), "pulse health")
	assert.Equal(t, 2, runner.runs)

	assert.Contains(t, s.HandleCommand(context.Background(), "/history"), "No runs")
	assert.Contains(t, s.HandleCommand(context.Background(), "hello"), "/status")
	assert.Contains(t, s.HandleCommand(context.Background(), ""), "/status")
}

func TestHandleCommand_RunFailure(t *testing.T) {
	runner := &fakeRunner{err: context.Canceled}
	s := NewScheduler(context.Background(), runner, nil, nil, nil)

	assert.Contains(t, s.HandleCommand(context.Background(), "/status"), "Check failed")
	assert.Equal(t, "History is not enabled", s.HandleCommand(context.Background(), "/history"))
}

func TestCheckTask_NotifiesOnFailure(t *testing.T) {
	n := &fakeNotifier{}
	s := NewScheduler(context.Background(), &fakeRunner{err: errors.New("boom")}, n, nil, zap.NewNop())

	s.checkTask()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "boom")
}

func TestSummaryTask(t *testing.T) {
	n := &fakeNotifier{}
	runner := &fakeRunner{}
	s := NewScheduler(context.Background(), runner, n, nil, zap.NewNop())

	s.summaryTask()
	assert.Empty(t, n.sent)

	runner.last = report()
	s.summaryTask()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Overall: 🟡 Warning")
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, nil, nil)
	require.NoError(t, s.Register("0 0 * * * *", "0 0 9 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	assert.Error(t, s.Register("not a cron", ""))
}
