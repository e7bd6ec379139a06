package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TaxSentinel/internal/model"
	"TaxSentinel/internal/recorder"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop())
	n.APIURL = srv.URL
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramNotifier_SendWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("T", "1", "", nil)
	n.APIURL = srv.URL
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 1))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegramNotifier_SendWithRetryCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("T", "1", "", nil)
	n.APIURL = srv.URL
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, n.SendWithRetry(ctx, "x", 5))
}

func TestFormatEcosystemReport(t *testing.T) {
	ratio := 0.5
	rep := &model.EcosystemReport{
		Ecosystem: "pulse",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Tokens: []model.TokenAssessment{
			{
				TokenID: "tok", Name: "Tok", Status: model.StatusOK, Severity: model.SeverityCritical,
				Health:         &model.HealthReport{CurrentPrice: 0.0123, PriceChangePct: -5.38},
				Sustainability: &model.SustainabilityReport{SustainabilityRatio: &ratio},
			},
			{TokenID: "free", Name: "Free", Status: model.StatusOK, Sustainability: &model.SustainabilityReport{}},
			{TokenID: "gone", Status: model.StatusUnavailable},
		},
		Metrics:       model.EcosystemMetrics{TotalVolume: 10, TokensEvaluated: 2, TokensUnavailable: 1},
		OverallStatus: model.SeverityCritical,
		Alerts:        []string{"[Critical] sustainability: Tok <0.5>"},
	}

	msg := FormatEcosystemReport(rep)
	assert.Contains(t, msg, "Overall: 🔴 Critical")
	assert.Contains(t, msg, "🔴 Tok | price 0.0123 (-5.4%)")
	assert.Contains(t, msg, "ratio 0.50")
	assert.Contains(t, msg, "Free | ratio n/a")
	assert.Contains(t, msg, "⚪ gone: unavailable")
	assert.Contains(t, msg, "Unavailable: 1/3")
	assert.Contains(t, msg, "Tok &lt;0.5&gt;")
	assert.True(t, ShouldNotify(rep))
	assert.False(t, ShouldNotify(&model.EcosystemReport{}))
}

func TestFormatRunHistory(t *testing.T) {
	assert.Contains(t, FormatRunHistory(nil), "No runs")
	msg := FormatRunHistory([]recorder.RunSummary{{
		Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), OverallStatus: "Warning", Alerts: 3,
	}})
	assert.Contains(t, msg, "2025-03-01 09:00  Warning   3 alerts")
}
