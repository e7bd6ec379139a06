package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TaxSentinel/internal/model"
)

const (
	treasury = "0x1111111111111111111111111111111111111111"
	alice    = "0x2222222222222222222222222222222222222222"
)

func TestCoinGecko_FetchTokenSamples(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("x-cg-demo-api-key")
		fmt.Fprint(w, `{
			"prices": [[1740873600000, 0.0130], [1740787200000, 0.0125], [1740960000000, 0.0123]],
			"market_caps": [[1740787200000, 1000000]],
			"total_volumes": [[1740787200000, 500], [1740873600000, 600]]
		}`)
	}))
	defer srv.Close()

	src := NewCoinGeckoSource(srv.URL, "key", "usd", "")
	samples, err := src.FetchTokenSamples(context.Background(), "pulsex", 30)
	require.NoError(t, err)

	assert.Equal(t, "/coins/pulsex/market_chart?vs_currency=usd&days=30", gotPath)
	assert.Equal(t, "key", gotKey)
	// the last price has no volume and is dropped
	require.Len(t, samples, 2)
	assert.Equal(t, 0.0125, samples[0].Price)
	assert.Equal(t, 500.0, samples[0].Volume)
	assert.Equal(t, 1000000.0, samples[0].MarketCap)
	assert.Equal(t, 0.0130, samples[1].Price)
	assert.Zero(t, samples[1].MarketCap)
	assert.True(t, samples[0].Timestamp.Before(samples[1].Timestamp))
}

func TestCoinGecko_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadGateway, ErrNetworkFailure},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewCoinGeckoSource(srv.URL, "", "", "").FetchTokenSamples(context.Background(), "x", 30)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSourceUnavailable)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestExplorer_FetchWalletTransactions(t *testing.T) {
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	in := now.AddDate(0, 0, -2).Unix()
	out := now.AddDate(0, 0, -1).Unix()
	old := now.AddDate(0, 0, -60).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, treasury, r.URL.Query().Get("address"))
		fmt.Fprintf(w, `{"status":"1","message":"OK","result":[
			{"hash":"0xa","from":"%s","to":"%s","value":"2000000000000000000","timeStamp":"%d","isError":"0"},
			{"hash":"0xb","from":"%s","to":"%s","value":"50000000000000000","timeStamp":"%d","isError":"0"},
			{"hash":"0xc","from":"%s","to":"%s","value":"1","timeStamp":"%d","isError":"0"},
			{"hash":"0xd","from":"%s","to":"%s","value":"1","timeStamp":"%d","isError":"1"}
		]}`,
			alice, "0x1111111111111111111111111111111111111111", in,
			"0x1111111111111111111111111111111111111111", alice, out,
			alice, treasury, old,
			alice, treasury, out)
	}))
	defer srv.Close()

	src := NewExplorerSource(srv.URL, "", "")
	src.Now = func() time.Time { return now }
	txs, err := src.FetchWalletTransactions(context.Background(), treasury, 30)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, model.DirectionIn, txs[0].Direction)
	assert.Equal(t, alice, txs[0].Counterparty)
	assert.Equal(t, "2", txs[0].Amount.String())

	assert.Equal(t, model.DirectionOut, txs[1].Direction)
	assert.Equal(t, "0.05", txs[1].Amount.String())
}

func explorerStatus(t *testing.T, message string) *ExplorerSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"0","message":%q,"result":[]}`, message)
	}))
	t.Cleanup(srv.Close)
	return NewExplorerSource(srv.URL, "", "")
}

func TestExplorer_StatusMessages(t *testing.T) {
	txs, err := explorerStatus(t, "No transactions found").FetchWalletTransactions(context.Background(), treasury, 30)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = explorerStatus(t, "Max rate limit reached").FetchWalletTransactions(context.Background(), treasury, 30)
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = explorerStatus(t, "NOTOK").FetchWalletTransactions(context.Background(), treasury, 30)
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestSources_MalformedBodyIsUnavailable(t *testing.T) {
	serve := func(t *testing.T, body string) string {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))
		t.Cleanup(srv.Close)
		return srv.URL
	}
	ctx := context.Background()

	_, err := NewCoinGeckoSource(serve(t, "<html>maintenance</html>"), "", "", "").FetchTokenSamples(ctx, "x", 30)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrNetworkFailure)

	_, err = NewExplorerSource(serve(t, "not json"), "", "").FetchWalletTransactions(ctx, treasury, 30)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrNetworkFailure)

	_, err = NewExplorerSource(serve(t, `{"status":"1","message":"OK","result":"oops"}`), "", "").
		FetchWalletTransactions(ctx, treasury, 30)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrNetworkFailure)

	_, err = NewExplorerSource(serve(t, fmt.Sprintf(
		`{"status":"1","message":"OK","result":[{"hash":"0xa","from":"%s","to":"%s","value":"lots","timeStamp":"1","isError":"0"}]}`,
		alice, treasury)), "", "").FetchWalletTransactions(ctx, treasury, 30)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD", "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"))
	assert.False(t, SameAddress(treasury, alice))
	assert.True(t, SameAddress("dump", "DUMP"))
}

type flakySource struct {
	fails int32
	err   error
	calls atomic.Int32
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) FetchTokenSamples(_ context.Context, tokenID string, _ int) ([]model.TokenSample, error) {
	if f.calls.Add(1) <= f.fails {
		return nil, f.err
	}
	return []model.TokenSample{{TokenID: tokenID, Price: 1}}, nil
}

func TestCollector_RetriesTransientFailures(t *testing.T) {
	src := &flakySource{fails: 2, err: unavailable(ErrRateLimited, "slow down")}
	c := NewCollector(src, nil, 30, zap.NewNop())
	c.Backoff = time.Millisecond

	snap, err := c.Collect(context.Background(), []TokenTarget{{ID: "a"}}, nil)
	require.NoError(t, err)
	require.NoError(t, snap.Tokens[0].Err)
	assert.Len(t, snap.Tokens[0].Samples, 1)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestCollector_DoesNotRetryNotFound(t *testing.T) {
	src := &flakySource{fails: 10, err: unavailable(ErrNotFound, "gone")}
	c := NewCollector(src, nil, 30, zap.NewNop())
	c.Backoff = time.Millisecond

	snap, err := c.Collect(context.Background(), []TokenTarget{{ID: "a"}}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, snap.Tokens[0].Err, ErrNotFound)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCollector_PartialFailureKeepsOrder(t *testing.T) {
	samples := &MockSampleSource{
		Price:  2,
		Errors: map[string]error{"b": unavailable(ErrNotFound, "b")},
	}
	chain := &MockChainSource{
		Transactions: map[string][]model.Transaction{treasury: {{Hash: "0x1"}}},
		Errors:       map[string]error{alice: unavailable(ErrNotFound, "alice")},
	}
	c := NewCollector(samples, chain, 10, zap.NewNop())
	c.Backoff = time.Millisecond

	snap, err := c.Collect(context.Background(),
		[]TokenTarget{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[]WalletTarget{{Name: "treasury", Address: treasury}, {Name: "alice", Address: alice}})
	require.NoError(t, err)

	require.Len(t, snap.Tokens, 3)
	assert.Equal(t, "a", snap.Tokens[0].TokenID)
	assert.NoError(t, snap.Tokens[0].Err)
	assert.Len(t, snap.Tokens[0].Samples, 10)
	assert.Equal(t, "b", snap.Tokens[1].TokenID)
	assert.Error(t, snap.Tokens[1].Err)
	assert.Equal(t, "c", snap.Tokens[2].TokenID)
	assert.NoError(t, snap.Tokens[2].Err)

	require.Len(t, snap.Wallets, 2)
	assert.NoError(t, snap.Wallets[0].Err)
	assert.Len(t, snap.Wallets[0].Transactions, 1)
	assert.ErrorIs(t, snap.Wallets[1].Err, ErrSourceUnavailable)
}

func TestCollector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(&MockSampleSource{}, nil, 5, nil)
	_, err := c.Collect(ctx, []TokenTarget{{ID: "a"}}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCachedSampleSource_MemoryCache(t *testing.T) {
	mock := &MockSampleSource{Price: 1}
	src := NewCachedSampleSource(mock, NewMemoryCache(), time.Minute, zap.NewNop())

	first, err := src.FetchTokenSamples(context.Background(), "a", 5)
	require.NoError(t, err)
	second, err := src.FetchTokenSamples(context.Background(), "a", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.Calls("a"))
	assert.Equal(t, "mock+cache", src.Name())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", []model.TokenSample{{Price: 1}}, time.Minute))
	_, err := c.Get(context.Background(), "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer c.Close()

	key := cacheKey("redis-test", time.Now().Nanosecond())
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	in := []model.TokenSample{{TokenID: "redis-test", Timestamp: time.Unix(1700000000, 0).UTC(), Price: 1.5, Volume: 10}}
	require.NoError(t, c.Set(ctx, key, in, time.Minute))
	out, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
