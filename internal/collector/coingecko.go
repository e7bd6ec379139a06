package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"TaxSentinel/internal/model"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoSource implements SampleSource using the CoinGecko market_chart endpoint.
type CoinGeckoSource struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Client     *http.Client
}

// NewCoinGeckoSource creates a source with optional proxy support.
func NewCoinGeckoSource(baseURL, apiKey, vsCurrency, proxyURL string) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	return &CoinGeckoSource{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		VsCurrency: vsCurrency,
		Client:     newHTTPClient(proxyURL),
	}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

// marketChart is the market_chart response: each point is [unix_ms, value].
type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

func (s *CoinGeckoSource) FetchTokenSamples(ctx context.Context, tokenID string, windowDays int) ([]model.TokenSample, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d",
		s.BaseURL, url.PathEscape(tokenID), url.QueryEscape(s.VsCurrency), windowDays)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, unavailable(ErrNetworkFailure, "coingecko fetch %s: %v", tokenID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(ErrNetworkFailure, "coingecko read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("coingecko "+tokenID, resp.StatusCode, body)
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, unavailable(ErrNetworkFailure, "coingecko decode: %v", err)
	}
	if len(chart.Prices) == 0 {
		return nil, unavailable(ErrNotFound, "coingecko: no prices for %s", tokenID)
	}
	return mergeChart(tokenID, chart), nil
}

// mergeChart joins prices and volumes on timestamp; market caps are optional.
func mergeChart(tokenID string, chart marketChart) []model.TokenSample {
	volumes := make(map[int64]float64, len(chart.TotalVolumes))
	for _, p := range chart.TotalVolumes {
		volumes[int64(p[0])] = p[1]
	}
	caps := make(map[int64]float64, len(chart.MarketCaps))
	for _, p := range chart.MarketCaps {
		caps[int64(p[0])] = p[1]
	}

	samples := make([]model.TokenSample, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		ts := int64(p[0])
		vol, ok := volumes[ts]
		if !ok {
			continue
		}
		samples = append(samples, model.TokenSample{
			TokenID:   tokenID,
			Timestamp: time.UnixMilli(ts).UTC(),
			Price:     p[1],
			Volume:    vol,
			MarketCap: caps[ts],
		})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp.Before(samples[j].Timestamp) })
	return samples
}
