package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"TaxSentinel/internal/model"
)

// MockSampleSource returns controllable fixed data for development and testing.
// Tokens without explicit data get a generated flat series around Price.
type MockSampleSource struct {
	Price  float64
	Volume float64
	Data   map[string][]model.TokenSample
	Errors map[string]error
	mu     sync.Mutex
	calls  map[string]int
}

func (m *MockSampleSource) Name() string { return "mock" }

func (m *MockSampleSource) FetchTokenSamples(_ context.Context, tokenID string, windowDays int) ([]model.TokenSample, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[tokenID]++
	m.mu.Unlock()

	if err, ok := m.Errors[tokenID]; ok {
		return nil, err
	}
	if s, ok := m.Data[tokenID]; ok {
		return s, nil
	}
	return generateMockSamples(tokenID, m.Price, m.Volume, windowDays), nil
}

// Calls returns how many times tokenID was fetched.
func (m *MockSampleSource) Calls(tokenID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[tokenID]
}

func generateMockSamples(tokenID string, basePrice, baseVolume float64, days int) []model.TokenSample {
	if basePrice == 0 {
		basePrice = 1
	}
	if baseVolume == 0 {
		baseVolume = 1_000_000
	}
	samples := make([]model.TokenSample, days)
	for i := 0; i < days; i++ {
		samples[i] = model.TokenSample{
			TokenID:   tokenID,
			Timestamp: time.Now().UTC().AddDate(0, 0, -(days - i)),
			Price:     basePrice * (1 + float64(i-days/2)*0.001),
			Volume:    baseVolume,
		}
	}
	return samples
}

// MockChainSource serves fixed transaction histories keyed by address.
type MockChainSource struct {
	Transactions map[string][]model.Transaction
	Errors       map[string]error
}

func (m *MockChainSource) Name() string { return "mock" }

func (m *MockChainSource) FetchWalletTransactions(_ context.Context, address string, _ int) ([]model.Transaction, error) {
	for addr, err := range m.Errors {
		if strings.EqualFold(addr, address) {
			return nil, err
		}
	}
	for addr, txs := range m.Transactions {
		if strings.EqualFold(addr, address) {
			return txs, nil
		}
	}
	return []model.Transaction{}, nil
}
