package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"TaxSentinel/internal/model"
)

// DefaultExplorerURL is the PulseChain block explorer API.
const DefaultExplorerURL = "https://scan.pulsechain.com/api"

// nativeDecimals is the number of decimals of the chain's native coin (wei -> PLS/ETH).
const nativeDecimals = 18

// ExplorerSource implements ChainSource against an Etherscan-compatible
// account/txlist endpoint.
type ExplorerSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Now     func() time.Time
}

// NewExplorerSource creates a source with optional proxy support.
func NewExplorerSource(baseURL, apiKey, proxyURL string) *ExplorerSource {
	if baseURL == "" {
		baseURL = DefaultExplorerURL
	}
	return &ExplorerSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		Now:     time.Now,
	}
}

func (s *ExplorerSource) Name() string { return "explorer" }

type explorerTx struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
	IsError   string `json:"isError"`
}

type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (s *ExplorerSource) FetchWalletTransactions(ctx context.Context, address string, windowDays int) ([]model.Transaction, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("sort", "asc")
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, unavailable(ErrNetworkFailure, "explorer fetch %s: %v", address, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(ErrNetworkFailure, "explorer read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("explorer "+address, resp.StatusCode, body)
	}

	var er explorerResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, unavailable(ErrNetworkFailure, "explorer decode: %v", err)
	}
	if er.Status != "1" {
		msg := strings.ToLower(er.Message)
		switch {
		case strings.Contains(msg, "no transactions"):
			return []model.Transaction{}, nil
		case strings.Contains(msg, "rate limit"):
			return nil, unavailable(ErrRateLimited, "explorer: %s", er.Message)
		case strings.Contains(msg, "invalid address"):
			return nil, unavailable(ErrNotFound, "explorer: %s", er.Message)
		default:
			return nil, unavailable(ErrNetworkFailure, "explorer: %s", er.Message)
		}
	}

	var raw []explorerTx
	if err := json.Unmarshal(er.Result, &raw); err != nil {
		return nil, unavailable(ErrNetworkFailure, "explorer decode result: %v", err)
	}

	cutoff := time.Time{}
	if windowDays > 0 {
		cutoff = s.Now().AddDate(0, 0, -windowDays)
	}
	txs := make([]model.Transaction, 0, len(raw))
	for _, r := range raw {
		if r.IsError == "1" {
			continue
		}
		tx, ok, err := decodeTx(address, r)
		if err != nil {
			return nil, unavailable(ErrNetworkFailure, "explorer decode tx: %v", err)
		}
		if !ok || tx.Timestamp.Before(cutoff) {
			continue
		}
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })
	return txs, nil
}

// decodeTx orients a raw transfer relative to the watched wallet. Transfers
// that do not touch the wallet, or that are self-transfers, are dropped.
func decodeTx(wallet string, r explorerTx) (model.Transaction, bool, error) {
	sec, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("bad timestamp %q: %w", r.TimeStamp, err)
	}
	wei, err := decimal.NewFromString(r.Value)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("bad value %q: %w", r.Value, err)
	}

	tx := model.Transaction{
		Hash:          r.Hash,
		WalletAddress: wallet,
		Amount:        wei.Shift(-nativeDecimals),
		Timestamp:     time.Unix(sec, 0).UTC(),
	}
	fromMe, toMe := SameAddress(r.From, wallet), SameAddress(r.To, wallet)
	switch {
	case toMe && !fromMe:
		tx.Direction = model.DirectionIn
		tx.Counterparty = r.From
	case fromMe && !toMe:
		tx.Direction = model.DirectionOut
		tx.Counterparty = r.To
	default:
		return model.Transaction{}, false, nil
	}
	return tx, true, nil
}

// SameAddress compares two addresses, ignoring hex checksum casing.
func SameAddress(a, b string) bool {
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}
