package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"TaxSentinel/internal/calculator"
	"TaxSentinel/internal/collector"
	"TaxSentinel/internal/distribution"
	"TaxSentinel/internal/ecosystem"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Token is one monitored token.
type Token struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	TaxRate      float64       `yaml:"tax_rate"`
	DailyROI     float64       `yaml:"daily_roi"`
	SupplyValue  float64       `yaml:"supply_value"`
	Rewards      []string      `yaml:"rewards"`
	Distribution *Distribution `yaml:"distribution"`
}

// Distribution is a token's claimed tax split, keyed by recipient, as fractions.
type Distribution struct {
	Collectors []string           `yaml:"collectors"`
	Recipients map[string]float64 `yaml:"recipients"`
}

// Wallet is a watched on-chain wallet.
type Wallet struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
}

// Config holds all application configuration.
type Config struct {
	Ecosystem string   `yaml:"ecosystem"`
	Tokens    []Token  `yaml:"tokens"`
	Wallets   []Wallet `yaml:"wallets"`

	Thresholds struct {
		WindowDays                  int                       `yaml:"window_days"`
		Price                       calculator.DropThresholds `yaml:"price"`
		Volume                      calculator.DropThresholds `yaml:"volume"`
		VolumeSpikeMultiplier       float64                   `yaml:"volume_spike_multiplier"`
		LargeTransaction            string                    `yaml:"large_transaction"`
		SustainabilityCriticalRatio float64                   `yaml:"sustainability_critical_ratio"`
		DistributionTolerancePP     float64                   `yaml:"distribution_tolerance_pp"`
		SupplyEstimateMultiplier    float64                   `yaml:"supply_estimate_multiplier"`
		CollectionDays              int                       `yaml:"collection_days"`
	} `yaml:"thresholds"`
	Schedule struct {
		CheckCron   string `yaml:"check_cron"`
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	DataSource struct {
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		VsCurrency  string `yaml:"vs_currency"`
		Concurrency *int   `yaml:"concurrency"`
		Retries     *int   `yaml:"retries"`
		Mock        bool   `yaml:"mock"`
	} `yaml:"data_source"`
	Chain struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"chain"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Output struct {
		ReportDir string `yaml:"report_dir"`
		PlotDir   string `yaml:"plot_dir"`
		Plots     bool   `yaml:"plots"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`

	largeTx decimal.Decimal
}

// Load reads .env (if present) and the YAML file, then applies environment
// variable overrides and defaults. A missing config file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"COINGECKO_BASE_URL": &c.DataSource.BaseURL,
		"COINGECKO_API_KEY":  &c.DataSource.APIKey,
		"EXPLORER_BASE_URL":  &c.Chain.BaseURL,
		"EXPLORER_API_KEY":   &c.Chain.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"REDIS_ADDR":         &c.Cache.RedisAddr,
		"REDIS_PASSWORD":     &c.Cache.RedisPassword,
		"CHECK_CRON":         &c.Schedule.CheckCron,
		"REPORT_DIR":         &c.Output.ReportDir,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Thresholds.WindowDays = n
		}
	}
}

func (c *Config) applyDefaults() {
	t := &c.Thresholds
	if c.Ecosystem == "" {
		c.Ecosystem = "default"
	}
	if t.WindowDays == 0 {
		t.WindowDays = 30
	}
	if t.Price == (calculator.DropThresholds{}) {
		t.Price = calculator.DefaultPriceThresholds
	}
	if t.Volume == (calculator.DropThresholds{}) {
		t.Volume = calculator.DefaultVolumeThresholds
	}
	if t.VolumeSpikeMultiplier == 0 {
		t.VolumeSpikeMultiplier = 2
	}
	if t.LargeTransaction == "" {
		t.LargeTransaction = "0.05"
	}
	if t.SustainabilityCriticalRatio == 0 {
		t.SustainabilityCriticalRatio = 0.5
	}
	if t.DistributionTolerancePP == 0 {
		t.DistributionTolerancePP = distribution.DefaultTolerancePP
	}
	if t.SupplyEstimateMultiplier == 0 {
		t.SupplyEstimateMultiplier = 10
	}
	if t.CollectionDays == 0 {
		t.CollectionDays = 7
	}
	if c.Schedule.CheckCron == "" {
		c.Schedule.CheckCron = "0 0 * * * *"
	}
	if c.DataSource.VsCurrency == "" {
		c.DataSource.VsCurrency = "usd"
	}
	// Unset only; an explicit 0 disables retries or the concurrency limit.
	if c.DataSource.Concurrency == nil {
		c.DataSource.Concurrency = intPtr(4)
	}
	if c.DataSource.Retries == nil {
		c.DataSource.Retries = intPtr(3)
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Output.ReportDir == "" {
		c.Output.ReportDir = "reports"
	}
	if c.Output.PlotDir == "" {
		c.Output.PlotDir = "plots"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/tax_sentinel.db"
	}
	for i := range c.Tokens {
		if c.Tokens[i].Name == "" {
			c.Tokens[i].Name = c.Tokens[i].ID
		}
	}
}

// Validate checks the configuration and normalises wallet addresses to
// their checksummed form. It is called once after Load; the config is not
// modified afterwards.
func (c *Config) Validate() error {
	if len(c.Tokens) == 0 {
		return invalid("at least one token is required")
	}
	tokens := make(map[string]bool, len(c.Tokens))
	for _, tok := range c.Tokens {
		if tok.ID == "" {
			return invalid("token id is required")
		}
		if strings.ContainsAny(tok.ID, `/\`) || tok.ID == "." || tok.ID == ".." {
			return invalid("token id %q must not contain path separators", tok.ID)
		}
		if tokens[tok.ID] {
			return invalid("duplicate token %q", tok.ID)
		}
		tokens[tok.ID] = true
		if !isFraction(tok.TaxRate) {
			return invalid("token %s: tax_rate %v must be in [0,1]", tok.ID, tok.TaxRate)
		}
		if !isFraction(tok.DailyROI) {
			return invalid("token %s: daily_roi %v must be in [0,1]", tok.ID, tok.DailyROI)
		}
		if tok.SupplyValue < 0 || math.IsNaN(tok.SupplyValue) {
			return invalid("token %s: supply_value must be >= 0", tok.ID)
		}
	}

	wallets := make(map[string]bool, len(c.Wallets))
	for i := range c.Wallets {
		w := &c.Wallets[i]
		if w.Name == "" {
			return invalid("wallet name is required")
		}
		if wallets[w.Name] {
			return invalid("duplicate wallet %q", w.Name)
		}
		wallets[w.Name] = true
		if !common.IsHexAddress(w.Address) {
			return invalid("wallet %s: %q is not a valid address", w.Name, w.Address)
		}
		w.Address = common.HexToAddress(w.Address).Hex()
		if w.Token != "" && !tokens[w.Token] {
			return invalid("wallet %s: unknown token %q", w.Name, w.Token)
		}
	}

	for _, tok := range c.Tokens {
		if err := validateDistribution(tok, wallets); err != nil {
			return err
		}
	}

	t := c.Thresholds
	if t.WindowDays < 2 {
		return invalid("thresholds.window_days must be >= 2")
	}
	if err := t.Price.Validate(); err != nil {
		return invalid("thresholds.price: %v", err)
	}
	if err := t.Volume.Validate(); err != nil {
		return invalid("thresholds.volume: %v", err)
	}
	if t.DistributionTolerancePP <= 0 {
		return invalid("thresholds.distribution_tolerance_pp must be positive")
	}
	if t.SustainabilityCriticalRatio <= 0 || t.SustainabilityCriticalRatio > 1 {
		return invalid("thresholds.sustainability_critical_ratio must be in (0,1]")
	}
	large, err := decimal.NewFromString(t.LargeTransaction)
	if err != nil {
		return invalid("thresholds.large_transaction: %v", err)
	}
	if !large.IsPositive() {
		return invalid("thresholds.large_transaction must be positive")
	}
	c.largeTx = large

	if n := c.DataSource.Concurrency; n != nil && *n < 0 {
		return invalid("data_source.concurrency must be >= 0")
	}
	if n := c.DataSource.Retries; n != nil && *n < 0 {
		return invalid("data_source.retries must be >= 0")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return invalid("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

func validateDistribution(tok Token, wallets map[string]bool) error {
	d := tok.Distribution
	if d == nil {
		return nil
	}
	if len(d.Collectors) == 0 {
		return invalid("token %s: distribution needs at least one collector wallet", tok.ID)
	}
	for _, name := range d.Collectors {
		if !wallets[name] {
			return invalid("token %s: unknown collector wallet %q", tok.ID, name)
		}
	}
	sum := 0.0
	seen := make(map[string]bool, len(d.Recipients))
	for recipient, share := range d.Recipients {
		if strings.TrimSpace(recipient) == "" {
			return invalid("token %s: empty distribution recipient", tok.ID)
		}
		key := strings.ToLower(recipient)
		if seen[key] {
			return invalid("token %s: recipient %s listed more than once", tok.ID, recipient)
		}
		seen[key] = true
		if !isFraction(share) {
			return invalid("token %s: share of %s must be in [0,1]", tok.ID, recipient)
		}
		sum += share
	}
	if sum > 1+1e-9 {
		return invalid("token %s: distribution shares sum to %.4f > 1", tok.ID, sum)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func isFraction(v float64) bool {
	return v >= 0 && v <= 1
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Token returns the configured token with the given id.
func (c *Config) Token(id string) (Token, bool) {
	for _, t := range c.Tokens {
		if t.ID == id {
			return t, true
		}
	}
	return Token{}, false
}

// Settings returns the evaluation parameters. Call after Validate.
func (c *Config) Settings() ecosystem.Settings {
	t := c.Thresholds
	return ecosystem.Settings{
		Name:                        c.Ecosystem,
		WindowDays:                  t.WindowDays,
		Price:                       t.Price,
		Volume:                      t.Volume,
		SpikeMultiplier:             t.VolumeSpikeMultiplier,
		SustainabilityCriticalRatio: t.SustainabilityCriticalRatio,
		SupplyEstimateMultiplier:    t.SupplyEstimateMultiplier,
		LargeTransaction:            c.largeTx,
		DistributionTolerancePP:     t.DistributionTolerancePP,
		CollectionDays:              t.CollectionDays,
	}
}

// TokenSpecs returns the per-token evaluation inputs in config order.
func (c *Config) TokenSpecs() []ecosystem.TokenSpec {
	out := make([]ecosystem.TokenSpec, len(c.Tokens))
	for i, t := range c.Tokens {
		out[i] = ecosystem.TokenSpec{
			ID:          t.ID,
			Name:        t.Name,
			TaxRate:     t.TaxRate,
			DailyROI:    t.DailyROI,
			SupplyValue: t.SupplyValue,
			Rewards:     append([]string(nil), t.Rewards...),
		}
	}
	return out
}

// DistributionSpecs returns the claimed schedules of tokens that declare one.
func (c *Config) DistributionSpecs() []ecosystem.DistributionSpec {
	var out []ecosystem.DistributionSpec
	for _, t := range c.Tokens {
		if t.Distribution == nil {
			continue
		}
		claimed := make(distribution.Schedule, len(t.Distribution.Recipients))
		for r, share := range t.Distribution.Recipients {
			claimed[r] = share
		}
		out = append(out, ecosystem.DistributionSpec{
			TokenID:    t.ID,
			Claimed:    claimed,
			Collectors: append([]string(nil), t.Distribution.Collectors...),
		})
	}
	return out
}

// WalletTargets returns the watched wallets in config order.
func (c *Config) WalletTargets() []collector.WalletTarget {
	out := make([]collector.WalletTarget, len(c.Wallets))
	for i, w := range c.Wallets {
		out[i] = collector.WalletTarget{Name: w.Name, Address: w.Address, TokenID: w.Token}
	}
	return out
}
