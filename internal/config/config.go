// Package config loads the processor's configuration from environment
// variables, grounded on the teacher's pkg/config (viper + a single
// package-level AppConfig struct), adapted to spec §6's nested
// ACCOUNTS__<key>__{...} environment layout instead of YAML files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AccountConfig describes one sending account configured for the processor.
type AccountConfig struct {
	Name            string `mapstructure:"name"`
	ViewKey         string `mapstructure:"view_key"`
	PublicSpendKey  string `mapstructure:"public_spend_key"`
}

// WorkerIntervals holds the per-worker poll intervals, each with the
// default called out in spec §2/§5.
type WorkerIntervals struct {
	BatchCreator          time.Duration
	UnsignedTxCreator     time.Duration
	TransactionSigner     time.Duration
	Broadcaster           time.Duration
	ConfirmationChecker   time.Duration
}

// Config is the single process-wide configuration record, read once at
// startup (spec §9 "Global process-wide state").
type Config struct {
	ListenAddress string

	DatabaseURL   string
	FundsAPIURL   string
	BaseNodeURL   string

	SignerExecutablePath string
	SignerBasePath       string
	SignerPassword       string
	Network              string

	Accounts map[string]AccountConfig

	MaxBatchSize        int
	MaxInputCountPerTx  int
	FeePerGram          int64
	RequiredConfirmations int

	Intervals WorkerIntervals

	RevealPII bool
}

const (
	defaultMaxBatchSize          = 100
	defaultMaxInputCountPerTx    = 500
	defaultFeePerGram            = 5
	defaultRequiredConfirmations = 10
)

// Load reads configuration from the environment (and an optional .env
// file for local development, matching the teacher's walletserver
// config loading). Missing required values produce an error rather than
// a zero-value Config.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDRESS", ":8080")
	v.SetDefault("MAX_BATCH_SIZE", defaultMaxBatchSize)
	v.SetDefault("MAX_INPUT_COUNT_PER_TX", defaultMaxInputCountPerTx)
	v.SetDefault("FEE_PER_GRAM", defaultFeePerGram)
	v.SetDefault("REQUIRED_CONFIRMATIONS", defaultRequiredConfirmations)
	v.SetDefault("BATCH_CREATOR_SLEEP_SECS", 600)
	v.SetDefault("UNSIGNED_TX_CREATOR_SLEEP_SECS", 15)
	v.SetDefault("TRANSACTION_SIGNER_SLEEP_SECS", 10)
	v.SetDefault("BROADCASTER_SLEEP_SECS", 15)
	v.SetDefault("CONFIRMATION_CHECKER_SLEEP_SECS", 60)

	cfg := &Config{
		ListenAddress:         v.GetString("LISTEN_ADDRESS"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		FundsAPIURL:           v.GetString("FUNDS_API_URL"),
		BaseNodeURL:           v.GetString("BASE_NODE_URL"),
		SignerExecutablePath:  v.GetString("SIGNER_EXECUTABLE_PATH"),
		SignerBasePath:        v.GetString("SIGNER_BASE_PATH"),
		SignerPassword:        v.GetString("SIGNER_PASSWORD"),
		Network:               v.GetString("NETWORK"),
		MaxBatchSize:          v.GetInt("MAX_BATCH_SIZE"),
		MaxInputCountPerTx:    v.GetInt("MAX_INPUT_COUNT_PER_TX"),
		FeePerGram:            v.GetInt64("FEE_PER_GRAM"),
		RequiredConfirmations: v.GetInt("REQUIRED_CONFIRMATIONS"),
		RevealPII:             v.GetBool("REVEAL_PII"),
		Intervals: WorkerIntervals{
			BatchCreator:        time.Duration(v.GetInt64("BATCH_CREATOR_SLEEP_SECS")) * time.Second,
			UnsignedTxCreator:   time.Duration(v.GetInt64("UNSIGNED_TX_CREATOR_SLEEP_SECS")) * time.Second,
			TransactionSigner:   time.Duration(v.GetInt64("TRANSACTION_SIGNER_SLEEP_SECS")) * time.Second,
			Broadcaster:         time.Duration(v.GetInt64("BROADCASTER_SLEEP_SECS")) * time.Second,
			ConfirmationChecker: time.Duration(v.GetInt64("CONFIRMATION_CHECKER_SLEEP_SECS")) * time.Second,
		},
	}

	accounts, err := loadAccounts(v)
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAccounts parses ACCOUNTS__<key>__{NAME,VIEW_KEY,PUBLIC_SPEND_KEY}
// style environment variables into a map keyed by <key>.
func loadAccounts(v *viper.Viper) (map[string]AccountConfig, error) {
	accounts := make(map[string]AccountConfig)
	for _, env := range allEnviron() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if !strings.HasPrefix(key, "ACCOUNTS__") {
			continue
		}
		rest := strings.TrimPrefix(key, "ACCOUNTS__")
		fields := strings.SplitN(rest, "__", 2)
		if len(fields) != 2 {
			continue
		}
		accountKey, field := fields[0], fields[1]
		acc := accounts[accountKey]
		switch strings.ToUpper(field) {
		case "NAME":
			acc.Name = value
		case "VIEW_KEY":
			acc.ViewKey = value
		case "PUBLIC_SPEND_KEY":
			acc.PublicSpendKey = value
		}
		accounts[accountKey] = acc
	}
	return accounts, nil
}

func (c *Config) validate() error {
	missing := []string{}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.FundsAPIURL == "" {
		missing = append(missing, "FUNDS_API_URL")
	}
	if c.BaseNodeURL == "" {
		missing = append(missing, "BASE_NODE_URL")
	}
	if c.SignerExecutablePath == "" {
		missing = append(missing, "SIGNER_EXECUTABLE_PATH")
	}
	if c.SignerBasePath == "" {
		missing = append(missing, "SIGNER_BASE_PATH")
	}
	if c.SignerPassword == "" {
		missing = append(missing, "SIGNER_PASSWORD")
	}
	if c.Network == "" {
		missing = append(missing, "NETWORK")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AccountExists reports whether accountName is a configured account.
func (c *Config) AccountExists(accountName string) bool {
	_, ok := c.AccountByName(accountName)
	return ok
}

// AccountByName returns the configured account matching accountName.
func (c *Config) AccountByName(accountName string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == accountName {
			return a, true
		}
	}
	return AccountConfig{}, false
}
