// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
)

type Config struct {
	RPCURL      string `mapstructure:"rpc_url"`
	RelayURL    string `mapstructure:"relay_url"`
	RelayAuth   string `mapstructure:"relay_auth"`
	Commitment  string `mapstructure:"commitment"`
	WalletsFile string `mapstructure:"wallets_file"`

	GroupSize     int    `mapstructure:"group_size"`
	PriorityLevel string `mapstructure:"priority_level"`
	ComputeUnits  uint32 `mapstructure:"compute_units"`
	PriorityFee   uint64 `mapstructure:"priority_fee"`
	TipLamports   uint64 `mapstructure:"tip_lamports"`
	TipAccount    string `mapstructure:"tip_account"`

	SlippageBps       uint64 `mapstructure:"slippage_bps"`
	RentExemptReserve uint64 `mapstructure:"rent_exempt_reserve"`
	LookupConcurrency int    `mapstructure:"lookup_concurrency"`
	ProjectFills      bool   `mapstructure:"project_fills"`

	RetryMaxAttempts     uint          `mapstructure:"retry_max_attempts"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	RetryMultiplier      float64       `mapstructure:"retry_multiplier"`
	SubmitTimeout        time.Duration `mapstructure:"submit_timeout"`
	WaitForInclusion     bool          `mapstructure:"wait_for_inclusion"`
	InclusionTimeout     time.Duration `mapstructure:"inclusion_timeout"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

const (
	EnvPrefix = "PUMPBUNDLE"

	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultRelayURL          = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"
	DefaultCommitment        = "confirmed"
	DefaultWalletsFile       = "configs/wallets.yaml"
	DefaultGroupSize         = 4
	DefaultComputeUnits      = 200_000
	DefaultPriorityFee       = 100_000
	DefaultTipLamports       = 5_000_000
	DefaultSlippageBps       = 500
	DefaultRentExemptReserve = 2_039_280
	DefaultLookupConcurrency = 8
	DefaultSubmitTimeout     = 10 * time.Second
	DefaultInclusionTimeout  = 30 * time.Second
	DefaultLogFile           = "logs/pumpbundle.log"

	maxBasisPoints = 10_000
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                DefaultRPCURL,
		"relay_url":              DefaultRelayURL,
		"relay_auth":             "",
		"commitment":             DefaultCommitment,
		"wallets_file":           DefaultWalletsFile,
		"group_size":             DefaultGroupSize,
		"priority_level":         string(types.PriorityCustom),
		"compute_units":          DefaultComputeUnits,
		"priority_fee":           DefaultPriorityFee,
		"tip_lamports":           DefaultTipLamports,
		"tip_account":            "",
		"slippage_bps":           DefaultSlippageBps,
		"rent_exempt_reserve":    DefaultRentExemptReserve,
		"lookup_concurrency":     DefaultLookupConcurrency,
		"project_fills":          true,
		"retry_max_attempts":     0,
		"retry_initial_interval": time.Duration(0),
		"retry_max_interval":     time.Duration(0),
		"retry_multiplier":       0.0,
		"submit_timeout":         DefaultSubmitTimeout,
		"wait_for_inclusion":     false,
		"inclusion_timeout":      DefaultInclusionTimeout,
		"debug_logging":          false,
		"log_file":               DefaultLogFile,
		"metrics_addr":           "",
	}
}

// LoadConfig читает файл конфигурации (JSON/YAML) поверх значений по умолчанию.
// Переменные окружения PUMPBUNDLE_<KEY> перекрывают файл. Пустой path: только defaults и env.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if err := validateURLWithCache(cfg.RelayURL, "http"); err != nil {
		return fmt.Errorf("invalid relay_url: %w", err)
	}
	if _, err := cfg.CommitmentType(); err != nil {
		return err
	}
	if cfg.TipAccount != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.TipAccount); err != nil {
			return fmt.Errorf("invalid tip_account: %w", err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	switch types.PriorityLevel(cfg.PriorityLevel) {
	case types.PriorityLow, types.PriorityMedium, types.PriorityHigh, types.PriorityExtreme, types.PriorityCustom:
	default:
		return fmt.Errorf("invalid priority_level %q", cfg.PriorityLevel)
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.GroupSize < 1 {
		return errors.New("invalid group_size")
	}
	if cfg.SlippageBps > maxBasisPoints {
		return errors.New("slippage_bps must be within [0, 10000]")
	}
	if cfg.LookupConcurrency < 1 {
		return errors.New("invalid lookup_concurrency")
	}
	if cfg.RetryInitialInterval < 0 || cfg.RetryMaxInterval < 0 {
		return errors.New("retry intervals must not be negative")
	}
	if cfg.RetryMultiplier != 0 && cfg.RetryMultiplier < 1 {
		return errors.New("retry_multiplier must be >= 1")
	}
	if cfg.SubmitTimeout <= 0 {
		return errors.New("invalid submit_timeout")
	}
	if cfg.WaitForInclusion && cfg.InclusionTimeout <= 0 {
		return errors.New("inclusion_timeout is required with wait_for_inclusion")
	}
	return nil
}

// CommitmentType переводит строку конфигурации в уровень подтверждения RPC.
func (c *Config) CommitmentType() (rpc.CommitmentType, error) {
	switch strings.ToLower(c.Commitment) {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("invalid commitment %q", c.Commitment)
	}
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
