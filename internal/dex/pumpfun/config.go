// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Known PumpFun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Event authority for the Pump.fun protocol
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	// Metaplex token metadata program, owner of the metadata PDA created on launch
	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

const (
	// DefaultRentExemptReserve rent-exempt minimum of an SPL token account (165 bytes).
	DefaultRentExemptReserve uint64 = 2_039_280
	// DefaultLaunchRentReserve верхняя оценка ренты аккаунтов, создаваемых create
	// (минт, кривая, её ATA, метаданные Metaplex). Платит создатель.
	DefaultLaunchRentReserve uint64 = 25_000_000
	// LamportsPerSignature базовая комиссия за подпись.
	LamportsPerSignature uint64 = 5_000
	// DefaultLookupConcurrency параллельных запросов на кошельки при сборке батча.
	DefaultLookupConcurrency = 8
)

// Config holds the configuration for the Pump.fun program client
type Config struct {
	// Protocol addresses
	ContractAddress solana.PublicKey
	Global          solana.PublicKey
	EventAuthority  solana.PublicKey

	// Commitment для чтения Global, кривой и балансов
	Commitment rpc.CommitmentType

	// RentExemptReserve резерв под создание ATA при проверке баланса
	RentExemptReserve uint64

	// LaunchRentReserve резерв создателя под create при запуске
	LaunchRentReserve uint64

	// LookupConcurrency ограничение errgroup при опросе кошельков
	LookupConcurrency int

	// ProjectFills котировать каждый кошелёк по кривой после предыдущих покупок бандла
	ProjectFills bool
}

// GetDefaultConfig creates a default configuration for the Pump.fun program
func GetDefaultConfig() *Config {
	return &Config{
		ContractAddress:   PumpFunProgramID,
		EventAuthority:    PumpFunEventAuth,
		Commitment:        rpc.CommitmentConfirmed,
		RentExemptReserve: DefaultRentExemptReserve,
		LaunchRentReserve: DefaultLaunchRentReserve,
		LookupConcurrency: DefaultLookupConcurrency,
		ProjectFills:      true,
	}
}

// Setup fills derived addresses and missing defaults.
func (cfg *Config) Setup(logger *zap.Logger) error {
	if cfg.ContractAddress.IsZero() {
		cfg.ContractAddress = PumpFunProgramID
	}
	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority = PumpFunEventAuth
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.LaunchRentReserve == 0 {
		cfg.LaunchRentReserve = DefaultLaunchRentReserve
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = DefaultLookupConcurrency
	}

	var err error
	cfg.Global, _, err = solana.FindProgramAddress(
		[][]byte{[]byte("global")},
		cfg.ContractAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to derive global account: %w", err)
	}

	logger.Info("PumpFun configuration prepared",
		zap.String("program_id", cfg.ContractAddress.String()),
		zap.String("global_account", cfg.Global.String()),
		zap.String("event_authority", cfg.EventAuthority.String()),
		zap.String("commitment", string(cfg.Commitment)),
		zap.Bool("project_fills", cfg.ProjectFills))

	return nil
}

// MintAccounts адреса, производные от минта.
type MintAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
}

// DeriveMintAccounts вычисляет PDA кривой и её токен-аккаунт.
func (cfg *Config) DeriveMintAccounts(mint solana.PublicKey) (MintAccounts, error) {
	bondingCurve, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		cfg.ContractAddress,
	)
	if err != nil {
		return MintAccounts{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	associated, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return MintAccounts{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	return MintAccounts{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associated,
	}, nil
}

// MintAuthority PDA, которому программа передаёт mint authority при создании.
func (cfg *Config) MintAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("mint-authority")},
		cfg.ContractAddress,
	)
	return addr, err
}

// MetadataAccount PDA метаданных Metaplex для минта.
func MetadataAccount(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), MetadataProgramID.Bytes(), mint.Bytes()},
		MetadataProgramID,
	)
	return addr, err
}
