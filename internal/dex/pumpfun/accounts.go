// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	globalAccountSize       = 8 + 1 + 32 + 32 + 5*8
	bondingCurveAccountSize = 8 + 5*8 + 1
)

var (
	GlobalAccountDiscriminator       = anchorDiscriminator("account", "Global")
	BondingCurveAccountDiscriminator = anchorDiscriminator("account", "BondingCurve")
)

// ChainReader читает сырые данные аккаунтов и балансы.
// GetAccountData возвращает (nil, nil), если аккаунта нет.
type ChainReader interface {
	GetAccountData(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) ([]byte, error)
	GetBalance(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
}

// AccountLookup проверяет наличие ассоциированного токен-аккаунта owner для mint.
type AccountLookup interface {
	AccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error)
}

// anchorDiscriminator sha256("<namespace>:<name>")[:8]
func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// DecodeGlobalConfig decodes the global account layout.
func DecodeGlobalConfig(data []byte) (GlobalConfig, error) {
	if len(data) < globalAccountSize {
		return GlobalConfig{}, fmt.Errorf("%w: global account is %d bytes, need %d",
			ErrMalformedAccount, len(data), globalAccountSize)
	}

	var account GlobalConfig
	if err := account.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return GlobalConfig{}, fmt.Errorf("%w: %v", ErrMalformedAccount, err)
	}
	if account.Discriminator != GlobalAccountDiscriminator {
		return GlobalConfig{}, fmt.Errorf("%w: unexpected global discriminator %x",
			ErrMalformedAccount, account.Discriminator)
	}
	return account, nil
}

// DecodeBondingCurve decodes a bonding curve account and checks its reserve invariants.
func DecodeBondingCurve(data []byte) (BondingCurveState, error) {
	if len(data) < bondingCurveAccountSize {
		return BondingCurveState{}, fmt.Errorf("%w: bonding curve is %d bytes, need %d",
			ErrMalformedAccount, len(data), bondingCurveAccountSize)
	}

	var curve BondingCurveState
	if err := curve.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return BondingCurveState{}, fmt.Errorf("%w: %v", ErrMalformedAccount, err)
	}
	if curve.Discriminator != BondingCurveAccountDiscriminator {
		return BondingCurveState{}, fmt.Errorf("%w: unexpected bonding curve discriminator %x",
			ErrMalformedAccount, curve.Discriminator)
	}
	if !curve.Complete && (curve.VirtualTokenReserves == 0 || curve.VirtualSolReserves == 0) {
		return BondingCurveState{}, fmt.Errorf("%w: active curve with empty virtual reserves", ErrMalformedAccount)
	}
	if curve.RealSolReserves > curve.VirtualSolReserves {
		return BondingCurveState{}, fmt.Errorf("%w: real sol reserves %d exceed virtual %d",
			ErrMalformedAccount, curve.RealSolReserves, curve.VirtualSolReserves)
	}
	return curve, nil
}

// EncodeGlobalConfig produces the on-chain layout, discriminator included.
func EncodeGlobalConfig(account GlobalConfig) ([]byte, error) {
	account.Discriminator = GlobalAccountDiscriminator
	buf := new(bytes.Buffer)
	if err := account.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode global account: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBondingCurve produces the on-chain layout, discriminator included.
func EncodeBondingCurve(curve BondingCurveState) ([]byte, error) {
	curve.Discriminator = BondingCurveAccountDiscriminator
	buf := new(bytes.Buffer)
	if err := curve.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode bonding curve: %w", err)
	}
	return buf.Bytes(), nil
}

// FetchGlobalConfig fetches and decodes the global account.
func FetchGlobalConfig(ctx context.Context, reader ChainReader, cfg *Config) (GlobalConfig, error) {
	data, err := reader.GetAccountData(ctx, cfg.Global, cfg.Commitment)
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("failed to get global account: %w", err)
	}
	if data == nil {
		return GlobalConfig{}, fmt.Errorf("%w: global account %s not found", ErrMissingState, cfg.Global)
	}

	account, err := DecodeGlobalConfig(data)
	if err != nil {
		return GlobalConfig{}, err
	}
	if !account.Initialized {
		return GlobalConfig{}, fmt.Errorf("%w: global account is not initialized", ErrMissingState)
	}
	return account, nil
}

// FetchBondingCurve fetches and decodes the bonding curve of a mint.
func FetchBondingCurve(ctx context.Context, reader ChainReader, cfg *Config, accounts MintAccounts) (BondingCurveState, error) {
	data, err := reader.GetAccountData(ctx, accounts.BondingCurve, cfg.Commitment)
	if err != nil {
		return BondingCurveState{}, fmt.Errorf("failed to get bonding curve account: %w", err)
	}
	if data == nil {
		return BondingCurveState{}, fmt.Errorf("%w: bonding curve %s for mint %s not found",
			ErrMissingState, accounts.BondingCurve, accounts.Mint)
	}
	return DecodeBondingCurve(data)
}
