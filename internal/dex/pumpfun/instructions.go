// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	BuyDiscriminator    = anchorDiscriminator("global", "buy")
	SellDiscriminator   = anchorDiscriminator("global", "sell")
	CreateDiscriminator = anchorDiscriminator("global", "create")
)

// TradeAccounts адреса, общие для buy/sell одного минта.
type TradeAccounts struct {
	MintAccounts
	Global         solana.PublicKey
	FeeRecipient   solana.PublicKey
	EventAuthority solana.PublicKey
	Program        solana.PublicKey
}

// NewTradeAccounts собирает адреса сделки из конфигурации, Global и PDA минта.
func NewTradeAccounts(cfg *Config, global GlobalConfig, mint MintAccounts) TradeAccounts {
	return TradeAccounts{
		MintAccounts:   mint,
		Global:         cfg.Global,
		FeeRecipient:   global.FeeRecipient,
		EventAuthority: cfg.EventAuthority,
		Program:        cfg.ContractAddress,
	}
}

// BuildBuyInstruction builds a buy instruction: amount is the token amount,
// maxSolCost caps the lamports the program may take.
func BuildBuyInstruction(accounts TradeAccounts, user solana.PublicKey, amount, maxSolCost uint64) (solana.Instruction, error) {
	data, err := encodeTradeArgs(BuyDiscriminator, amount, maxSolCost)
	if err != nil {
		return nil, fmt.Errorf("failed to encode buy args: %w", err)
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program
	insAccounts := solana.AccountMetaSlice{
		solana.Meta(accounts.Global),
		solana.Meta(accounts.FeeRecipient).WRITE(),
		solana.Meta(accounts.Mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.AssociatedBondingCurve).WRITE(),
		solana.Meta(associatedUser).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(accounts.EventAuthority),
		solana.Meta(accounts.Program),
	}
	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// BuildSellInstruction builds a sell instruction: amount is the token amount,
// minSolOutput is the lowest acceptable lamport payout.
func BuildSellInstruction(accounts TradeAccounts, user solana.PublicKey, amount, minSolOutput uint64) (solana.Instruction, error) {
	data, err := encodeTradeArgs(SellDiscriminator, amount, minSolOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sell args: %w", err)
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// sell takes the associated token program where buy takes rent
	insAccounts := solana.AccountMetaSlice{
		solana.Meta(accounts.Global),
		solana.Meta(accounts.FeeRecipient).WRITE(),
		solana.Meta(accounts.Mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.AssociatedBondingCurve).WRITE(),
		solana.Meta(associatedUser).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(accounts.EventAuthority),
		solana.Meta(accounts.Program),
	}
	return solana.NewInstruction(accounts.Program, insAccounts, data), nil
}

// CreateParams аргументы инструкции create.
type CreateParams struct {
	Name   string
	Symbol string
	URI    string
}

// BuildCreateInstruction builds the token launch instruction. The mint key must sign.
func BuildCreateInstruction(cfg *Config, mint MintAccounts, creator solana.PublicKey, params CreateParams) (solana.Instruction, error) {
	mintAuthority, err := cfg.MintAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to derive mint authority: %w", err)
	}
	metadata, err := MetadataAccount(mint.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive metadata account: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(CreateDiscriminator[:], false); err != nil {
		return nil, err
	}
	for _, s := range []string{params.Name, params.Symbol, params.URI} {
		if err := writeBorshString(enc, s); err != nil {
			return nil, fmt.Errorf("failed to encode create args: %w", err)
		}
	}

	insAccounts := solana.AccountMetaSlice{
		solana.Meta(mint.Mint).WRITE().SIGNER(),
		solana.Meta(mintAuthority),
		solana.Meta(mint.BondingCurve).WRITE(),
		solana.Meta(mint.AssociatedBondingCurve).WRITE(),
		solana.Meta(cfg.Global),
		solana.Meta(MetadataProgramID),
		solana.Meta(metadata).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(cfg.EventAuthority),
		solana.Meta(cfg.ContractAddress),
	}
	return solana.NewInstruction(cfg.ContractAddress, insAccounts, buf.Bytes()), nil
}

// BuildCreateATAIdempotentInstruction creates owner's associated token account, paid by payer.
// Повторное создание существующего аккаунта не падает.
func BuildCreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to find associated token address: %w", err)
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(solana.TokenProgramID),
		},
		[]byte{1}, // 1 = create_idempotent
	), nil
}

func encodeTradeArgs(discriminator [8]byte, amount, limit uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(discriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.Encode(amount); err != nil {
		return nil, err
	}
	if err := enc.Encode(limit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBorshString u32 LE длина и байты строки.
func writeBorshString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}
