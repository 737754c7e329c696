// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	// Сырые данные аккаунта, nil если аккаунта нет.
	GetAccountData(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) ([]byte, error)
	// Получить баланс аккаунта.
	GetBalance(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// Существует ли ATA владельца для минта.
	AccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error)
	// Логи выполненной транзакции.
	GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error)
}
