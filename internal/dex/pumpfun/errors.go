// =============================
// File: internal/dex/pumpfun/errors.go
// =============================
package pumpfun

import (
	"errors"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
)

var (
	// ErrMalformedAccount буфер аккаунта короче макета, с чужим дискриминатором
	// или нарушает инварианты кривой.
	ErrMalformedAccount = errors.New("malformed account data")
	// ErrCurveComplete кривая завершена, торговля на ней невозможна.
	ErrCurveComplete = errors.New("bonding curve is complete")
	// ErrInsufficientFunds у кошелька не хватает SOL на сделку, ренту ATA и комиссии.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrMissingState аккаунт Global или кривой отсутствует либо не инициализирован.
	ErrMissingState = errors.New("missing on-chain state")
	// ErrInsufficientLiquidity покупка превышает realTokenReserves.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidSlippage bps вне [0, 10000].
	ErrInvalidSlippage = types.ErrInvalidSlippage
	// ErrTransactionTooLarge сериализованная транзакция больше пакета.
	ErrTransactionTooLarge = errors.New("transaction exceeds packet size")
	// ErrBundleTooLarge транзакций больше, чем принимает релей.
	ErrBundleTooLarge = errors.New("bundle exceeds transaction limit")
	// ErrInvalidAmount нулевая сумма сделки.
	ErrInvalidAmount = errors.New("trade amount must be positive")
	// ErrNoEligibleWallets после проверок не осталось ни одного кошелька.
	ErrNoEligibleWallets = errors.New("no eligible wallets")
)
