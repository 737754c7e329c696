// internal/dex/pumpfun/token_calc.go
package pumpfun

import (
	"fmt"
	"math"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/wide"
)

const (
	// Стандартные десятичные знаки для SOL и токенов Pump.fun
	solDecimals   = 9
	tokenDecimals = 6
)

// QuoteBuy рассчитывает количество токенов за solIn лампортов:
// vT - floor(vT*vS / (vS+solIn)). Все произведения резервов считаются в 128 битах.
func QuoteBuy(curve BondingCurveState, solIn uint64) (uint64, error) {
	if curve.Complete {
		return 0, ErrCurveComplete
	}

	denominator, err := wide.Add(curve.VirtualSolReserves, solIn)
	if err != nil {
		return 0, fmt.Errorf("buy of %d lamports: %w", solIn, err)
	}
	remaining, err := wide.MulDiv(curve.VirtualTokenReserves, curve.VirtualSolReserves, denominator)
	if err != nil {
		return 0, fmt.Errorf("buy of %d lamports: %w", solIn, err)
	}

	tokensOut := curve.VirtualTokenReserves - remaining
	if tokensOut > curve.RealTokenReserves {
		return 0, fmt.Errorf("%w: buy needs %d tokens, curve holds %d",
			ErrInsufficientLiquidity, tokensOut, curve.RealTokenReserves)
	}
	return tokensOut, nil
}

// QuoteSell рассчитывает чистый выход в лампортах за tokensIn токенов с учётом комиссии.
func QuoteSell(curve BondingCurveState, tokensIn, feeBps uint64) (uint64, error) {
	gross, fee, err := sellBreakdown(curve, tokensIn, feeBps)
	if err != nil {
		return 0, err
	}
	return gross - fee, nil
}

// sellBreakdown возвращает валовый выход floor(vS*tokensIn/(vT+tokensIn)) и комиссию с него.
func sellBreakdown(curve BondingCurveState, tokensIn, feeBps uint64) (gross, fee uint64, err error) {
	if curve.Complete {
		return 0, 0, ErrCurveComplete
	}
	if feeBps > types.BasisPointsDenominator {
		return 0, 0, fmt.Errorf("fee of %d bps exceeds 100%%", feeBps)
	}

	denominator, err := wide.Add(curve.VirtualTokenReserves, tokensIn)
	if err != nil {
		return 0, 0, fmt.Errorf("sell of %d tokens: %w", tokensIn, err)
	}
	if gross, err = wide.MulDiv(curve.VirtualSolReserves, tokensIn, denominator); err != nil {
		return 0, 0, fmt.Errorf("sell of %d tokens: %w", tokensIn, err)
	}
	if fee, err = wide.MulDiv(gross, feeBps, types.BasisPointsDenominator); err != nil {
		return 0, 0, fmt.Errorf("sell fee: %w", err)
	}
	return gross, fee, nil
}

// Quote считает сделку и её слиппедж-лимит.
// Для покупки amount в лампортах, для продажи в токенах.
func Quote(side types.TradeSide, curve BondingCurveState, amount, slippageBps, feeBps uint64) (types.TradeQuote, error) {
	if amount == 0 {
		return types.TradeQuote{}, ErrInvalidAmount
	}
	quote := types.TradeQuote{Side: side, InputAmount: amount}

	switch side {
	case types.SideBuy:
		tokensOut, err := QuoteBuy(curve, amount)
		if err != nil {
			return types.TradeQuote{}, err
		}
		limit, err := types.CalcBuyLimit(amount, slippageBps)
		if err != nil {
			return types.TradeQuote{}, err
		}
		quote.OutputAmount, quote.LimitAmount = tokensOut, limit

	case types.SideSell:
		solOut, err := QuoteSell(curve, amount, feeBps)
		if err != nil {
			return types.TradeQuote{}, err
		}
		limit, err := types.CalcSellLimit(solOut, slippageBps)
		if err != nil {
			return types.TradeQuote{}, err
		}
		quote.OutputAmount, quote.LimitAmount = solOut, limit

	default:
		return types.TradeQuote{}, fmt.Errorf("unknown trade side %q", side)
	}

	return quote, nil
}

// InitialCurve кривая только что созданного токена по начальным резервам из Global.
func InitialCurve(global GlobalConfig) BondingCurveState {
	return BondingCurveState{
		Discriminator:        BondingCurveAccountDiscriminator,
		VirtualTokenReserves: global.InitialVirtualTokenReserves,
		VirtualSolReserves:   global.InitialVirtualSolReserves,
		RealTokenReserves:    global.InitialRealTokenReserves,
		TokenTotalSupply:     global.TokenTotalSupply,
	}
}

// SpotPrice текущая цена токена в SOL по отношению виртуальных резервов.
func SpotPrice(curve BondingCurveState) float64 {
	if curve.VirtualTokenReserves == 0 {
		return 0
	}
	sol := float64(curve.VirtualSolReserves) / math.Pow10(solDecimals)
	tokens := float64(curve.VirtualTokenReserves) / math.Pow10(tokenDecimals)
	return sol / tokens
}
