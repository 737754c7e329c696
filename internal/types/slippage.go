// internal/types/slippage.go
package types

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/pumpbundle/internal/utils/wide"
)

// BasisPointsDenominator соответствует 100%.
const BasisPointsDenominator = 10_000

// ErrInvalidSlippage возвращается для bps вне диапазона [0, 10000].
var ErrInvalidSlippage = errors.New("invalid slippage basis points")

// CalcBuyLimit возвращает максимальную стоимость покупки: ceil(x*(10000+bps)/10000).
func CalcBuyLimit(x uint64, bps uint64) (uint64, error) {
	if bps > BasisPointsDenominator {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlippage, bps)
	}
	limit, err := wide.MulDivCeil(x, BasisPointsDenominator+bps, BasisPointsDenominator)
	if err != nil {
		return 0, fmt.Errorf("buy limit for %d at %d bps: %w", x, bps, err)
	}
	return limit, nil
}

// CalcSellLimit возвращает минимальный выход продажи: floor(x*(10000-bps)/10000).
func CalcSellLimit(x uint64, bps uint64) (uint64, error) {
	if bps > BasisPointsDenominator {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlippage, bps)
	}
	limit, err := wide.MulDiv(x, BasisPointsDenominator-bps, BasisPointsDenominator)
	if err != nil {
		return 0, fmt.Errorf("sell limit for %d at %d bps: %w", x, bps, err)
	}
	return limit, nil
}
