package purchase

import (
	"fmt"

	"github.com/holiman/uint256"
)

var (
	feeNumerator   = uint256.NewInt(PlatformFeeNumerator)
	feeDenominator = uint256.NewInt(PlatformFeeDenominator)
	unitsPerToken  = uint256.NewInt(UnitsPerToken)
	roundUp        = uint256.NewInt(UnitsPerToken - 1)
)

// SplitFee divides total into the treasury fee, truncated toward zero, and the
// vault share. fee + net == total for every input.
func SplitFee(total uint64) (fee, net uint64) {
	product := new(uint256.Int).Mul(uint256.NewInt(total), feeNumerator)
	fee = product.Div(product, feeDenominator).Uint64()
	return fee, total - fee
}

// TotalCost returns the cost in base units of amount units at price, where
// price is quoted per whole token. Fractions of a base unit round up so that
// splitting a buy never undercuts the quoted price.
func TotalCost(price, amount uint64) (uint64, error) {
	cost := new(uint256.Int).Mul(uint256.NewInt(price), uint256.NewInt(amount))
	cost.Add(cost, roundUp)
	cost.Div(cost, unitsPerToken)
	if !cost.IsUint64() {
		return 0, fmt.Errorf("%w: price %d, amount %d", ErrCostOverflow, price, amount)
	}
	return cost.Uint64(), nil
}
