package oracle

import (
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// supply and K both carry a 1e12 fraction and the quote is scaled by 1e5:
	// K/1e12 * (S/1e12)^2 * 1e5 == K*S^2 / 1e31.
	quadraticDivisor = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(31))
	// M carries a 1e6 fraction: M/1e6 * sqrt(V) * 1e5 == sqrt(M^2*V / 100).
	viewsDivisor = uint256.NewInt(100)
	floorPrice   = uint256.NewInt(FloorPrice)
)

// Quote breaks a price down into its terms. Each term is truncated toward zero
// independently before they are summed.
type Quote struct {
	ViewCount uint64
	Supply    uint64
	Params    PriceParams
	Quadratic uint64
	Views     uint64
	Raw       uint64
	Price     uint64
	Floored   bool
}

// Evaluate computes the full quote for the given inputs. Intermediates are held
// in 256 bits, so only the terms themselves can overflow the 64-bit result.
func Evaluate(viewCount, supply uint64, params PriceParams) (Quote, error) {
	q := Quote{ViewCount: viewCount, Supply: supply, Params: params}

	s := uint256.NewInt(supply)
	quadratic := new(uint256.Int).Mul(s, s)
	quadratic.Mul(quadratic, uint256.NewInt(params.K))
	quadratic.Div(quadratic, quadraticDivisor)

	m := uint256.NewInt(params.M)
	views := new(uint256.Int).Mul(m, m)
	views.Mul(views, uint256.NewInt(viewCount))
	views.Div(views, viewsDivisor)
	views.Sqrt(views)

	if !quadratic.IsUint64() {
		return q, fmt.Errorf("%w: quadratic term %s (supply=%d views=%d k=%d m=%d)",
			ErrPriceOverflow, quadratic.Dec(), supply, viewCount, params.K, params.M)
	}
	if !views.IsUint64() {
		return q, fmt.Errorf("%w: views term %s (supply=%d views=%d k=%d m=%d)",
			ErrPriceOverflow, views.Dec(), supply, viewCount, params.K, params.M)
	}
	q.Quadratic = quadratic.Uint64()
	q.Views = views.Uint64()

	raw := new(uint256.Int).Add(quadratic, views)
	if !raw.IsUint64() {
		return q, fmt.Errorf("%w: raw price %s (quadratic=%d views_term=%d supply=%d views=%d)",
			ErrPriceOverflow, raw.Dec(), q.Quadratic, q.Views, supply, viewCount)
	}
	q.Raw = raw.Uint64()
	if raw.Lt(floorPrice) {
		q.Price = FloorPrice
		q.Floored = true
	} else {
		q.Price = q.Raw
	}
	return q, nil
}

// CalculatePrice returns the price in base units per whole token for the given
// view count, circulating supply and coefficients.
func CalculatePrice(viewCount, supply uint64, params PriceParams) (uint64, error) {
	q, err := Evaluate(viewCount, supply, params)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}
