package pipeline

import (
	"math"

	"github.com/shopspring/decimal"

	"listingmatch/internal"
	"listingmatch/internal/util"
)

const DefaultOutlierStdDevs = 2.0

// PriceBand is mean ± k population standard deviations of a price group.
// Low and High are rounded for display; Contains decides membership exactly.
type PriceBand struct {
	Mean   decimal.Decimal
	StdDev decimal.Decimal
	Low    decimal.Decimal
	High   decimal.Decimal

	n      decimal.Decimal
	sum    decimal.Decimal
	spread decimal.Decimal // n·Σp² − (Σp)², i.e. n²·variance
	k2     decimal.Decimal
}

// Contains reports whether (price − mean)² <= k²·variance, scaled by n² so
// no division or square root is involved. Both edges are inclusive.
func (b PriceBand) Contains(price decimal.Decimal) bool {
	d := b.n.Mul(price).Sub(b.sum)
	return d.Mul(d).LessThanOrEqual(b.k2.Mul(b.spread))
}

// ComputePriceBand returns mean ± k population standard deviations of prices.
func ComputePriceBand(prices []decimal.Decimal, k float64) (PriceBand, error) {
	if len(prices) == 0 {
		return PriceBand{}, internal.ErrEmptyGroup
	}
	n := decimal.NewFromInt(int64(len(prices)))
	sum := decimal.Zero
	sumSq := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
		sumSq = sumSq.Add(p.Mul(p))
	}
	spread := n.Mul(sumSq).Sub(sum.Mul(sum))
	kd := decimal.NewFromFloat(k)

	mean := sum.DivRound(n, bandPrecision)
	stddev := sqrtDecimal(spread.DivRound(n.Mul(n), 2*bandPrecision))
	width := stddev.Mul(kd)
	return PriceBand{
		Mean:   mean,
		StdDev: stddev,
		Low:    mean.Sub(width).Round(bandPrecision),
		High:   mean.Add(width).Round(bandPrecision),
		n:      n,
		sum:    sum,
		spread: spread,
		k2:     kd.Mul(kd),
	}, nil
}

const bandPrecision = 16

// sqrtDecimal runs Newton's method from a float64 seed and rounds the result
// to bandPrecision places.
func sqrtDecimal(v decimal.Decimal) decimal.Decimal {
	if v.Sign() <= 0 {
		return decimal.Zero
	}
	f, _ := v.Float64()
	x := decimal.NewFromFloat(math.Sqrt(f))
	if x.Sign() <= 0 {
		x = v
	}
	two := decimal.NewFromInt(2)
	for i := 0; i < 64; i++ {
		next := x.Add(v.DivRound(x, 2*bandPrecision)).DivRound(two, 2*bandPrecision)
		if next.Equal(x) {
			break
		}
		x = next
	}
	return x.Round(bandPrecision)
}

// FilterOutliers keeps the listings whose price lies inside the band of k
// standard deviations around the group mean, bounds inclusive. Order is kept.
func FilterOutliers(listings []*internal.Listing, k float64) ([]*internal.Listing, error) {
	if len(listings) == 0 {
		return nil, internal.ErrEmptyGroup
	}
	prices := make([]decimal.Decimal, 0, len(listings))
	for _, l := range listings {
		p, err := util.ParsePrice(l.Price)
		if err != nil {
			return nil, &internal.PriceParseError{Title: l.Title, Price: l.Price, Err: err}
		}
		prices = append(prices, p)
	}

	band, err := ComputePriceBand(prices, k)
	if err != nil {
		return nil, err
	}

	out := make([]*internal.Listing, 0, len(listings))
	for i, l := range listings {
		if band.Contains(prices[i]) {
			out = append(out, l)
		}
	}
	return out, nil
}
