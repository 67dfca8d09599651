package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingmatch/internal"
)

func priced(prices ...string) []*internal.Listing {
	out := make([]*internal.Listing, 0, len(prices))
	for i, p := range prices {
		out = append(out, &internal.Listing{Title: "item " + string(rune('a'+i)), Price: p})
	}
	return out
}

func pricesOf(listings []*internal.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Price)
	}
	return out
}

func TestFilterOutliersSingleListingKept(t *testing.T) {
	in := priced("199.99")
	out, err := FilterOutliers(in, DefaultOutlierStdDevs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, in[0], out[0])
}

func TestFilterOutliersIdenticalPrices(t *testing.T) {
	out, err := FilterOutliers(priced("199.99", "199.99", "199.99"), DefaultOutlierStdDevs)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

// With five prices and population stddev no value can sit more than
// (n-1)/sqrt(n) ~ 1.79 deviations from the mean, so nothing is dropped.
func TestFilterOutliersSmallGroupKeepsAll(t *testing.T) {
	out, err := FilterOutliers(priced("100", "102", "98", "101", "5000"), DefaultOutlierStdDevs)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "102", "98", "101", "5000"}, pricesOf(out))
}

func TestFilterOutliersDropsAccessoryPrice(t *testing.T) {
	in := priced("100", "102", "98", "101", "99", "100", "103", "97", "100", "5000")
	out, err := FilterOutliers(in, DefaultOutlierStdDevs)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "102", "98", "101", "99", "100", "103", "97", "100"}, pricesOf(out))
}

func TestFilterOutliersDropsCheapPart(t *testing.T) {
	in := priced("499.00", "489.99", "510.00", "505.50", "495.00", "500.00", "502.00", "498.00", "12.99")
	out, err := FilterOutliers(in, DefaultOutlierStdDevs)
	require.NoError(t, err)
	assert.NotContains(t, pricesOf(out), "12.99")
	assert.Len(t, out, 8)
}

func TestPriceBandInclusive(t *testing.T) {
	prices := []decimal.Decimal{decimal.NewFromInt(90), decimal.NewFromInt(110)}
	band, err := ComputePriceBand(prices, 1)
	require.NoError(t, err)
	assert.True(t, band.Mean.Equal(decimal.NewFromInt(100)))
	assert.True(t, band.StdDev.Equal(decimal.NewFromInt(10)))
	assert.True(t, band.Contains(decimal.NewFromInt(90)), "low edge is inclusive")
	assert.True(t, band.Contains(decimal.NewFromInt(110)), "high edge is inclusive")
	assert.False(t, band.Contains(decimal.RequireFromString("110.01")))
}

// Four equal prices and one more put the last price exactly two population
// standard deviations above the mean.
func TestFilterOutliersKeepsPriceOnBandEdge(t *testing.T) {
	out, err := FilterOutliers(priced("0", "0", "0", "0", "12.37"), DefaultOutlierStdDevs)
	require.NoError(t, err)
	assert.Len(t, out, 5)

	band, err := ComputePriceBand([]decimal.Decimal{decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.RequireFromString("12.37")}, 2)
	require.NoError(t, err)
	assert.True(t, band.High.Equal(decimal.RequireFromString("12.37")), "high=%s", band.High)
	assert.True(t, band.StdDev.Equal(decimal.RequireFromString("4.948")), "sd=%s", band.StdDev)

	for x := 1; x <= 2000; x++ {
		edge := fmt.Sprintf("%d.37", x)
		out, err := FilterOutliers(priced("0", "0", "0", "0", edge), DefaultOutlierStdDevs)
		require.NoError(t, err)
		if len(out) != 5 {
			t.Fatalf("price %s on the band edge was dropped", edge)
		}
	}
}

func TestPriceBandExcludesJustPastEdge(t *testing.T) {
	band, err := ComputePriceBand([]decimal.Decimal{decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.RequireFromString("12.37")}, 2)
	require.NoError(t, err)
	assert.True(t, band.Contains(decimal.RequireFromString("12.37")))
	assert.False(t, band.Contains(decimal.RequireFromString("12.3700000001")))
	assert.False(t, band.Contains(decimal.RequireFromString("-7.4220000001")))
	assert.True(t, band.Contains(decimal.RequireFromString("-7.422")))
}

func TestFilterOutliersEmptyGroup(t *testing.T) {
	_, err := FilterOutliers(nil, DefaultOutlierStdDevs)
	assert.ErrorIs(t, err, internal.ErrEmptyGroup)
}

func TestFilterOutliersMalformedPrice(t *testing.T) {
	_, err := FilterOutliers(priced("100", "n/a"), DefaultOutlierStdDevs)
	var priceErr *internal.PriceParseError
	require.True(t, errors.As(err, &priceErr))
	assert.Equal(t, "n/a", priceErr.Price)
	assert.Equal(t, "item b", priceErr.Title)
}
