package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingmatch/internal"
	"listingmatch/internal/config"
)

func sp(v string) *string { return &v }

func cameraProducts() []*internal.Product {
	return []*internal.Product{
		{ProductName: "CanonPowerShotSX130IS", Manufacturer: "Canon", Model: "SX130 IS"},
		{ProductName: "Canon_IXUS_300_HS", Manufacturer: "Canon", Family: sp("IXUS"), Model: "300 HS"},
		{ProductName: "Canon_PowerShot_S90", Manufacturer: "Canon", Family: sp("PowerShot"), Model: "S90"},
		{ProductName: "Sony_Cyber-shot_DSC-W310", Manufacturer: "Sony", Family: sp("Cyber-shot"), Model: "DSC-W310"},
		{ProductName: "Nikon_Coolpix_S6100", Manufacturer: "Nikon", Family: sp("Coolpix"), Model: "S6100"},
		{ProductName: "Nikon_D90", Manufacturer: "Nikon", Model: "D90"},
	}
}

func match(m *Matcher, l *internal.Listing) internal.MatchOutcome {
	return m.Match(NormalizeListing(l))
}

func TestMatcherEndToEndExample(t *testing.T) {
	m := NewMatcher(config.Config{}, []*internal.Product{
		{ProductName: "CanonPowerShotSX130IS", Manufacturer: "Canon", Model: "SX130 IS"},
	})
	l := &internal.Listing{Title: "Canon PowerShot SX130IS 12.1 MP Digital Camera", Manufacturer: "Canon Canada", Price: "199.99", Currency: "USD"}

	out := match(m, l)
	require.True(t, out.Matched())
	assert.Equal(t, "canon", out.Manufacturer)
	assert.Equal(t, internal.NoFamily, out.Family)
	assert.Equal(t, "sx130is", out.Model)
	assert.Equal(t, "CanonPowerShotSX130IS", out.Product.ProductName)

	nikon := *l
	nikon.Manufacturer = "Nikon"
	assert.Equal(t, internal.StateNoMatch, match(m, &nikon).State)
}

func TestMatcherManufacturerGating(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())

	nikon := &internal.Listing{Title: "Canon PowerShot SX130IS 12.1 MP Digital Camera", Manufacturer: "Nikon", Price: "199.99"}
	out := match(m, nikon)
	assert.False(t, out.Matched())
	assert.Equal(t, internal.StateManufacturerMatched, out.State)

	unknown := &internal.Listing{Title: "Canon PowerShot SX130IS", Manufacturer: "Generic Accessories Ltd", Price: "9.99"}
	out = match(m, unknown)
	assert.False(t, out.Matched())
	assert.Equal(t, internal.StateNoMatch, out.State)
	assert.Nil(t, out.Product)

	empty := &internal.Listing{Title: "Canon PowerShot SX130IS", Price: "9.99"}
	assert.Equal(t, internal.StateNoMatch, match(m, empty).State)
}

func TestMatcherFamilyResolved(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())
	l := &internal.Listing{Title: "Sony Cyber-shot DSC-W310 12.1MP Digital Camera", Manufacturer: "Sony", Price: "89.99"}

	out := match(m, l)
	require.True(t, out.Matched())
	assert.Equal(t, "cybershot", out.Family)
	assert.Equal(t, "Sony_Cyber-shot_DSC-W310", out.Product.ProductName)
}

func TestMatcherFamilyOptional(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())
	l := &internal.Listing{Title: "Nikon S6100 16MP black", Manufacturer: "Nikon", Price: "179.00"}

	out := match(m, l)
	require.True(t, out.Matched())
	assert.Equal(t, "coolpix", out.Family)
	assert.Equal(t, "Nikon_Coolpix_S6100", out.Product.ProductName)
}

func TestMatcherResolvedFamilyDoesNotFallBack(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())
	l := &internal.Listing{Title: "Nikon Coolpix bundle with D90 lens cap", Manufacturer: "Nikon", Price: "20.00"}

	out := match(m, l)
	assert.False(t, out.Matched())
	assert.Equal(t, internal.StateFamilyMatched, out.State)
	assert.Equal(t, "coolpix", out.Family)
}

func TestMatcherModelNeedsWholeToken(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())
	l := &internal.Listing{Title: "Canon PowerShot S900 replacement strap", Manufacturer: "Canon", Price: "5.00"}

	assert.False(t, match(m, l).Matched())
}

func TestMatcherFirstFamilyWins(t *testing.T) {
	products := []*internal.Product{
		{ProductName: "first", Manufacturer: "Olympus", Family: sp("Stylus"), Model: "7040"},
		{ProductName: "second", Manufacturer: "Olympus", Family: sp("mju"), Model: "7040"},
	}
	m := NewMatcher(config.Config{}, products)

	out := match(m, &internal.Listing{Title: "Olympus 7040 silver", Manufacturer: "Olympus", Price: "150"})
	require.True(t, out.Matched())
	assert.Equal(t, "first", out.Product.ProductName)
}

func TestMatcherPreferLongestModel(t *testing.T) {
	products := []*internal.Product{
		{ProductName: "Canon_EOS_T1", Manufacturer: "Canon", Family: sp("EOS"), Model: "T1"},
		{ProductName: "Canon_Rebel_T1i", Manufacturer: "Canon", Family: sp("Rebel"), Model: "T1i"},
	}
	l := &internal.Listing{Title: "Canon T1 T1i kit", Manufacturer: "Canon", Price: "700"}

	firstHit := match(NewMatcher(config.Config{}, products), l)
	require.True(t, firstHit.Matched())
	assert.Equal(t, "Canon_EOS_T1", firstHit.Product.ProductName)

	longest := match(NewMatcher(config.Config{PreferLongestModel: true}, products), l)
	require.True(t, longest.Matched())
	assert.Equal(t, "Canon_Rebel_T1i", longest.Product.ProductName)
}

func TestMatchAllPartitionsListings(t *testing.T) {
	m := NewMatcher(config.Config{}, cameraProducts())
	listings := []*internal.Listing{
		{Title: "Canon SX130IS 12.1MP", Manufacturer: "Canon", Price: "199.99"},
		{Title: "Nikon D90 body", Manufacturer: "Nikon", Price: "599.00"},
		{Title: "Tripod", Manufacturer: "Manfrotto", Price: "49.00"},
		{Title: "Canon SX130-IS camera", Manufacturer: "Canon", Price: "189.00"},
		{Title: "Canon IXUS 300HS", Manufacturer: "Canon", Price: "249.00"},
	}

	result, dropped := m.MatchAll(NormalizeListings(listings))
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"CanonPowerShotSX130IS", "Nikon_D90", "Canon_IXUS_300_HS"}, result.Order)
	assert.Equal(t, []*internal.Listing{listings[0], listings[3]}, result.Listings["CanonPowerShotSX130IS"])

	seen := map[*internal.Listing]string{}
	for name, group := range result.Listings {
		for _, l := range group {
			prev, dup := seen[l]
			require.False(t, dup, "listing under %s and %s", prev, name)
			seen[l] = name
		}
	}
	assert.Len(t, seen, len(listings)-dropped)
}
