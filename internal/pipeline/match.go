package pipeline

import (
	"listingmatch/internal"
	"listingmatch/internal/catalog"
	"listingmatch/internal/config"
)

type Matcher struct {
	cfg   config.Config
	index *catalog.Catalogue
}

func NewMatcher(cfg config.Config, products []*internal.Product) *Matcher {
	return &Matcher{cfg: cfg, index: catalog.BuildIndex(products)}
}

func NewMatcherFromCatalogue(cfg config.Config, index *catalog.Catalogue) *Matcher {
	return &Matcher{cfg: cfg, index: index}
}

// Match walks manufacturer, family and model for one listing. A miss at the
// manufacturer level ends the search; an unresolved family falls back to
// scanning every family of the manufacturer in catalogue order.
func (m *Matcher) Match(item NormalizedListing) internal.MatchOutcome {
	out := internal.MatchOutcome{State: internal.StateNoMatch}

	manu, ok := catalog.Search(item.ManufacturerNorm, m.index.Manufacturers())
	if !ok {
		return out
	}
	out.State = internal.StateManufacturerMatched
	out.Manufacturer = manu

	families := m.index.Families(manu)
	if family, ok := catalog.Search(item.TitleNorm, families); ok {
		out.State = internal.StateFamilyMatched
		out.Family = family
		families = []string{family}
	}

	family, model, ok := m.searchModel(item.TitleTokens, manu, families)
	if !ok {
		// Listing is dropped; the state records how far resolution got.
		return out
	}

	out.State = internal.StateModelMatched
	out.Family = family
	out.Model = model
	out.Product = m.index.Product(manu, family, model)
	return out
}

func (m *Matcher) searchModel(tokens map[string]struct{}, manu string, families []string) (string, string, bool) {
	if !m.cfg.PreferLongestModel {
		for _, family := range families {
			if model, ok := m.index.SearchModel(tokens, manu, family); ok {
				return family, model, true
			}
		}
		return "", "", false
	}

	bestFamily, bestModel := "", ""
	for _, family := range families {
		if model, ok := m.index.SearchLongestModel(tokens, manu, family); ok && len(model) > len(bestModel) {
			bestFamily, bestModel = family, model
		}
	}
	return bestFamily, bestModel, bestModel != ""
}

// MatchAll runs Match over listings in order and groups the hits by product.
func (m *Matcher) MatchAll(items []NormalizedListing) (*internal.MatchResult, int) {
	result := internal.NewMatchResult()
	dropped := 0
	for _, item := range items {
		outcome := m.Match(item)
		if !outcome.Matched() {
			dropped++
			continue
		}
		result.Append(outcome.Product.ProductName, item.Listing)
	}
	return result, dropped
}
