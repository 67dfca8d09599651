package catalog

import (
	"strings"

	"listingmatch/internal"
	"listingmatch/internal/util"
)

type familyNode struct {
	modelKeys []string
	models    map[string]*internal.Product
}

type manufacturerNode struct {
	familyKeys []string
	families   map[string]*familyNode
}

// Catalogue indexes products by normalized manufacturer, family and model.
// Keys at every level are kept in insertion order so first-hit searches are
// reproducible.
type Catalogue struct {
	manufacturerKeys []string
	manufacturers    map[string]*manufacturerNode
	size             int
}

func New() *Catalogue {
	return &Catalogue{manufacturers: map[string]*manufacturerNode{}}
}

func BuildIndex(products []*internal.Product) *Catalogue {
	c := New()
	for _, p := range products {
		c.Insert(p)
	}
	return c
}

// NormalizeProduct fills the derived lookup keys of p.
func NormalizeProduct(p *internal.Product) {
	p.ManufacturerNorm = util.Normalize(p.Manufacturer)
	p.ModelNorm = util.Normalize(p.Model)
	p.FamilyNorm = internal.NoFamily
	if p.Family != nil {
		if f := util.Normalize(*p.Family); f != "" {
			p.FamilyNorm = f
		}
	}
}

// Insert adds p under its normalized keys. It reports false when the
// manufacturer or model key is empty, or when the triple is already taken;
// the first product inserted for a triple wins.
func (c *Catalogue) Insert(p *internal.Product) bool {
	NormalizeProduct(p)
	if p.ManufacturerNorm == "" || p.ModelNorm == "" {
		return false
	}

	manu, ok := c.manufacturers[p.ManufacturerNorm]
	if !ok {
		manu = &manufacturerNode{families: map[string]*familyNode{}}
		c.manufacturers[p.ManufacturerNorm] = manu
		c.manufacturerKeys = append(c.manufacturerKeys, p.ManufacturerNorm)
	}

	fam, ok := manu.families[p.FamilyNorm]
	if !ok {
		fam = &familyNode{models: map[string]*internal.Product{}}
		manu.families[p.FamilyNorm] = fam
		manu.familyKeys = append(manu.familyKeys, p.FamilyNorm)
	}

	if _, ok := fam.models[p.ModelNorm]; ok {
		return false
	}
	fam.models[p.ModelNorm] = p
	fam.modelKeys = append(fam.modelKeys, p.ModelNorm)
	c.size++
	return true
}

func (c *Catalogue) Len() int { return c.size }

func (c *Catalogue) Manufacturers() []string {
	return c.manufacturerKeys
}

func (c *Catalogue) Families(manufacturer string) []string {
	manu, ok := c.manufacturers[manufacturer]
	if !ok {
		return nil
	}
	return manu.familyKeys
}

func (c *Catalogue) Models(manufacturer, family string) []string {
	fam := c.family(manufacturer, family)
	if fam == nil {
		return nil
	}
	return fam.modelKeys
}

func (c *Catalogue) Product(manufacturer, family, model string) *internal.Product {
	fam := c.family(manufacturer, family)
	if fam == nil {
		return nil
	}
	return fam.models[model]
}

func (c *Catalogue) family(manufacturer, family string) *familyNode {
	manu, ok := c.manufacturers[manufacturer]
	if !ok {
		return nil
	}
	return manu.families[family]
}

// Search returns the first key, in the given order, contained in
// candidateSpace. Empty keys never match.
func Search(candidateSpace string, keys []string) (string, bool) {
	for _, k := range keys {
		if k != "" && strings.Contains(candidateSpace, k) {
			return k, true
		}
	}
	return "", false
}

// SearchModel returns the first model key under (manufacturer, family) that
// is one of tokens.
func (c *Catalogue) SearchModel(tokens map[string]struct{}, manufacturer, family string) (string, bool) {
	for _, model := range c.Models(manufacturer, family) {
		if _, ok := tokens[model]; ok {
			return model, true
		}
	}
	return "", false
}

// SearchLongestModel is SearchModel preferring the longest matching key;
// ties keep the earlier key.
func (c *Catalogue) SearchLongestModel(tokens map[string]struct{}, manufacturer, family string) (string, bool) {
	best := ""
	for _, model := range c.Models(manufacturer, family) {
		if _, ok := tokens[model]; ok && len(model) > len(best) {
			best = model
		}
	}
	return best, best != ""
}
