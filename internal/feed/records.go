package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"listingmatch/internal"
	"listingmatch/internal/util"
)

const (
	ProductsFeed = "products"
	ListingsFeed = "listings"
)

// ToProduct validates a decoded product record. product_name, manufacturer
// and model are required; family and announced-date are optional.
func ToProduct(rec Record) (*internal.Product, error) {
	name, err := requireString(rec, ProductsFeed, "product_name")
	if err != nil {
		return nil, err
	}
	manu, err := requireString(rec, ProductsFeed, "manufacturer")
	if err != nil {
		return nil, err
	}
	model, err := requireString(rec, ProductsFeed, "model")
	if err != nil {
		return nil, err
	}

	p := &internal.Product{
		ProductName:  name,
		Manufacturer: manu,
		Model:        model,
	}
	if family, ok := optionalString(rec.Fields["family"]); ok {
		p.Family = util.StringPtr(family)
	}
	if announced, ok := optionalString(rec.Fields["announced-date"]); ok {
		p.AnnouncedDate = announced
	} else if announced, ok := optionalString(rec.Fields["announced_date"]); ok {
		p.AnnouncedDate = announced
	}
	return p, nil
}

// ToListing validates a decoded listing record. title and price are
// required. A numeric price is accepted and kept in its literal form.
func ToListing(rec Record) (*internal.Listing, error) {
	title, err := requireString(rec, ListingsFeed, "title")
	if err != nil {
		return nil, err
	}
	price, err := requireString(rec, ListingsFeed, "price")
	if err != nil {
		return nil, err
	}

	l := &internal.Listing{Title: title, Price: price}
	l.Manufacturer, _ = optionalString(rec.Fields["manufacturer"])
	l.Currency, _ = optionalString(rec.Fields["currency"])
	return l, nil
}

func requireString(rec Record, feedName, field string) (string, error) {
	raw, ok := rec.Fields[field]
	if !ok || raw == nil {
		return "", &internal.SchemaError{Feed: feedName, Line: rec.Line, Field: field}
	}
	s, ok := optionalString(raw)
	if !ok {
		return "", fmt.Errorf("%s feed line %d: field %q has type %T", feedName, rec.Line, field, raw)
	}
	return s, nil
}

func optionalString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func ProductsFromRecords(records []Record) ([]*internal.Product, error) {
	out := make([]*internal.Product, 0, len(records))
	for _, rec := range records {
		p, err := ToProduct(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func ListingsFromRecords(records []Record) ([]*internal.Listing, error) {
	out := make([]*internal.Listing, 0, len(records))
	for _, rec := range records {
		l, err := ToListing(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func IsRemote(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
