package pipeline

import (
	"listingmatch/internal"
	"listingmatch/internal/util"
)

type NormalizedListing struct {
	*internal.Listing
	ManufacturerNorm string
	TitleNorm        string
	TitleTokens      map[string]struct{}
}

func NormalizeListing(l *internal.Listing) NormalizedListing {
	return NormalizedListing{
		Listing:          l,
		ManufacturerNorm: util.Normalize(l.Manufacturer),
		TitleNorm:        util.Normalize(l.Title),
		TitleTokens:      util.TitleTokens(l.Title),
	}
}

func NormalizeListings(listings []*internal.Listing) []NormalizedListing {
	out := make([]NormalizedListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, NormalizeListing(l))
	}
	return out
}
