package feed

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"listingmatch/internal"
	"listingmatch/internal/config"
)

// Loader reads product and listing feeds from a local path or an HTTP(S) URL.
// Sources ending in .xlsx are read as spreadsheets, anything else as JSON lines.
type Loader struct {
	client *Client
	logger zerolog.Logger
}

func NewLoader(cfg config.Config, logger zerolog.Logger) *Loader {
	return &Loader{client: NewClient(cfg, logger), logger: logger}
}

func (l *Loader) Products(ctx context.Context, source string) ([]*internal.Product, error) {
	records, err := l.records(ctx, source, ProductsFeed)
	if err != nil {
		return nil, err
	}
	products, err := ProductsFromRecords(records)
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("source", source).Int("products", len(products)).Msg("products feed loaded")
	return products, nil
}

func (l *Loader) Listings(ctx context.Context, source string) ([]*internal.Listing, error) {
	records, err := l.records(ctx, source, ListingsFeed)
	if err != nil {
		return nil, err
	}
	listings, err := ListingsFromRecords(records)
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("source", source).Int("listings", len(listings)).Msg("listings feed loaded")
	return listings, nil
}

func (l *Loader) records(ctx context.Context, source, feedName string) ([]Record, error) {
	r, closeFn, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	if isXLSX(source) {
		return DecodeXLSX(r, feedName)
	}
	return DecodeLines(r, feedName)
}

func (l *Loader) open(ctx context.Context, source string) (io.Reader, func(), error) {
	if IsRemote(source) {
		body, err := l.client.Fetch(ctx, source)
		if err != nil {
			return nil, nil, err
		}
		return bytes.NewReader(body), func() {}, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
