package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"listingmatch/internal"
	"listingmatch/internal/storage"
)

const (
	metaLastLoad   = "catalog.last_load"
	metaLastSource = "catalog.last_source"
)

type ProductSource interface {
	Products(ctx context.Context, source string) ([]*internal.Product, error)
}

// SyncService keeps the stored catalogue in step with a product feed.
type SyncService struct {
	db     *storage.DB
	feed   ProductSource
	logger zerolog.Logger
}

func NewSyncService(db *storage.DB, feed ProductSource, logger zerolog.Logger) *SyncService {
	return &SyncService{db: db, feed: feed, logger: logger}
}

// Load replaces the stored catalogue with the products read from source and
// returns how many of them made it into the index.
func (s *SyncService) Load(ctx context.Context, source string) (int, error) {
	products, err := s.feed.Products(ctx, source)
	if err != nil {
		return 0, err
	}

	idx := New()
	for _, p := range products {
		if !idx.Insert(p) {
			s.logger.Warn().Str("product", p.ProductName).Str("manufacturer", p.Manufacturer).Str("model", p.Model).Msg("product not indexed")
		}
	}

	if err := s.db.ReplaceProducts(ctx, products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata(ctx, metaLastLoad, time.Now().UTC().Format(time.RFC3339))
	_ = s.db.SetMetadata(ctx, metaLastSource, source)

	s.logger.Info().Str("source", source).Int("products", len(products)).Int("indexed", idx.Len()).Msg("catalogue loaded")
	return idx.Len(), nil
}

// Stored returns the products of the last loaded catalogue in feed order.
func (s *SyncService) Stored(ctx context.Context) ([]*internal.Product, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no stored catalogue: run catalog:load first")
	}
	return products, nil
}

func (s *SyncService) LastLoad(ctx context.Context) (string, error) {
	v, err := s.db.GetMetadata(ctx, metaLastLoad)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}
