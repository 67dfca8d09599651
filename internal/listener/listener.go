package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"listingmatch/internal"
	"listingmatch/internal/config"
	"listingmatch/internal/pipeline"
	"listingmatch/internal/storage"
)

type ListingSource interface {
	Listings(ctx context.Context, source string) ([]*internal.Listing, error)
}

type CatalogueSource interface {
	Stored(ctx context.Context) ([]*internal.Product, error)
}

// Service polls the inbox directory for listing feeds and matches each one
// against the stored catalogue.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	listings  ListingSource
	catalogue CatalogueSource
	logger    zerolog.Logger
}

func NewService(db *storage.DB, cfg config.Config, listings ListingSource, catalogue CatalogueSource, logger zerolog.Logger) *Service {
	return &Service{db: db, cfg: cfg, listings: listings, catalogue: catalogue, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error().Err(err).Msg("listener cycle error")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle processes every pending feed once and returns how many succeeded.
// A feed that fails is moved to the failed directory so it is not retried.
func (s *Service) RunCycle(ctx context.Context) (int, error) {
	pending, err := s.pendingFeeds()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	products, err := s.catalogue.Stored(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, path := range pending {
		if err := ctx.Err(); err != nil {
			return processed, nil
		}
		if err := s.processFeed(ctx, path, products); err != nil {
			s.logger.Error().Err(err).Str("feed", path).Msg("listing feed failed")
			if mvErr := moveTo(path, filepath.Join(s.cfg.InboxDir, "failed")); mvErr != nil {
				return processed, mvErr
			}
			continue
		}
		if err := moveTo(path, filepath.Join(s.cfg.InboxDir, "processed")); err != nil {
			return processed, err
		}
		processed++
	}

	s.logger.Info().Int("pending", len(pending)).Int("processed", processed).Msg("listener cycle done")
	return processed, nil
}

func (s *Service) processFeed(ctx context.Context, path string, products []*internal.Product) error {
	listings, err := s.listings.Listings(ctx, path)
	if err != nil {
		return err
	}

	// Products are re-normalized on every insert, so sharing them across runs is safe.
	res, err := pipeline.NewRunService(s.db, s.cfg, s.logger).Run(ctx, path, products, listings)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(s.cfg.OutputDir, "listener", resultName(path))
	if err := pipeline.WriteJSONLFile(res.Groups(), outputPath); err != nil {
		return err
	}
	s.logger.Info().Str("feed", path).Str("run", res.RunID).Str("output", outputPath).Msg("listing feed matched")
	return nil
}

func (s *Service) pendingFeeds() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.InboxDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".xlsx") {
			out = append(out, filepath.Join(s.cfg.InboxDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func resultName(feedPath string) string {
	base := filepath.Base(feedPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return sanitizeName(base) + ".results.jsonl"
}

func moveTo(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, target)
}

func sanitizeName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
