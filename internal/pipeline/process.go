package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"listingmatch/internal"
	"listingmatch/internal/catalog"
	"listingmatch/internal/config"
	"listingmatch/internal/storage"
)

type RunService struct {
	db     *storage.DB
	cfg    config.Config
	logger zerolog.Logger
}

// NewRunService returns a service that persists runs to db when db is non-nil
// and cfg.PersistRuns is set.
func NewRunService(db *storage.DB, cfg config.Config, logger zerolog.Logger) *RunService {
	return &RunService{db: db, cfg: cfg, logger: logger}
}

type RunResult struct {
	RunID   string
	Result  *internal.MatchResult
	Counts  internal.RunCounts
	Timings map[string]float64
}

// Groups returns the result in output order.
func (r RunResult) Groups() []internal.ProductListings {
	out := make([]internal.ProductListings, 0, len(r.Result.Order))
	for _, name := range r.Result.Order {
		out = append(out, internal.ProductListings{ProductName: name, Listings: r.Result.Listings[name]})
	}
	return out
}

// Run builds the catalogue from products, matches every listing against it
// and drops price outliers per product. Any error aborts the whole run.
func (s *RunService) Run(ctx context.Context, source string, products []*internal.Product, listings []*internal.Listing) (RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With().Str("run", runID).Logger()

	index := catalog.New()
	skipped := 0
	for _, p := range products {
		if !index.Insert(p) {
			skipped++
			log.Debug().Str("product", p.ProductName).Msg("product not indexed: empty key or duplicate triple")
		}
	}
	buildDone := time.Now()
	log.Info().Int("products", index.Len()).Int("skipped", skipped).Msg("catalogue built")

	matcher := NewMatcherFromCatalogue(s.cfg, index)
	result, dropped, err := s.matchAll(ctx, matcher, listings)
	if err != nil {
		return RunResult{}, err
	}
	matchDone := time.Now()
	matched := result.Len()

	removed := 0
	for _, name := range append([]string(nil), result.Order...) {
		group := result.Listings[name]
		kept, err := FilterOutliers(group, s.cfg.OutlierStdDevs)
		if err != nil {
			return RunResult{}, fmt.Errorf("filter %s: %w", name, err)
		}
		removed += len(group) - len(kept)
		result.Replace(name, kept)
	}
	filterDone := time.Now()

	res := RunResult{
		RunID:  runID,
		Result: result,
		Counts: internal.RunCounts{
			Listings:        len(listings),
			Matched:         matched,
			Dropped:         dropped,
			OutliersRemoved: removed,
			Kept:            result.Len(),
			Products:        len(result.Order),
		},
		Timings: map[string]float64{
			"buildMs":  float64(buildDone.Sub(start).Milliseconds()),
			"matchMs":  float64(matchDone.Sub(buildDone).Milliseconds()),
			"filterMs": float64(filterDone.Sub(matchDone).Milliseconds()),
			"totalMs":  float64(time.Since(start).Milliseconds()),
		},
	}

	if s.db != nil && s.cfg.PersistRuns {
		seqOf := make(map[*internal.Listing]int, len(listings))
		for i, l := range listings {
			seqOf[l] = i
		}
		row := internal.RunRow{ID: runID, Source: source, Counts: res.Counts, Timings: res.Timings}
		if err := s.db.InsertRun(ctx, row, result, seqOf); err != nil {
			return RunResult{}, fmt.Errorf("persist run: %w", err)
		}
	}

	log.Info().
		Int("listings", res.Counts.Listings).
		Int("matched", res.Counts.Matched).
		Int("dropped", res.Counts.Dropped).
		Int("outliers", res.Counts.OutliersRemoved).
		Int("products", res.Counts.Products).
		Float64("totalMs", res.Timings["totalMs"]).
		Msg("run complete")

	return res, nil
}

// matchAll matches listings sequentially, or in contiguous chunks across
// MatchWorkers goroutines. Each worker fills its own MatchResult; chunks are
// merged in order so the outcome equals the sequential pass.
func (s *RunService) matchAll(ctx context.Context, matcher *Matcher, listings []*internal.Listing) (*internal.MatchResult, int, error) {
	workers := s.cfg.MatchWorkers
	if workers > len(listings) {
		workers = len(listings)
	}
	if workers <= 1 {
		result, dropped := matcher.MatchAll(NormalizeListings(listings))
		return result, dropped, ctx.Err()
	}

	chunk := (len(listings) + workers - 1) / workers
	partials := make([]*internal.MatchResult, workers)
	droppedBy := make([]int, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(listings) {
			hi = len(listings)
		}
		if lo >= hi {
			partials[w] = internal.NewMatchResult()
			continue
		}
		wg.Add(1)
		go func(w int, part []*internal.Listing) {
			defer wg.Done()
			partials[w], droppedBy[w] = matcher.MatchAll(NormalizeListings(part))
		}(w, listings[lo:hi])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	result := internal.NewMatchResult()
	dropped := 0
	for w := range partials {
		result.Merge(partials[w])
		dropped += droppedBy[w]
	}
	return result, dropped, nil
}
