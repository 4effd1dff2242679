// Package pagination provides parallel batch fetching of every character page
package pagination

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// The public API is shared; keep this small.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps the number of pages fetched. Zero fetches all pages.
	MaxPages int
}

// DefaultConfig returns safe default configuration for the public API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher loads a single page of characters for a filter
type PageFetcher interface {
	FetchPage(ctx context.Context, page int, filter character.Filter) (character.Page, error)
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page for filter and returns the records in page
// order. Page 1 is fetched first to learn the page count; the rest are
// fetched in parallel. Any failed page fails the whole fetch.
func (bf *BatchFetcher) FetchAll(ctx context.Context, filter character.Filter) ([]character.Record, error) {
	start := time.Now()
	filter = filter.Normalize()

	first, err := bf.fetchPage(ctx, 1, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	if first.HasNext && first.Pages <= 1 {
		// No usable page count; follow HasNext one page at a time.
		return bf.fetchSequential(ctx, filter, first, start)
	}

	totalPages := first.Pages
	if !first.HasNext {
		totalPages = 1
	}
	if bf.config.MaxPages > 0 && totalPages > bf.config.MaxPages {
		totalPages = bf.config.MaxPages
	}

	log.Info().
		Stringer("filter", filter).
		Int("total_pages", totalPages).
		Int("total_records", first.Count).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if totalPages <= 1 {
		log.Info().
			Stringer("filter", filter).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Records, nil
	}

	// Each worker writes only its own slot.
	pages := make([][]character.Record, totalPages)
	pages[0] = first.Records

	var fetched atomic.Int64
	fetched.Store(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)

	for pageNum := 2; pageNum <= totalPages; pageNum++ {
		g.Go(func() error {
			page, err := bf.fetchPage(gctx, pageNum, filter)
			if err != nil {
				log.Warn().
					Err(err).
					Int("page", pageNum).
					Msg("Page fetch failed")
				return fmt.Errorf("page %d: %w", pageNum, err)
			}
			pages[pageNum-1] = page.Records

			// Progress logging every 10 pages
			if n := fetched.Add(1); n%10 == 0 {
				log.Info().
					Int64("fetched", n).
					Int("total", totalPages).
					Float64("progress_pct", float64(n)/float64(totalPages)*100).
					Msg("Fetch progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch fetch (%d/%d pages): %w", fetched.Load(), totalPages, err)
	}

	records := make([]character.Record, 0, first.Count)
	for _, p := range pages {
		records = append(records, p...)
	}

	log.Info().
		Stringer("filter", filter).
		Int("pages", totalPages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return records, nil
}

// fetchSequential walks pages after first until HasNext is false or MaxPages
// is reached.
func (bf *BatchFetcher) fetchSequential(ctx context.Context, filter character.Filter, first character.Page, start time.Time) ([]character.Record, error) {
	log.Warn().
		Stringer("filter", filter).
		Int("reported_pages", first.Pages).
		Msg("Page count missing, fetching sequentially")

	records := append([]character.Record(nil), first.Records...)
	page := first
	pageNum := 1
	for page.HasNext {
		if bf.config.MaxPages > 0 && pageNum >= bf.config.MaxPages {
			break
		}
		pageNum++

		var err error
		page, err = bf.fetchPage(ctx, pageNum, filter)
		if err != nil {
			return nil, fmt.Errorf("batch fetch (%d pages): page %d: %w", pageNum-1, pageNum, err)
		}
		if len(page.Records) == 0 && page.HasNext {
			return nil, fmt.Errorf("batch fetch: page %d is empty but reports more results", pageNum)
		}
		records = append(records, page.Records...)
	}

	log.Info().
		Stringer("filter", filter).
		Int("pages", pageNum).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete (sequential)")

	return records, nil
}

// fetchPage fetches one page with the per-page timeout.
func (bf *BatchFetcher) fetchPage(ctx context.Context, pageNum int, filter character.Filter) (character.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, pageNum, filter)
}
