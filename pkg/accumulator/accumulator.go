package accumulator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for accumulator operations.
var (
	pagesMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_accumulator_pages_merged_total",
		Help: "Total pages merged into an accumulation",
	})

	staleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_accumulator_stale_responses_total",
		Help: "Total page responses discarded because a newer filter generation started",
	})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rm_accumulator_fetch_failures_total",
		Help: "Total failed page fetches by operation",
	}, []string{"operation"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rm_accumulator_fetch_duration_seconds",
		Help:    "Page fetch duration as seen by the accumulator",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})
)

const (
	opSetFilter = "set_filter"
	opRefresh   = "refresh"
	opLoadMore  = "load_more"
)

// Status is the load status of an accumulation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "invalid"
	}
}

// State is a snapshot of an accumulation.
type State struct {
	// CurrentPage is the number of pages merged since the last filter reset.
	CurrentPage int

	// Filter is the active filter. It becomes active as soon as SetFilter is
	// called, even if its first page later fails to load.
	Filter character.Filter

	// Records holds every merged record in page order.
	Records []character.Record

	// HasNext reports whether LoadMore would fetch another page.
	HasNext bool

	// Total is the match count reported with the last merged page, zero
	// when unknown.
	Total int

	Status Status

	// Err is the last fetch failure; set only when Status is StatusError.
	Err error
}

// Fetcher loads one page of characters for a filter. Pages are numbered from 1.
type Fetcher interface {
	FetchPage(ctx context.Context, page int, filter character.Filter) (character.Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, page int, filter character.Filter) (character.Page, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, page int, filter character.Filter) (character.Page, error) {
	return f(ctx, page, filter)
}

// Accumulator merges successive pages for one filter and resets when the
// filter changes.
type Accumulator struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
}

// New creates an accumulator with the given initial filter. Nothing is
// fetched until LoadMore, Refresh or SetFilter is called.
func New(fetcher Fetcher, initial character.Filter, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		fetcher: fetcher,
		logger:  logger,
		state: State{
			Filter:  initial.Normalize(),
			HasNext: true,
			Status:  StatusIdle,
		},
	}
}

// State returns a snapshot of the accumulation. The returned Records slice
// is owned by the caller.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.state
	s.Records = slices.Clone(a.state.Records)
	return s
}

// SetFilter replaces the accumulation with the first page for filter.
// A filter equal to the active one is a no-op. Responses still in flight for
// earlier filters are discarded when they arrive.
func (a *Accumulator) SetFilter(ctx context.Context, filter character.Filter) error {
	filter = filter.Normalize()

	a.mu.Lock()
	if filter == a.state.Filter {
		a.mu.Unlock()
		a.logger.Debug().Stringer("filter", filter).Msg("Filter unchanged")
		return nil
	}
	gen := a.reset(filter)
	a.mu.Unlock()

	a.logger.Debug().
		Stringer("filter", filter).
		Uint64("generation", gen).
		Msg("Filter changed, reloading")

	return a.load(ctx, opSetFilter, gen, 1, filter)
}

// Refresh discards the accumulation and reloads the first page for the
// active filter.
func (a *Accumulator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	filter := a.state.Filter
	gen := a.reset(filter)
	a.mu.Unlock()

	return a.load(ctx, opRefresh, gen, 1, filter)
}

// LoadMore fetches the page after the last merged one and appends it.
// It does nothing when there is no next page and returns ErrLoadInProgress
// when a load is already pending.
func (a *Accumulator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	if !a.state.HasNext {
		a.mu.Unlock()
		return nil
	}
	if a.state.Status == StatusLoading {
		a.mu.Unlock()
		return ErrLoadInProgress
	}
	gen := a.generation
	page := a.state.CurrentPage + 1
	filter := a.state.Filter
	a.state.Status = StatusLoading
	a.state.Err = nil
	a.mu.Unlock()

	return a.load(ctx, opLoadMore, gen, page, filter)
}

// reset starts a new generation for filter. Caller holds a.mu.
func (a *Accumulator) reset(filter character.Filter) uint64 {
	a.generation++
	a.state = State{
		Filter:  filter,
		HasNext: true,
		Status:  StatusLoading,
	}
	return a.generation
}

// load fetches pageNum outside the lock and merges it if gen is still current.
func (a *Accumulator) load(ctx context.Context, op string, gen uint64, pageNum int, filter character.Filter) error {
	start := time.Now()
	page, err := a.fetcher.FetchPage(ctx, pageNum, filter)
	fetchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		staleResponsesTotal.Inc()
		a.logger.Debug().
			Err(errStaleResponse).
			Str("operation", op).
			Int("page", pageNum).
			Uint64("generation", gen).
			Uint64("current_generation", a.generation).
			Msg("Discarding page")
		return nil
	}

	if err != nil {
		fetchFailuresTotal.WithLabelValues(op).Inc()
		ferr := &FetchError{Page: pageNum, Filter: filter, Err: err}
		a.state.Status = StatusError
		a.state.Err = ferr
		a.logger.Warn().Err(err).
			Str("operation", op).
			Int("page", pageNum).
			Stringer("filter", filter).
			Msg("Page fetch failed")
		return ferr
	}

	a.state.Records = append(a.state.Records, page.Records...)
	a.state.CurrentPage = pageNum
	a.state.HasNext = page.HasNext
	a.state.Total = page.Count
	a.state.Status = StatusIdle
	a.state.Err = nil
	pagesMergedTotal.Inc()

	a.logger.Debug().
		Str("operation", op).
		Int("page", pageNum).
		Int("records", len(page.Records)).
		Int("accumulated", len(a.state.Records)).
		Bool("has_next", page.HasNext).
		Msg("Page merged")

	return nil
}
