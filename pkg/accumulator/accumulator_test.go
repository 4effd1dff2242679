package accumulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	filterAll  = character.Filter{}
	filterDead = character.Filter{Status: character.StatusDead}
	filterLive = character.Filter{Status: character.StatusAlive}
)

func rec(id string) character.Record {
	return character.Record{ID: id, Name: "name-" + id}
}

func recs(ids ...string) []character.Record {
	out := make([]character.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, rec(id))
	}
	return out
}

type fetchKey struct {
	page   int
	filter character.Filter
}

type fetchResult struct {
	page character.Page
	err  error
}

// scriptedFetcher answers immediately from a fixed table.
type scriptedFetcher struct {
	mu      sync.Mutex
	results map[fetchKey]fetchResult
	calls   []fetchKey
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{results: map[fetchKey]fetchResult{}}
}

func (f *scriptedFetcher) on(page int, filter character.Filter, p character.Page, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[fetchKey{page, filter}] = fetchResult{page: p, err: err}
}

func (f *scriptedFetcher) FetchPage(_ context.Context, page int, filter character.Filter) (character.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fetchKey{page, filter}
	f.calls = append(f.calls, key)
	r, ok := f.results[key]
	if !ok {
		return character.Page{}, errors.New("unscripted page")
	}
	return r.page, r.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// pendingCall is a fetch parked until the test replies.
type pendingCall struct {
	key   fetchKey
	reply chan fetchResult
}

// blockingFetcher parks every call so tests control completion order.
type blockingFetcher struct {
	calls chan pendingCall
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{calls: make(chan pendingCall)}
}

func (f *blockingFetcher) FetchPage(ctx context.Context, page int, filter character.Filter) (character.Page, error) {
	c := pendingCall{key: fetchKey{page, filter}, reply: make(chan fetchResult, 1)}
	select {
	case f.calls <- c:
	case <-ctx.Done():
		return character.Page{}, ctx.Err()
	}
	r := <-c.reply
	return r.page, r.err
}

func (f *blockingFetcher) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch call")
		return pendingCall{}
	}
}

// async runs op in a goroutine and returns its result channel.
func async(op func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- op() }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for operation")
		return nil
	}
}

func newAcc(f Fetcher, initial character.Filter) *Accumulator {
	return New(f, initial, zerolog.Nop())
}

func TestNew_InitialState(t *testing.T) {
	acc := newAcc(newScriptedFetcher(), character.Filter{Species: "  Human "})
	s := acc.State()

	assert.Equal(t, 0, s.CurrentPage)
	assert.Equal(t, character.Filter{Species: "Human"}, s.Filter)
	assert.Empty(t, s.Records)
	assert.True(t, s.HasNext)
	assert.Equal(t, StatusIdle, s.Status)
	assert.NoError(t, s.Err)
}

func TestLoadMore_AppendsPageAndAdvances(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A", "B"), HasNext: true}, nil)
	f.on(2, filterAll, character.Page{Records: recs("C", "D", "E"), HasNext: true}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	before := acc.State()

	require.NoError(t, acc.LoadMore(ctx))
	after := acc.State()

	assert.Equal(t, len(before.Records)+3, len(after.Records))
	assert.Equal(t, before.CurrentPage+1, after.CurrentPage)
	if diff := cmp.Diff(recs("A", "B", "C", "D", "E"), after.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StatusIdle, after.Status)
}

func TestScenario_LoadMoreThenFilterChange(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A", "B"), HasNext: true}, nil)
	f.on(2, filterAll, character.Page{Records: recs("C"), HasNext: false}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	require.NoError(t, acc.LoadMore(ctx))

	s := acc.State()
	if diff := cmp.Diff(recs("A", "B", "C"), s.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.HasNext)
	assert.Equal(t, 2, s.CurrentPage)
}

func TestScenario_FilterChangeBeforeLoadMoreSettles(t *testing.T) {
	f := newBlockingFetcher()
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	first := async(func() error { return acc.LoadMore(ctx) })
	c := f.next(t)
	assert.Equal(t, fetchKey{1, filterAll}, c.key)
	c.reply <- fetchResult{page: character.Page{Records: recs("A", "B"), HasNext: true}}
	require.NoError(t, wait(t, first))

	more := async(func() error { return acc.LoadMore(ctx) })
	stale := f.next(t)
	assert.Equal(t, fetchKey{2, filterAll}, stale.key)

	change := async(func() error { return acc.SetFilter(ctx, filterDead) })
	fresh := f.next(t)
	assert.Equal(t, fetchKey{1, filterDead}, fresh.key)

	fresh.reply <- fetchResult{page: character.Page{Records: recs("X"), HasNext: true}}
	require.NoError(t, wait(t, change))

	stale.reply <- fetchResult{page: character.Page{Records: recs("C"), HasNext: false}}
	require.NoError(t, wait(t, more))

	s := acc.State()
	if diff := cmp.Diff(recs("X"), s.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filterDead, s.Filter)
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.HasNext)
	assert.Equal(t, StatusIdle, s.Status)
}

func TestSetFilter_LastIssuedFilterWins(t *testing.T) {
	tests := []struct {
		name       string
		replyOrder []int // indexes into the issued calls
	}{
		{name: "responses in issue order", replyOrder: []int{0, 1, 2}},
		{name: "responses in reverse order", replyOrder: []int{2, 1, 0}},
		{name: "newest first then oldest", replyOrder: []int{2, 0, 1}},
	}

	filters := []character.Filter{filterLive, filterDead, {Species: "Alien"}}
	pages := [][]character.Record{recs("L1", "L2"), recs("D1"), recs("S1", "S2", "S3")}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBlockingFetcher()
			acc := newAcc(f, filterAll)
			ctx := context.Background()

			var (
				dones []<-chan error
				calls []pendingCall
			)
			for _, filter := range filters {
				filter := filter
				dones = append(dones, async(func() error { return acc.SetFilter(ctx, filter) }))
				calls = append(calls, f.next(t))
			}

			for _, i := range tt.replyOrder {
				calls[i].reply <- fetchResult{page: character.Page{Records: pages[i], HasNext: false}}
				require.NoError(t, wait(t, dones[i]))
			}

			s := acc.State()
			if diff := cmp.Diff(pages[2], s.Records); diff != "" {
				t.Errorf("Records mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, filters[2], s.Filter)
			assert.Equal(t, StatusIdle, s.Status)
		})
	}
}

func TestSetFilter_EqualFilterIsNoop(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterDead, character.Page{Records: recs("A"), HasNext: true}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.SetFilter(ctx, filterDead))
	before := acc.State()
	calls := f.callCount()

	require.NoError(t, acc.SetFilter(ctx, filterDead))
	require.NoError(t, acc.SetFilter(ctx, character.Filter{Status: character.StatusDead, Species: "   "}))

	assert.Equal(t, calls, f.callCount(), "equal filter must not fetch")
	if diff := cmp.Diff(before, acc.State(), cmp.Comparer(func(a, b error) bool { return a == b })); diff != "" {
		t.Errorf("State changed (-before +after):\n%s", diff)
	}
}

func TestSetFilter_InitialFilterIsNoop(t *testing.T) {
	f := newScriptedFetcher()
	acc := newAcc(f, filterAll)

	require.NoError(t, acc.SetFilter(context.Background(), filterAll))
	assert.Equal(t, 0, f.callCount())
}

func TestLoadMore_FailureLeavesAccumulationUnchanged(t *testing.T) {
	boom := errors.New("connection reset")
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A", "B"), HasNext: true}, nil)
	f.on(2, filterAll, character.Page{}, boom)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	before := acc.State()

	err := acc.LoadMore(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, boom)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 2, ferr.Page)
	assert.Equal(t, filterAll, ferr.Filter)

	after := acc.State()
	if diff := cmp.Diff(before.Records, after.Records); diff != "" {
		t.Errorf("Records changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, before.CurrentPage, after.CurrentPage)
	assert.Equal(t, StatusError, after.Status)
	assert.ErrorIs(t, after.Err, boom)
	assert.True(t, after.HasNext)

	// Retrying the same page succeeds without duplicating records.
	f.on(2, filterAll, character.Page{Records: recs("C"), HasNext: false}, nil)
	require.NoError(t, acc.LoadMore(ctx))
	final := acc.State()
	if diff := cmp.Diff(recs("A", "B", "C"), final.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, final.CurrentPage)
	assert.Equal(t, StatusIdle, final.Status)
	assert.NoError(t, final.Err)
}

func TestLoadMore_NoNextPageIssuesNoFetch(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A"), HasNext: false}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	require.Equal(t, 1, f.callCount())

	require.NoError(t, acc.LoadMore(ctx))
	require.NoError(t, acc.LoadMore(ctx))

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, 1, acc.State().CurrentPage)
}

func TestLoadMore_RejectsConcurrentCall(t *testing.T) {
	f := newBlockingFetcher()
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	first := async(func() error { return acc.LoadMore(ctx) })
	c := f.next(t)

	assert.ErrorIs(t, acc.LoadMore(ctx), ErrLoadInProgress)
	assert.Equal(t, StatusLoading, acc.State().Status)

	c.reply <- fetchResult{page: character.Page{Records: recs("A"), HasNext: true}}
	require.NoError(t, wait(t, first))
	assert.Equal(t, recs("A"), acc.State().Records)
}

func TestSetFilter_FailureClearsAndKeepsFilterActive(t *testing.T) {
	boom := errors.New("503 service unavailable")
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A", "B"), HasNext: true}, nil)
	f.on(1, filterDead, character.Page{}, boom)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))

	err := acc.SetFilter(ctx, filterDead)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)

	s := acc.State()
	assert.Empty(t, s.Records)
	assert.Equal(t, filterDead, s.Filter)
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, 0, s.CurrentPage)

	// The retry goes back to page 1 of the new filter.
	f.on(1, filterDead, character.Page{Records: recs("D"), HasNext: false}, nil)
	require.NoError(t, acc.LoadMore(ctx))

	s = acc.State()
	assert.Equal(t, recs("D"), s.Records)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, fetchKey{1, filterDead}, f.calls[len(f.calls)-1])
}

func TestRefresh_ReloadsFirstPage(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A"), HasNext: true}, nil)
	f.on(2, filterAll, character.Page{Records: recs("B"), HasNext: false}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	require.NoError(t, acc.LoadMore(ctx))
	require.Equal(t, 2, acc.State().CurrentPage)

	f.on(1, filterAll, character.Page{Records: recs("A2"), HasNext: true}, nil)
	require.NoError(t, acc.Refresh(ctx))

	s := acc.State()
	assert.Equal(t, recs("A2"), s.Records)
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.HasNext)
}

func TestStaleFailureIsDiscarded(t *testing.T) {
	f := newBlockingFetcher()
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	more := async(func() error { return acc.LoadMore(ctx) })
	stale := f.next(t)

	change := async(func() error { return acc.SetFilter(ctx, filterLive) })
	fresh := f.next(t)

	stale.reply <- fetchResult{err: errors.New("timeout")}
	assert.NoError(t, wait(t, more), "stale failures are not surfaced")
	assert.Equal(t, StatusLoading, acc.State().Status)

	fresh.reply <- fetchResult{page: character.Page{Records: recs("L"), HasNext: false}}
	require.NoError(t, wait(t, change))

	s := acc.State()
	assert.Equal(t, StatusIdle, s.Status)
	assert.NoError(t, s.Err)
	assert.Equal(t, recs("L"), s.Records)
}

func TestState_ReturnsCopy(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A"), HasNext: true}, nil)
	acc := newAcc(f, filterAll)

	require.NoError(t, acc.LoadMore(context.Background()))

	s := acc.State()
	s.Records[0].Name = "mutated"

	assert.Equal(t, "name-A", acc.State().Records[0].Name)
}

func TestFetcherFunc(t *testing.T) {
	var got fetchKey
	fn := FetcherFunc(func(_ context.Context, page int, filter character.Filter) (character.Page, error) {
		got = fetchKey{page, filter}
		return character.Page{Records: recs("A")}, nil
	})

	acc := newAcc(fn, filterDead)
	require.NoError(t, acc.LoadMore(context.Background()))

	assert.Equal(t, fetchKey{1, filterDead}, got)
	assert.False(t, acc.State().HasNext)
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusLoading, "loading"},
		{StatusError, "error"},
		{Status(42), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestTotal_TracksReportedCountAndResets(t *testing.T) {
	f := newScriptedFetcher()
	f.on(1, filterAll, character.Page{Records: recs("A"), HasNext: true, Count: 826, Pages: 42}, nil)
	f.on(1, filterDead, character.Page{Records: recs("D"), HasNext: true, Count: 287, Pages: 15}, nil)
	acc := newAcc(f, filterAll)
	ctx := context.Background()

	require.NoError(t, acc.LoadMore(ctx))
	assert.Equal(t, 826, acc.State().Total)

	done := async(func() error { return acc.SetFilter(ctx, filterDead) })
	require.NoError(t, wait(t, done))
	assert.Equal(t, 287, acc.State().Total)
}
