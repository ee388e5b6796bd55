package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patitas/internal/geocode"
	"patitas/internal/resolver"
)

const testDebounce = 20 * time.Millisecond

// fakeSearcher records queries and answers from a canned script.
type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results []geocode.Place
	block   chan struct{} // when set, Search waits here or for ctx
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]geocode.Place, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, nil
}

func (f *fakeSearcher) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func waitForState(t *testing.T, f *Flow, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("flow never reached state %v, stuck in %v", want, f.State())
}

func TestFlowDebouncesKeystrokes(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{{DisplayName: "Parque Kennedy"}}}

	batches := make(chan []geocode.Place, 1)
	f := NewFlow(searcher, testDebounce, func(p []geocode.Place) { batches <- p })

	// Rapid typing: each keystroke restarts the window.
	f.Input("Parq")
	f.Input("Parque K")
	f.Input("Parque Kennedy")
	assert.Equal(t, StateDebouncing, f.State())

	select {
	case got := <-batches:
		require.Len(t, got, 1)
		assert.Equal(t, "Parque Kennedy", got[0].DisplayName)
	case <-time.After(2 * time.Second):
		t.Fatal("no suggestion batch arrived")
	}

	// Only the final query was searched, scoped to the country.
	require.Len(t, searcher.seen(), 1)
	assert.Equal(t, "Parque Kennedy, Perú", searcher.seen()[0])
	assert.Equal(t, StateSuggestionsShown, f.State())
}

func TestFlowScopeNarrowsQuery(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{{DisplayName: "x"}}}
	f := NewFlow(searcher, testDebounce, nil)

	f.SetScope(resolver.Location{Department: "Lima", Province: "Lima", District: "Miraflores"})
	f.Input("Parque Kennedy")
	waitForState(t, f, StateSuggestionsShown)

	require.Len(t, searcher.seen(), 1)
	assert.Equal(t, "Parque Kennedy, Miraflores, Lima, Lima, Perú", searcher.seen()[0])
}

func TestFlowEmptyInputAborts(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{{DisplayName: "x"}}}
	f := NewFlow(searcher, testDebounce, nil)

	f.Input("Parque")
	f.Input("")
	assert.Equal(t, StateIdle, f.State())

	// The cancelled debounce never fires.
	time.Sleep(3 * testDebounce)
	assert.Empty(t, searcher.seen())
	assert.Empty(t, f.Suggestions())
}

func TestFlowNoResultsReturnsToIdle(t *testing.T) {
	searcher := &fakeSearcher{} // empty results
	f := NewFlow(searcher, testDebounce, nil)

	f.Input("zzzzzz")
	waitForState(t, f, StateIdle)
	assert.Empty(t, f.Suggestions())
}

func TestFlowSelectEntersProgrammaticUpdate(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{
		{DisplayName: "first"}, {DisplayName: "second"},
	}}
	f := NewFlow(searcher, testDebounce, nil)

	f.Input("parque")
	waitForState(t, f, StateSuggestionsShown)

	place, ok := f.Select(1)
	require.True(t, ok)
	assert.Equal(t, "second", place.DisplayName)
	assert.Equal(t, StateProgrammaticUpdate, f.State())

	// The write-back of resolved values must not start a new search.
	f.Input("Miraflores")
	assert.Equal(t, StateProgrammaticUpdate, f.State())
	time.Sleep(3 * testDebounce)
	assert.Len(t, searcher.seen(), 1)

	f.EndUpdate()
	assert.Equal(t, StateIdle, f.State())

	// After the update window closes, typing works again.
	f.Input("nuevo barrio")
	assert.Equal(t, StateDebouncing, f.State())
}

func TestFlowSelectOutOfRange(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{{DisplayName: "only"}}}
	f := NewFlow(searcher, testDebounce, nil)

	_, ok := f.Select(0)
	assert.False(t, ok, "nothing shown yet")

	f.Input("parque")
	waitForState(t, f, StateSuggestionsShown)

	_, ok = f.Select(5)
	assert.False(t, ok)
	_, ok = f.Select(-1)
	assert.False(t, ok)
}

func TestFlowNewerInputSupersedesRunningSearch(t *testing.T) {
	block := make(chan struct{})
	searcher := &fakeSearcher{
		results: []geocode.Place{{DisplayName: "stale"}},
		block:   block,
	}

	var mu sync.Mutex
	var delivered [][]geocode.Place
	f := NewFlow(searcher, testDebounce, func(p []geocode.Place) {
		mu.Lock()
		delivered = append(delivered, p)
		mu.Unlock()
	})

	f.Input("first query")
	waitForState(t, f, StateSearching)

	// A new keystroke arrives while the first search is still running.
	f.Input("second query")

	// Unblock; the first search's context is already cancelled, the
	// second proceeds normally.
	searcher.mu.Lock()
	searcher.block = nil
	searcher.mu.Unlock()
	close(block)

	waitForState(t, f, StateSuggestionsShown)

	queries := searcher.seen()
	require.Len(t, queries, 2)
	assert.Equal(t, "first query, Perú", queries[0])
	assert.Equal(t, "second query, Perú", queries[1])

	// Only the winning search delivered a batch.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
}

func TestFlowBeginUpdateAbortsEverything(t *testing.T) {
	searcher := &fakeSearcher{results: []geocode.Place{{DisplayName: "x"}}}
	f := NewFlow(searcher, testDebounce, nil)

	f.Input("parque")
	f.BeginUpdate()
	assert.Equal(t, StateProgrammaticUpdate, f.State())

	time.Sleep(3 * testDebounce)
	assert.Empty(t, searcher.seen(), "aborted debounce must not search")

	f.EndUpdate()
	assert.Equal(t, StateIdle, f.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "programmatic-update", StateProgrammaticUpdate.String())
	assert.Equal(t, "unknown", State(99).String())
}
