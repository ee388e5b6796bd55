// Package suggest implements the forward-geocoding suggestion flow as an
// explicit state machine: user keystrokes debounce into one search, only
// one search is in flight at a time, and programmatic field updates are
// fenced off by a dedicated state instead of a timed boolean flag, so a
// write-back can never re-trigger a search.
package suggest

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"patitas/internal/geocode"
	"patitas/internal/resolver"
)

// State of the suggestion flow.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateSearching
	StateSuggestionsShown
	// StateProgrammaticUpdate is held while resolved values are written
	// back into the form; all input events are ignored until EndUpdate.
	StateProgrammaticUpdate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateSearching:
		return "searching"
	case StateSuggestionsShown:
		return "suggestions-shown"
	case StateProgrammaticUpdate:
		return "programmatic-update"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the quiet period required after the last keystroke
// before a search is issued.
const DefaultDebounce = 800 * time.Millisecond

// Searcher is the forward-geocoding dependency.
type Searcher interface {
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

// Flow is one form session's suggestion state machine.
type Flow struct {
	searcher Searcher
	debounce time.Duration

	// onSuggestions receives each completed batch. Called without the
	// flow lock held.
	onSuggestions func([]geocode.Place)

	mu          sync.Mutex
	state       State
	query       string
	scope       resolver.Location // already-resolved fields narrowing the query
	suggestions []geocode.Place
	timer       *time.Timer
	gen         int // invalidates pending timers and searches
	inflight    geocode.Inflight
}

// NewFlow creates a suggestion flow. debounce <= 0 selects DefaultDebounce.
func NewFlow(searcher Searcher, debounce time.Duration, onSuggestions func([]geocode.Place)) *Flow {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Flow{
		searcher:      searcher,
		debounce:      debounce,
		onSuggestions: onSuggestions,
		state:         StateIdle,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetScope records already-resolved hierarchy values; they are appended
// to every search query to narrow results contextually.
func (f *Flow) SetScope(loc resolver.Location) {
	f.mu.Lock()
	f.scope = loc
	f.mu.Unlock()
}

// Input handles a keystroke event. A non-empty query (re)starts the
// debounce window; an empty query aborts everything and returns to Idle.
// Input is ignored while a programmatic update is in progress.
func (f *Flow) Input(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateProgrammaticUpdate {
		return
	}

	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		f.inflight.Stop()
		f.state = StateIdle
		f.query = ""
		f.suggestions = nil
		return
	}

	f.query = query
	f.state = StateDebouncing
	gen := f.gen
	f.timer = time.AfterFunc(f.debounce, func() { f.fire(gen) })
}

// fire runs when the debounce window elapses without further input.
func (f *Flow) fire(gen int) {
	f.mu.Lock()
	if gen != f.gen || f.state != StateDebouncing {
		f.mu.Unlock()
		return
	}
	f.state = StateSearching
	query := f.augmentedQuery()
	f.mu.Unlock()

	ctx, cancel := f.inflight.Begin(context.Background())
	defer cancel()

	places, err := f.searcher.Search(ctx, query)

	f.mu.Lock()
	if gen != f.gen {
		// Superseded while searching; the newer request owns the state.
		f.mu.Unlock()
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("[suggest] search failed: %v", err)
		}
		f.state = StateIdle
		f.suggestions = nil
		f.mu.Unlock()
		return
	}
	if len(places) == 0 {
		f.state = StateIdle
		f.suggestions = nil
		f.mu.Unlock()
		return
	}
	f.state = StateSuggestionsShown
	f.suggestions = places
	cb := f.onSuggestions
	f.mu.Unlock()

	if cb != nil {
		cb(places)
	}
}

// Suggestions returns the current suggestion batch.
func (f *Flow) Suggestions() []geocode.Place {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions
}

// Select picks one suggestion and moves the flow into
// ProgrammaticUpdate: the caller writes the resolved values back into
// the form, then calls EndUpdate. Returns false if the index is out of
// range or no suggestions are showing.
func (f *Flow) Select(index int) (geocode.Place, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSuggestionsShown || index < 0 || index >= len(f.suggestions) {
		return geocode.Place{}, false
	}
	place := f.suggestions[index]
	f.gen++
	f.suggestions = nil
	f.state = StateProgrammaticUpdate
	return place, true
}

// BeginUpdate enters ProgrammaticUpdate from any state, aborting pending
// timers and searches. Used when map-driven updates write into the form.
func (f *Flow) BeginUpdate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.inflight.Stop()
	f.suggestions = nil
	f.state = StateProgrammaticUpdate
}

// EndUpdate leaves ProgrammaticUpdate. A discrete event, not a timer:
// there is no window in which a late write-back can race a new search.
func (f *Flow) EndUpdate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateProgrammaticUpdate {
		f.state = StateIdle
	}
}

// augmentedQuery appends resolved hierarchy values and the country so the
// geocoder ranks nearby candidates first. Caller holds f.mu.
func (f *Flow) augmentedQuery() string {
	parts := []string{f.query}
	for _, s := range []string{f.scope.District, f.scope.Province, f.scope.Department} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, "Perú")
	return strings.Join(parts, ", ")
}
