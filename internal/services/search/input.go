// Package search implements the incremental location search behind each
// place field of the planner: debounced lookups against a geocoder with
// stale results suppressed.
//
// Every keystroke and every selection advances a sequence number. Timers
// and lookups remember the sequence number they were started under and
// their outcome is dropped once it is no longer current, so an older
// response can never overwrite newer state.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/killallgit/route-planner-api/internal/services/geocoding"
)

// ErrResultNotFound is returned by SelectByID for ids not in the current results
var ErrResultNotFound = errors.New("result not found")

// ErrClosed is returned by operations on a closed Input
var ErrClosed = errors.New("search input closed")

// Input is one search field. It is safe for concurrent use.
//
// Callbacks run synchronously, one at a time, in transition order. They
// must not call back into the same Input.
type Input struct {
	geocoder    geocoding.Geocoder
	debounce    time.Duration
	minLen      int
	placeholder string
	onSelect    func(Result)
	onChange    func(State)
	onError     func(error)
	log         *slog.Logger

	mu     sync.Mutex
	state  State
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool

	// notifyMu is taken before mu is released so callbacks observe
	// transitions in the order they were applied.
	notifyMu sync.Mutex

	ctx     context.Context
	stop    context.CancelFunc
	lookups sync.WaitGroup
}

// New mounts an Input backed by geocoder
func New(geocoder geocoding.Geocoder, opts ...Option) *Input {
	ctx, stop := context.WithCancel(context.Background())
	in := &Input{
		geocoder: geocoder,
		debounce: DefaultDebounce,
		minLen:   DefaultMinQueryLength,
		log:      slog.Default(),
		state:    InitialState(),
		ctx:      ctx,
		stop:     stop,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Placeholder returns the hint configured for the field
func (in *Input) Placeholder() string {
	return in.placeholder
}

// State returns the current snapshot
func (in *Input) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state.clone()
}

// OnQueryChange records a keystroke and (re)schedules the debounced lookup.
// Clearing the field resets the results at once; the timer is still armed
// and will report the too-short message when it fires.
func (in *Input) OnQueryChange(text string) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}

	seq := in.advanceLocked()

	next := in.state
	next.IsLoading = true
	next.Value = text
	next.Focused = true
	if utf8.RuneCountInString(text) < 1 {
		next.IsLoading = false
		next.Results = []Result{}
		next.Value = ""
	}

	in.timer = time.AfterFunc(in.debounce, func() { in.fire(seq) })
	in.publishLocked(next, nil)
}

// OnResultSelect fills the field with the chosen result and hands it to the
// selection callback. Any pending or in-flight lookup is abandoned.
func (in *Input) OnResultSelect(result Result) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.selectLocked(result)
}

// SelectByID selects the current result with the given id
func (in *Input) SelectByID(id string) (Result, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return Result{}, ErrClosed
	}
	for _, r := range in.state.Results {
		if r.ID == id {
			in.selectLocked(r)
			return r, nil
		}
	}
	in.mu.Unlock()
	return Result{}, ErrResultNotFound
}

// Commit blurs the field, as pressing Enter does
func (in *Input) Commit() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	next := in.state
	next.Focused = false
	in.publishLocked(next, nil)
}

// Close unmounts the Input: the timer is stopped, the in-flight lookup is
// cancelled and awaited. No state change or callback happens after Close
// returns. Close must not be called from a callback of the same Input.
func (in *Input) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	in.seq++
	in.stopPendingLocked()
	in.stop()
	in.mu.Unlock()

	in.lookups.Wait()

	// wait out a delivery that began before closed was set
	in.notifyMu.Lock()
	in.notifyMu.Unlock()
}

// advanceLocked supersedes all outstanding work and returns the new sequence
func (in *Input) advanceLocked() uint64 {
	in.seq++
	in.stopPendingLocked()
	return in.seq
}

func (in *Input) stopPendingLocked() {
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}
}

// selectLocked is entered with mu held and releases it
func (in *Input) selectLocked(result Result) {
	in.advanceLocked()

	next := in.state
	next.Value = result.Title
	next.IsLoading = false

	in.publishLocked(next, func() {
		if in.onSelect != nil {
			in.onSelect(result)
		}
	})
}

// fire runs when the debounce interval of seq elapses
func (in *Input) fire(seq uint64) {
	in.mu.Lock()
	if in.closed || seq != in.seq {
		in.mu.Unlock()
		return
	}
	in.timer = nil

	text := in.state.Value
	if utf8.RuneCountInString(text) < in.minLen {
		next := in.state
		next.IsLoading = false
		next.NoResultsMessage = TooShortMessage
		in.publishLocked(next, nil)
		return
	}

	ctx, cancel := context.WithCancel(in.ctx)
	in.cancel = cancel
	in.lookups.Add(1)
	in.mu.Unlock()

	go in.lookup(ctx, cancel, seq, text)
}

func (in *Input) lookup(ctx context.Context, cancel context.CancelFunc, seq uint64, text string) {
	defer in.lookups.Done()
	defer cancel()

	in.log.Debug("geocode lookup", "query", text, "seq", seq)
	places, err := in.geocoder.Geocode(ctx, text)

	in.mu.Lock()
	if in.closed || seq != in.seq {
		in.mu.Unlock()
		in.log.Debug("discarding stale lookup", "query", text, "seq", seq)
		return
	}
	in.cancel = nil

	next := in.state
	next.IsLoading = false

	if err != nil {
		next.Results = []Result{}
		in.publishLocked(next, func() {
			if in.onError != nil {
				in.onError(err)
			} else {
				in.log.Error("geocode lookup failed", "query", text, "error", err)
			}
		})
		return
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		results = append(results, ResultFromPlace(p))
	}
	next.Results = results
	if len(results) == 0 {
		next.NoResultsMessage = NoResultsMessage
	}
	in.publishLocked(next, nil)
}

// publishLocked stores next, then delivers it with mu released. It is
// entered with mu held and returns with neither lock held.
func (in *Input) publishLocked(next State, then func()) {
	in.state = next
	in.notifyMu.Lock()
	in.mu.Unlock()
	defer in.notifyMu.Unlock()

	if in.onChange != nil {
		in.onChange(next.clone())
	}
	if then != nil {
		then()
	}
}
