// Package planner implements the route search modal: two place inputs, a
// vehicle category selector and the hand-off of a complete selection to
// the route search dispatcher.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/search"
)

// Option configures a Modal
type Option func(*Modal)

// WithInputOptions passes options to every search input the modal mounts
func WithInputOptions(opts ...search.Option) Option {
	return func(m *Modal) {
		m.inputOpts = append(m.inputOpts, opts...)
	}
}

// OnWarning registers the callback for user-facing warnings
func OnWarning(fn func(message string)) Option {
	return func(m *Modal) { m.onWarning = fn }
}

// OnSelectionChange registers the callback for selection updates
func OnSelectionChange(fn func(Selection)) Option {
	return func(m *Modal) { m.onSelection = fn }
}

// OnInputState registers the callback for input state updates
func OnInputState(fn func(Field, search.State)) Option {
	return func(m *Modal) { m.onInputState = fn }
}

// OnInputError registers the callback for failed lookups
func OnInputError(fn func(Field, error)) Option {
	return func(m *Modal) { m.onInputError = fn }
}

// OnViewChange registers the callback for visibility changes
func OnViewChange(fn func(View)) Option {
	return func(m *Modal) { m.onView = fn }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(m *Modal) {
		if log != nil {
			m.log = log
		}
	}
}

// Modal is the route search dialog. It is safe for concurrent use.
// Callbacks are delivered one at a time and must not call back into the
// Modal.
type Modal struct {
	geocoder   geocoding.Geocoder
	dispatcher Dispatcher
	inputOpts  []search.Option
	log        *slog.Logger

	onWarning    func(string)
	onSelection  func(Selection)
	onInputState func(Field, search.State)
	onInputError func(Field, error)
	onView       func(View)

	mu          sync.Mutex
	visible     bool
	showResults bool
	selection   Selection
	inputs      map[Field]*search.Input
	generation  uint64
	shutdown    bool

	notifyMu sync.Mutex
}

// New creates a closed modal
func New(geocoder geocoding.Geocoder, dispatcher Dispatcher, opts ...Option) *Modal {
	m := &Modal{
		geocoder:    geocoder,
		dispatcher:  dispatcher,
		log:         slog.Default(),
		showResults: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show opens the modal with freshly mounted inputs and hides the results
// panel. Showing an open modal is a no-op.
func (m *Modal) Show() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return ErrShutdown
	}
	if m.visible {
		m.mu.Unlock()
		return nil
	}

	m.generation++
	gen := m.generation
	m.inputs = map[Field]*search.Input{
		FieldFrom: m.mountInput(FieldFrom, OriginPlaceholder, gen),
		FieldTo:   m.mountInput(FieldTo, DestinationPlaceholder, gen),
	}
	m.visible = true
	m.showResults = false

	view := m.viewLocked()
	m.publishLocked(func() {
		if m.onView != nil {
			m.onView(view)
		}
	})
	return nil
}

// Close hides the modal, unmounts its inputs and shows the results panel.
// The selection is kept.
func (m *Modal) Close() {
	m.mu.Lock()
	if !m.visible {
		m.mu.Unlock()
		return
	}
	inputs := m.detachLocked()
	m.visible = false
	m.showResults = true
	m.mu.Unlock()

	closeInputs(inputs)

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	view := m.viewLocked()
	m.publishLocked(func() {
		if m.onView != nil {
			m.onView(view)
		}
	})
}

// Shutdown unmounts everything; the modal cannot be reopened
func (m *Modal) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	inputs := m.detachLocked()
	m.visible = false
	m.mu.Unlock()

	closeInputs(inputs)

	// let an in-progress delivery finish
	m.notifyMu.Lock()
	m.notifyMu.Unlock()
}

// View returns the current visibility flags
func (m *Modal) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// ToggleResults flips the results panel flag
func (m *Modal) ToggleResults() View {
	m.mu.Lock()
	if m.shutdown {
		defer m.mu.Unlock()
		return m.viewLocked()
	}
	m.showResults = !m.showResults
	view := m.viewLocked()
	m.publishLocked(func() {
		if m.onView != nil {
			m.onView(view)
		}
	})
	return view
}

// Selection returns a copy of the current selection
func (m *Modal) Selection() Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.clone()
}

// Query forwards a keystroke to field
func (m *Modal) Query(field Field, text string) error {
	in, err := m.input(field)
	if err != nil {
		return err
	}
	in.OnQueryChange(text)
	return nil
}

// Select chooses the result with id in field's current results
func (m *Modal) Select(field Field, id string) (search.Result, error) {
	in, err := m.input(field)
	if err != nil {
		return search.Result{}, err
	}
	return in.SelectByID(id)
}

// Commit blurs field
func (m *Modal) Commit(field Field) error {
	in, err := m.input(field)
	if err != nil {
		return err
	}
	in.Commit()
	return nil
}

// InputState returns the state of field's input
func (m *Modal) InputState(field Field) (search.State, error) {
	in, err := m.input(field)
	if err != nil {
		return search.State{}, err
	}
	return in.State(), nil
}

// SetCategory chooses the vehicle category
func (m *Modal) SetCategory(value int) error {
	if !ValidCategory(value) {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, value)
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return ErrShutdown
	}
	m.selection.Category = &value
	sel := m.selection.clone()
	m.publishLocked(func() {
		if m.onSelection != nil {
			m.onSelection(sel)
		}
	})
	return nil
}

// SearchRoute dispatches the current selection. With a place or the
// category missing it warns the user, leaves the modal open and returns
// ErrIncompleteSelection. Otherwise the modal is closed and the dispatcher
// is called once; its id is returned.
func (m *Modal) SearchRoute(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return "", ErrShutdown
	}
	sel := m.selection.clone()
	if !sel.Complete() {
		m.publishLocked(func() {
			if m.onWarning != nil {
				m.onWarning(IncompleteSelectionMessage)
			}
		})
		return "", ErrIncompleteSelection
	}
	m.mu.Unlock()

	m.Close()

	req := RouteRequest{
		LocationFrom: sel.LocationFrom.Coordinates.LonLat(),
		LocationTo:   sel.LocationTo.Coordinates.LonLat(),
		Category:     *sel.Category,
		FromTitle:    sel.LocationFrom.Title,
		ToTitle:      sel.LocationTo.Title,
	}

	id, err := m.dispatcher.SearchRoute(ctx, req)
	if err != nil {
		m.log.Error("route search dispatch failed", "error", err)
		return "", err
	}

	m.log.Info("route search dispatched", "id", id, "category", req.Category)
	return id, nil
}

func (m *Modal) input(field Field) (*search.Input, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return nil, ErrShutdown
	}
	if !m.visible {
		return nil, ErrNotVisible
	}
	return m.inputs[field], nil
}

func (m *Modal) mountInput(field Field, placeholder string, gen uint64) *search.Input {
	opts := append([]search.Option{}, m.inputOpts...)
	opts = append(opts,
		search.WithPlaceholder(placeholder),
		search.OnChange(func(s search.State) { m.handleState(field, gen, s) }),
		search.OnSelect(func(r search.Result) { m.handleSelect(field, gen, r) }),
		search.OnError(func(err error) { m.handleError(field, gen, err) }),
	)
	return search.New(m.geocoder, opts...)
}

// current reports whether gen still owns the mounted inputs
func (m *Modal) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible && !m.shutdown && gen == m.generation
}

func (m *Modal) handleState(field Field, gen uint64, s search.State) {
	if m.onInputState == nil || !m.current(gen) {
		return
	}
	m.onInputState(field, s)
}

func (m *Modal) handleError(field Field, gen uint64, err error) {
	if !m.current(gen) {
		return
	}
	m.log.Warn("place lookup failed", "field", field, "error", err)
	if m.onInputError != nil {
		m.onInputError(field, err)
	}
}

func (m *Modal) handleSelect(field Field, gen uint64, r search.Result) {
	m.mu.Lock()
	if !m.visible || m.shutdown || gen != m.generation {
		m.mu.Unlock()
		return
	}

	switch field {
	case FieldFrom:
		m.selection.LocationFrom = &r
	case FieldTo:
		m.selection.LocationTo = &r
	}
	sel := m.selection.clone()
	m.publishLocked(func() {
		if m.onSelection != nil {
			m.onSelection(sel)
		}
	})
}

func (m *Modal) detachLocked() []*search.Input {
	inputs := make([]*search.Input, 0, len(m.inputs))
	for _, in := range m.inputs {
		inputs = append(inputs, in)
	}
	m.inputs = nil
	m.generation++
	return inputs
}

func (m *Modal) viewLocked() View {
	return View{Visible: m.visible, ShowResults: m.showResults}
}

// publishLocked runs deliver in order with other deliveries. It is entered
// with mu held and returns with neither lock held.
func (m *Modal) publishLocked(deliver func()) {
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	deliver()
}

func closeInputs(inputs []*search.Input) {
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in *search.Input) {
			defer wg.Done()
			in.Close()
		}(in)
	}
	wg.Wait()
}
