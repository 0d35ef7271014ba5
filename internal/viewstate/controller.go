// Package viewstate keeps a single FilterState per session as the source
// of truth and mirrors every change into the client-visible address. The
// synchronizer never mutates state behind the owner's back: downstream
// consumers request changes through the four update operations.
package viewstate

import (
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopwindow/internal/filter"
)

// Navigation distinguishes address updates that push history entries from
// ones that replace the current entry.
type Navigation string

// NavigationReplace replaces the current address instead of pushing, so
// back/forward does not accumulate one entry per keystroke.
const NavigationReplace Navigation = "replace"

// DefaultDebounce is the coalescing window for free-text search input.
const DefaultDebounce = 300 * time.Millisecond

// AddressListener receives the canonical query after every state change.
type AddressListener interface {
	Navigate(query url.Values, nav Navigation)
}

// AddressFunc adapts a function to the AddressListener interface.
type AddressFunc func(query url.Values, nav Navigation)

func (f AddressFunc) Navigate(query url.Values, nav Navigation) { f(query, nav) }

// Partial carries the filter fields a single update wants to change.
// Categories are replaced wholesale when non-nil (never unioned); numeric
// bounds are set when the pointer is non-nil and cleared via the Clear
// flags.
type Partial struct {
	Categories  []string
	MinPrice    *float64
	MaxPrice    *float64
	MinRating   *float64
	InStockOnly *bool

	ClearMinPrice  bool
	ClearMaxPrice  bool
	ClearMinRating bool
}

// Controller owns one FilterState. All four update operations reset the
// page to 1 except SetSort and SetPage itself, and each one re-serializes
// the state into the address with replace semantics.
type Controller struct {
	mu       sync.Mutex
	state    filter.FilterState
	gen      uint64
	listener AddressListener
	logger   *zap.Logger

	debounce   time.Duration
	timer      *time.Timer
	pendingSeq uint64
	closed     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the search input coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// NewController starts from initial and reports changes to listener. A
// nil listener is allowed; state still updates.
func NewController(initial filter.FilterState, listener AddressListener, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		state:    initial,
		listener: listener,
		logger:   logger,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current filter state.
func (c *Controller) State() filter.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Generation returns the monotonic counter advanced by every mutation.
// Fetches tag themselves with it to detect staleness on completion.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Snapshot returns the current state together with the generation that
// produced it, read under a single lock hold. A fetch must tag itself
// with this pair: reading state and generation separately lets a
// mutation land in between, pairing a stale state with a fresh tag.
func (c *Controller) Snapshot() (filter.FilterState, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(), c.gen
}

// WithCurrent runs fn if gen is still the current generation and reports
// whether it ran. fn executes under the state lock, so no mutation can
// slip between the check and fn; fn must not call back into the
// controller.
func (c *Controller) WithCurrent(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	fn()
	return true
}

// SetSearchTerm updates the free-text query and resets the page.
func (c *Controller) SetSearchTerm(q string) {
	c.update(func(f *filter.FilterState) {
		f.Query = q
		f.Page = filter.DefaultPage
	})
}

// SetFilters merges the partial into the state and resets the page.
func (c *Controller) SetFilters(p Partial) {
	c.update(func(f *filter.FilterState) {
		if p.Categories != nil {
			f.Categories = append([]string(nil), p.Categories...)
		}
		if p.MinPrice != nil {
			v := *p.MinPrice
			f.MinPrice = &v
		} else if p.ClearMinPrice {
			f.MinPrice = nil
		}
		if p.MaxPrice != nil {
			v := *p.MaxPrice
			f.MaxPrice = &v
		} else if p.ClearMaxPrice {
			f.MaxPrice = nil
		}
		if p.MinRating != nil {
			v := *p.MinRating
			f.MinRating = &v
		} else if p.ClearMinRating {
			f.MinRating = nil
		}
		if p.InStockOnly != nil {
			f.InStockOnly = *p.InStockOnly
		}
		f.Page = filter.DefaultPage
	})
}

// SetSort changes the ordering without touching the page.
func (c *Controller) SetSort(key filter.SortKey) {
	if !filter.ValidSort(key) {
		c.logger.Debug("Ignoring unknown sort key", zap.String("sort", string(key)))
		return
	}
	c.update(func(f *filter.FilterState) {
		f.Sort = key
	})
}

// SetPage changes only the current page.
func (c *Controller) SetPage(n int) {
	if n < 1 {
		n = filter.DefaultPage
	}
	c.update(func(f *filter.FilterState) {
		f.Page = n
	})
}

// SearchInput feeds one keystroke of the search box. Values arriving
// within the debounce window coalesce: each new value cancels the pending
// timer and only the final value reaches SetSearchTerm, one full window
// after the last keystroke.
func (c *Controller) SearchInput(q string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pendingSeq++
	seq := c.pendingSeq
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		// A newer keystroke or Close superseded this timer between firing
		// and acquiring the lock.
		stale := c.closed || c.pendingSeq != seq
		c.mu.Unlock()
		if stale {
			return
		}
		c.SetSearchTerm(q)
	})
	c.mu.Unlock()
}

// Close cancels any pending debounce timer. Pending input is dropped, not
// flushed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// update applies the mutation, advances the generation, and notifies the
// listener outside the lock.
func (c *Controller) update(mutate func(*filter.FilterState)) {
	c.mu.Lock()
	mutate(&c.state)
	c.gen++
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if c.listener != nil {
		c.listener.Navigate(snapshot.Serialize(), NavigationReplace)
	}
}

func (c *Controller) snapshotLocked() filter.FilterState {
	s := c.state
	s.Categories = append([]string(nil), c.state.Categories...)
	return s
}
