package transport

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
	"shopwindow/internal/middleware"
	"shopwindow/internal/reconcile"
	"shopwindow/internal/viewstate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetSearchRequest represents the immediate search term update payload.
// An empty query is valid and clears the term.
type SetSearchRequest struct {
	Query string `json:"query"`
}

// SearchInputRequest represents one keystroke of the search box. Input is
// debounced server-side; only the final value of a burst becomes state.
type SearchInputRequest struct {
	Query string `json:"query"`
}

// SetFiltersRequest represents a partial filter update. Nil fields are
// left untouched; categories, when present, replace the selection
// wholesale; the clear flags unset a bound explicitly.
type SetFiltersRequest struct {
	Categories  []string `json:"categories"`
	MinPrice    *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice    *float64 `json:"max_price" validate:"omitempty,gte=0"`
	MinRating   *float64 `json:"min_rating" validate:"omitempty,gte=0,lte=5"`
	InStockOnly *bool    `json:"in_stock_only"`

	ClearMinPrice  bool `json:"clear_min_price"`
	ClearMaxPrice  bool `json:"clear_max_price"`
	ClearMinRating bool `json:"clear_min_rating"`
}

// SetSortRequest represents the sort change payload
type SetSortRequest struct {
	Sort string `json:"sort" validate:"required,oneof=relevance price-asc price-desc rating-desc"`
}

// SetPageRequest represents the page change payload
type SetPageRequest struct {
	Page int `json:"page" validate:"required,gte=1"`
}

// ViewStateResponse echoes the canonical state after a read or mutation.
// Query is the serialized state the client should place in its address
// bar; Navigation tells it to replace the current history entry rather
// than push a new one.
type ViewStateResponse struct {
	Query      string          `json:"query"`
	Navigation string          `json:"navigation"`
	State      FilterStateView `json:"state"`
}

// FilterStateView is the JSON shape of the filter state.
type FilterStateView struct {
	Query       string   `json:"q"`
	Page        int      `json:"page"`
	PageSize    int      `json:"limit"`
	Categories  []string `json:"categories"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	MinRating   *float64 `json:"min_rating,omitempty"`
	Sort        string   `json:"sort"`
	InStockOnly bool     `json:"in_stock"`
}

// DefaultSessionTTL bounds how long an idle session keeps its view
// state. Sessions past it are evicted; a returning visitor starts from
// the default state while cart and preferences persist in their stores.
const DefaultSessionTTL = 30 * time.Minute

// sessionView pairs one session's controller with the last address it
// reported. lastSeen is guarded by the handler's mutex.
type sessionView struct {
	ctrl     *viewstate.Controller
	lastSeen time.Time

	mu        sync.Mutex
	lastQuery url.Values
}

func (v *sessionView) Navigate(query url.Values, _ viewstate.Navigation) {
	v.mu.Lock()
	v.lastQuery = query
	v.mu.Unlock()
}

// ViewStateHandler owns one view-state controller per session
type ViewStateHandler struct {
	mu         sync.Mutex
	sessions   map[string]*sessionView
	lastSweep  time.Time
	sessionTTL time.Duration
	source     CatalogSource
	logger     *zap.Logger
	ctrlOpts   []viewstate.Option
}

// ViewStateOption configures a ViewStateHandler.
type ViewStateOption func(*ViewStateHandler)

// WithSessionTTL overrides the idle-session eviction window.
func WithSessionTTL(d time.Duration) ViewStateOption {
	return func(h *ViewStateHandler) { h.sessionTTL = d }
}

// WithControllerOptions passes options through to every controller the
// handler creates.
func WithControllerOptions(opts ...viewstate.Option) ViewStateOption {
	return func(h *ViewStateHandler) { h.ctrlOpts = opts }
}

// NewViewStateHandler creates a new ViewStateHandler
func NewViewStateHandler(source CatalogSource, logger *zap.Logger, opts ...ViewStateOption) *ViewStateHandler {
	h := &ViewStateHandler{
		sessions:   make(map[string]*sessionView),
		lastSweep:  time.Now(),
		sessionTTL: DefaultSessionTTL,
		source:     source,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all view-state routes
func (h *ViewStateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/view", func(r chi.Router) {
		r.Get("/", h.GetState)
		r.Get("/results", h.GetResults)
		r.Post("/search", h.SetSearch)
		r.Post("/input", h.SearchInput)
		r.Post("/filters", h.SetFilters)
		r.Post("/sort", h.SetSort)
		r.Post("/page", h.SetPage)
	})
}

// Close cancels every session's pending debounce timer.
func (h *ViewStateHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.sessions {
		v.ctrl.Close()
	}
}

func (h *ViewStateHandler) sessionFor(sessionID string) *sessionView {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.sweepLocked(now)

	if v, ok := h.sessions[sessionID]; ok {
		v.lastSeen = now
		return v
	}
	v := &sessionView{lastSeen: now}
	v.ctrl = viewstate.NewController(filter.Default(), v, h.logger, h.ctrlOpts...)
	h.sessions[sessionID] = v
	return v
}

// sweepLocked evicts sessions idle for longer than the TTL. The sweep
// piggybacks on request handling and runs at most once per TTL window,
// so the map stays bounded without a janitor goroutine.
func (h *ViewStateHandler) sweepLocked(now time.Time) {
	if now.Sub(h.lastSweep) < h.sessionTTL {
		return
	}
	h.lastSweep = now

	evicted := 0
	for id, v := range h.sessions {
		if now.Sub(v.lastSeen) >= h.sessionTTL {
			v.ctrl.Close()
			delete(h.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		h.logger.Debug("Evicted idle view-state sessions", zap.Int("count", evicted))
	}
}

// GetState returns the current canonical state for the session
func (h *ViewStateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithState(w, http.StatusOK, v)
}

// GetResults fetches and reconciles the catalog for the session's current
// state. The fetch is tagged with the generation that started it; if the
// state moves on before the remote responds the completion is discarded
// and the reply is 409, telling the client to re-request with the fresh
// state. A stale result is never rendered.
func (h *ViewStateHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var (
		mu       sync.Mutex
		applied  bool
		state    filter.FilterState
		page     domain.PagedResult
		fetchErr error
	)
	coord := viewstate.NewCoordinator(v.ctrl,
		h.source.FetchPage,
		func(f filter.FilterState, result domain.PagedResult, err error) {
			mu.Lock()
			applied, state, page, fetchErr = true, f, result, err
			mu.Unlock()
		},
		h.logger,
	)

	<-coord.Fetch(r.Context())

	mu.Lock()
	defer mu.Unlock()
	if !applied {
		middleware.RespondWithError(w, http.StatusConflict, "view state changed while fetching")
		return
	}
	if fetchErr != nil {
		middleware.RespondWithDomainError(w, h.logger, fetchErr)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPageResponse(reconcile.Reconcile(page, state), state))
}

// SetSearch applies a search term immediately and resets the page.
func (h *ViewStateHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetSearchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Search update decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v.ctrl.SetSearchTerm(req.Query)
	h.respondWithState(w, http.StatusOK, v)
}

// SearchInput feeds one keystroke into the debounce window. The state has
// not changed yet when this responds, so the reply is 202 with the state
// as it currently stands.
func (h *ViewStateHandler) SearchInput(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SearchInputRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Search input decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v.ctrl.SearchInput(req.Query)
	h.respondWithState(w, http.StatusAccepted, v)
}

// SetFilters merges a partial filter update and resets the page.
func (h *ViewStateHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetFiltersRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Filter update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v.ctrl.SetFilters(viewstate.Partial{
		Categories:     req.Categories,
		MinPrice:       req.MinPrice,
		MaxPrice:       req.MaxPrice,
		MinRating:      req.MinRating,
		InStockOnly:    req.InStockOnly,
		ClearMinPrice:  req.ClearMinPrice,
		ClearMaxPrice:  req.ClearMaxPrice,
		ClearMinRating: req.ClearMinRating,
	})
	h.respondWithState(w, http.StatusOK, v)
}

// SetSort changes the ordering without touching the page.
func (h *ViewStateHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetSortRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sort update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v.ctrl.SetSort(filter.SortKey(req.Sort))
	h.respondWithState(w, http.StatusOK, v)
}

// SetPage changes only the current page.
func (h *ViewStateHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetPageRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Page update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v.ctrl.SetPage(req.Page)
	h.respondWithState(w, http.StatusOK, v)
}

func (h *ViewStateHandler) session(w http.ResponseWriter, r *http.Request) (*sessionView, bool) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return nil, false
	}
	return h.sessionFor(sessionID), true
}

func (h *ViewStateHandler) respondWithState(w http.ResponseWriter, status int, v *sessionView) {
	state := v.ctrl.State()
	categories := state.Categories
	if categories == nil {
		categories = []string{}
	}
	middleware.RespondWithJSON(w, status, ViewStateResponse{
		Query:      state.Encode(),
		Navigation: string(viewstate.NavigationReplace),
		State: FilterStateView{
			Query:       state.Query,
			Page:        state.Page,
			PageSize:    state.PageSize,
			Categories:  categories,
			MinPrice:    state.MinPrice,
			MaxPrice:    state.MaxPrice,
			MinRating:   state.MinRating,
			Sort:        string(state.Sort),
			InStockOnly: state.InStockOnly,
		},
	})
}
