package transport

import (
	"errors"
	"net/http"
	"strconv"

	"shopwindow/internal/cart"
	"shopwindow/internal/domain"
	"shopwindow/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddItemRequest represents the add-to-cart request payload
type AddItemRequest struct {
	ProductID int     `json:"product_id" validate:"required,gt=0"`
	Title     string  `json:"title" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Thumbnail string  `json:"thumbnail"`
}

// UpdateQuantityRequest represents the quantity update payload. Zero and
// negative quantities are accepted and remove the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse represents the cart contents with totals
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

// CartHandler handles HTTP requests for the session cart
type CartHandler struct {
	service *cart.Service
	logger  *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(service *cart.Service, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{id}", h.UpdateQuantity)
		r.Delete("/items/{id}", h.RemoveItem)
	})
}

// GetCart returns the session's cart with totals
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	items, err := h.service.Items(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to list cart items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	totals, err := h.service.Totals(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to total cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	if items == nil {
		items = []domain.CartItem{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{
		Items:      items,
		TotalItems: totals.TotalItems,
		TotalPrice: totals.TotalPrice,
	})
}

// AddItem puts a product into the cart. A product already present has its
// quantity incremented instead of duplicated.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := domain.CartItem{
		ID:        req.ProductID,
		Title:     req.Title,
		Price:     req.Price,
		Thumbnail: req.Thumbnail,
	}
	if err := h.service.Add(r.Context(), sessionID, item); err != nil {
		h.logger.Error("Failed to add cart item",
			zap.Int("product_id", req.ProductID),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add item")
		return
	}

	h.respondWithCart(w, r, sessionID, http.StatusCreated)
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return
	}
	productID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || productID < 1 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Quantity update decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.UpdateQuantity(r.Context(), sessionID, productID, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to update cart quantity",
			zap.Int("product_id", productID),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.respondWithCart(w, r, sessionID, http.StatusOK)
}

// RemoveItem deletes one line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return
	}
	productID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || productID < 1 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.Remove(r.Context(), sessionID, productID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to remove cart item",
			zap.Int("product_id", productID),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to remove item")
		return
	}

	h.respondWithCart(w, r, sessionID, http.StatusOK)
}

// ClearCart empties the session's cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return
	}

	if err := h.service.Clear(r.Context(), sessionID); err != nil {
		h.logger.Error("Failed to clear cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Items: []domain.CartItem{}})
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, sessionID string, status int) {
	items, err := h.service.Items(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to reload cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	totals, err := h.service.Totals(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to total cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	if items == nil {
		items = []domain.CartItem{}
	}
	middleware.RespondWithJSON(w, status, CartResponse{
		Items:      items,
		TotalItems: totals.TotalItems,
		TotalPrice: totals.TotalPrice,
	})
}
