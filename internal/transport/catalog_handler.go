package transport

import (
	"context"
	"net/http"
	"strconv"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
	"shopwindow/internal/middleware"
	"shopwindow/internal/reconcile"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogSource is the remote catalog surface the handler consumes. The
// cached wrapper satisfies it too, so the handler never knows whether the
// category list came from Redis or from the remote service.
type CatalogSource interface {
	FetchPage(ctx context.Context, f filter.FilterState) (domain.PagedResult, error)
	FetchProduct(ctx context.Context, id int) (domain.ProductRecord, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	Search(ctx context.Context, query string, page, pageSize int) (domain.PagedResult, error)
	Related(ctx context.Context, category string, excludeID int) ([]domain.ProductRecord, error)
}

// CatalogPageResponse is the listing payload. Query is the canonical
// serialized filter state so the client can mirror it into its address bar.
type CatalogPageResponse struct {
	Items      []domain.ProductRecord `json:"items"`
	TotalCount int                    `json:"total_count"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
	Query      string                 `json:"query"`
}

// ProductDetailResponse pairs a product with up to four items from the
// same category.
type ProductDetailResponse struct {
	Product domain.ProductRecord   `json:"product"`
	Related []domain.ProductRecord `json:"related"`
}

// CategoriesResponse wraps the category list.
type CategoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

// CatalogHandler handles HTTP requests for catalog browsing
type CatalogHandler struct {
	source CatalogSource
	logger *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(source CatalogSource, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		source: source,
		logger: logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/categories", h.ListCategories)
		r.Get("/{id}", h.GetProduct)
	})
	r.Get("/api/search", h.Search)
}

// ListProducts serves the filtered, sorted, re-paginated product listing.
// Malformed filter fields fall back to their defaults rather than failing
// the request; the canonical query echoed back tells the client what was
// actually applied.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := filter.Parse(r.URL.Query())
	if err != nil {
		h.logger.Debug("Filter fields fell back to defaults",
			zap.String("raw_query", r.URL.RawQuery),
			zap.Error(err),
		)
	}

	raw, err := h.source.FetchPage(r.Context(), f)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	page := reconcile.Reconcile(raw, f)
	middleware.RespondWithJSON(w, http.StatusOK, toPageResponse(page, f))
}

// GetProduct serves the detail view: the product plus related items from
// its category. A related-items failure degrades to an empty list; the
// detail itself is still worth rendering.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.source.FetchProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	related, err := h.source.Related(r.Context(), product.Category, product.ID)
	if err != nil {
		h.logger.Warn("Related items fetch failed",
			zap.Int("product_id", product.ID),
			zap.String("category", product.Category),
			zap.Error(err),
		)
		related = []domain.ProductRecord{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductDetailResponse{
		Product: product,
		Related: related,
	})
}

// ListCategories serves the category list.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.source.FetchCategories(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// Search passes a free-text query through to the remote search endpoint.
// Page and limit reuse the filter model's parsing rules.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := filter.Parse(r.URL.Query())
	if err != nil {
		h.logger.Debug("Search fields fell back to defaults", zap.Error(err))
	}
	if f.Query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing search query")
		return
	}

	result, err := h.source.Search(r.Context(), f.Query, f.Page, f.PageSize)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPageResponse(result, f))
}

func toPageResponse(page domain.PagedResult, f filter.FilterState) CatalogPageResponse {
	items := page.Items
	if items == nil {
		items = []domain.ProductRecord{}
	}
	totalPages := 0
	if page.RequestedPageSize > 0 {
		totalPages = (page.TotalCount + page.RequestedPageSize - 1) / page.RequestedPageSize
	}
	return CatalogPageResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.RequestedPage,
		PageSize:   page.RequestedPageSize,
		TotalPages: totalPages,
		Query:      f.Encode(),
	}
}
