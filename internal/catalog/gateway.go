// Package catalog talks to the remote product service. Responses are
// decoded, shape-validated, and normalized at this boundary; anything that
// does not match the expected shape becomes a RemoteError, never a partial
// result.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
)

const (
	// overFetchFloor is the minimum remote page size. The remote window is
	// the only universe client-side filtering can operate on, so the
	// gateway over-fetches rather than let an under-fetched window
	// silently shrink filtered results.
	overFetchFloor = 100

	// relatedLimit caps the related-items fetch on the detail view.
	relatedLimit = 4

	// unknownBrand replaces an absent or null brand at the boundary.
	unknownBrand = "Unknown brand"
)

// Config holds gateway settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Gateway is the HTTP client for the remote catalog service.
type Gateway struct {
	base     string
	client   *http.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// NewGateway creates a Gateway for the given remote base URL.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		base:     cfg.BaseURL,
		client:   &http.Client{Timeout: timeout},
		validate: validator.New(),
		logger:   logger,
	}
}

// productPayload mirrors the remote product shape. Brand is nullable and
// often absent; everything else is mandatory.
type productPayload struct {
	ID                 int      `json:"id" validate:"required"`
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description"`
	Brand              *string  `json:"brand"`
	Category           string   `json:"category" validate:"required"`
	Price              float64  `json:"price" validate:"gte=0"`
	DiscountPercentage float64  `json:"discountPercentage" validate:"gte=0,lte=100"`
	Rating             float64  `json:"rating" validate:"gte=0,lte=5"`
	Stock              int      `json:"stock" validate:"gte=0"`
	Thumbnail          string   `json:"thumbnail" validate:"required"`
	Images             []string `json:"images" validate:"min=1"`
}

type pagePayload struct {
	Products []productPayload `json:"products"`
	Total    int              `json:"total" validate:"gte=0"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

type categoryPayload struct {
	Slug string `json:"slug" validate:"required"`
	Name string `json:"name" validate:"required"`
	URL  string `json:"url"`
}

// FetchPage retrieves the remote window for the given filter state.
//
// The remote skip is computed from the requested page, but the remote
// limit is max(pageSize, 100): client-side post-filtering needs a wide
// window to re-paginate from. When categories are selected the fetch is
// scoped to the FIRST one only; the remote source cannot express
// multi-category selection and that limitation is preserved, not papered
// over. The free-text query is carried in state but not sent here.
func (g *Gateway) FetchPage(ctx context.Context, f filter.FilterState) (domain.PagedResult, error) {
	skip := (f.Page - 1) * f.PageSize
	limit := f.PageSize
	if limit < overFetchFloor {
		limit = overFetchFloor
	}

	endpoint := "/products"
	if len(f.Categories) > 0 {
		endpoint = "/products/category/" + url.PathEscape(f.Categories[0])
	}
	endpoint += "?limit=" + strconv.Itoa(limit) + "&skip=" + strconv.Itoa(skip)

	items, total, err := g.fetchPagePayload(ctx, endpoint)
	if err != nil {
		return domain.PagedResult{}, err
	}

	return domain.PagedResult{
		Items:             items,
		TotalCount:        total,
		RequestedPage:     f.Page,
		RequestedPageSize: f.PageSize,
	}, nil
}

// fetchPagePayload retrieves, validates, and normalizes one page
// endpoint. Every page-shaped response goes through here so the
// validation is uniform across listing, search, and related fetches.
func (g *Gateway) fetchPagePayload(ctx context.Context, endpoint string) ([]domain.ProductRecord, int, error) {
	var payload pagePayload
	if err := g.get(ctx, endpoint, &payload); err != nil {
		return nil, 0, err
	}
	if err := g.validate.Struct(payload); err != nil {
		return nil, 0, &domain.RemoteError{Reason: "page payload failed validation", Err: err}
	}
	items, err := g.toRecords(payload.Products)
	if err != nil {
		return nil, 0, err
	}
	return items, payload.Total, nil
}

// Search queries the remote full-text search endpoint.
func (g *Gateway) Search(ctx context.Context, query string, page, pageSize int) (domain.PagedResult, error) {
	skip := (page - 1) * pageSize
	endpoint := "/products/search?q=" + url.QueryEscape(query) +
		"&limit=" + strconv.Itoa(pageSize) + "&skip=" + strconv.Itoa(skip)

	items, total, err := g.fetchPagePayload(ctx, endpoint)
	if err != nil {
		return domain.PagedResult{}, err
	}

	return domain.PagedResult{
		Items:             items,
		TotalCount:        total,
		RequestedPage:     page,
		RequestedPageSize: pageSize,
	}, nil
}

// FetchProduct retrieves a single product by id.
func (g *Gateway) FetchProduct(ctx context.Context, id int) (domain.ProductRecord, error) {
	var payload productPayload
	err := g.get(ctx, "/products/"+strconv.Itoa(id), &payload)
	if err != nil {
		var re *domain.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return domain.ProductRecord{}, &domain.NotFoundError{Resource: "product", ID: strconv.Itoa(id)}
		}
		return domain.ProductRecord{}, err
	}
	if err := g.validate.Struct(payload); err != nil {
		return domain.ProductRecord{}, &domain.RemoteError{Reason: "product payload failed validation", Err: err}
	}
	return toRecord(payload), nil
}

// FetchCategories retrieves the category list. The core consumes slugs;
// names and URLs ride along for display.
func (g *Gateway) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var payload []categoryPayload
	if err := g.get(ctx, "/products/categories", &payload); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(payload))
	for i, c := range payload {
		if err := g.validate.Struct(c); err != nil {
			return nil, &domain.RemoteError{
				Reason: fmt.Sprintf("category %d failed validation", i),
				Err:    err,
			}
		}
		categories = append(categories, domain.Category{Slug: c.Slug, Name: c.Name, URL: c.URL})
	}
	return categories, nil
}

// Related returns up to four products from the same category, excluding
// the product being viewed.
func (g *Gateway) Related(ctx context.Context, category string, excludeID int) ([]domain.ProductRecord, error) {
	endpoint := "/products/category/" + url.PathEscape(category) +
		"?limit=" + strconv.Itoa(relatedLimit) + "&skip=0"

	items, _, err := g.fetchPagePayload(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	related := make([]domain.ProductRecord, 0, len(items))
	for _, p := range items {
		if p.ID != excludeID {
			related = append(related, p)
		}
	}
	return related, nil
}

// get performs one request and decodes the body into out. Non-2xx status
// and undecodable bodies both become RemoteError.
func (g *Gateway) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+endpoint, nil)
	if err != nil {
		return &domain.RemoteError{Reason: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &domain.RemoteError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("Remote catalog returned non-success status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.RemoteError{Status: resp.StatusCode, Reason: "unexpected status"}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteError{Reason: "decoding response body", Err: err}
	}
	return nil
}

// toRecords validates and normalizes a slice of raw products.
func (g *Gateway) toRecords(payloads []productPayload) ([]domain.ProductRecord, error) {
	records := make([]domain.ProductRecord, 0, len(payloads))
	for i, p := range payloads {
		if err := g.validate.Struct(p); err != nil {
			return nil, &domain.RemoteError{
				Reason: fmt.Sprintf("product %d failed validation", i),
				Err:    err,
			}
		}
		records = append(records, toRecord(p))
	}
	return records, nil
}

func toRecord(p productPayload) domain.ProductRecord {
	brand := unknownBrand
	if p.Brand != nil && *p.Brand != "" {
		brand = *p.Brand
	}
	return domain.ProductRecord{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Brand:              brand,
		Category:           p.Category,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		Stock:              p.Stock,
		Thumbnail:          p.Thumbnail,
		Images:             p.Images,
	}
}
