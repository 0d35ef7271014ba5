package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
)

func testProduct(id int) map[string]interface{} {
	return map[string]interface{}{
		"id":                 id,
		"title":              "Widget",
		"description":        "A widget",
		"brand":              "Acme",
		"category":           "widgets",
		"price":              9.99,
		"discountPercentage": 5.0,
		"rating":             4.2,
		"stock":              12,
		"thumbnail":          "https://cdn.example/widget.png",
		"images":             []string{"https://cdn.example/widget.png"},
	}
}

func pageBody(total int, products ...map[string]interface{}) map[string]interface{} {
	if products == nil {
		products = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"products": products,
		"total":    total,
		"skip":     0,
		"limit":    len(products),
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGateway(Config{BaseURL: srv.URL}, zap.NewNop()), srv
}

func TestFetchPage_OverFetchesRemoteWindow(t *testing.T) {
	var gotPath, gotLimit, gotSkip string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotSkip = r.URL.Query().Get("skip")
		json.NewEncoder(w).Encode(pageBody(100, testProduct(1)))
	})

	f := filter.Default()
	f.Page = 3
	f.PageSize = 10

	got, err := gw.FetchPage(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, "/products", gotPath)
	// Remote limit is max(pageSize, 100); skip follows the requested page.
	assert.Equal(t, "100", gotLimit)
	assert.Equal(t, "20", gotSkip)
	assert.Equal(t, 100, got.TotalCount)
	assert.Equal(t, 3, got.RequestedPage)
	assert.Equal(t, 10, got.RequestedPageSize)
}

func TestFetchPage_LargePageSizeIsNotShrunk(t *testing.T) {
	var gotLimit string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(pageBody(0))
	})

	f := filter.Default()
	f.PageSize = 100

	_, err := gw.FetchPage(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "100", gotLimit)
}

func TestFetchPage_UsesFirstSelectedCategoryOnly(t *testing.T) {
	var gotPath string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(pageBody(5, testProduct(1)))
	})

	f := filter.Default()
	f.Categories = []string{"electronics", "books"}

	_, err := gw.FetchPage(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "/products/category/electronics", gotPath)
}

func TestFetchPage_RemoteErrorOnBadStatus(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := gw.FetchPage(context.Background(), filter.Default())
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
}

func TestFetchPage_RemoteErrorOnMalformedPayload(t *testing.T) {
	broken := testProduct(1)
	broken["title"] = "" // required field
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pageBody(1, broken))
	})

	_, err := gw.FetchPage(context.Background(), filter.Default())
	assert.True(t, domain.IsRemote(err), "shape mismatch must be a RemoteError, got %v", err)
}

func TestFetchPage_RemoteErrorOnUndecodableBody(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := gw.FetchPage(context.Background(), filter.Default())
	assert.True(t, domain.IsRemote(err))
}

func TestFetchPage_DefaultsMissingBrand(t *testing.T) {
	noBrand := testProduct(1)
	delete(noBrand, "brand")
	nullBrand := testProduct(2)
	nullBrand["brand"] = nil

	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pageBody(2, noBrand, nullBrand))
	})

	got, err := gw.FetchPage(context.Background(), filter.Default())
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Unknown brand", got.Items[0].Brand)
	assert.Equal(t, "Unknown brand", got.Items[1].Brand)
}

func TestFetchProduct_NotFound(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := gw.FetchProduct(context.Background(), 9999)
	assert.True(t, domain.IsNotFound(err), "remote 404 must map to NotFoundError, got %v", err)
}

func TestFetchProduct_Success(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/7", r.URL.Path)
		json.NewEncoder(w).Encode(testProduct(7))
	})

	got, err := gw.FetchProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "Acme", got.Brand)
}

func TestFetchCategories(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/categories", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]string{
			{"slug": "beauty", "name": "Beauty", "url": "https://api.example/products/category/beauty"},
		})
	})

	got, err := gw.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "beauty", got[0].Slug)
}

func TestSearch_PassesQueryAndWindow(t *testing.T) {
	var gotQuery, gotLimit, gotSkip string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		gotSkip = r.URL.Query().Get("skip")
		json.NewEncoder(w).Encode(pageBody(1, testProduct(1)))
	})

	_, err := gw.Search(context.Background(), "red shoes", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, "red shoes", gotQuery)
	assert.Equal(t, "10", gotLimit)
	assert.Equal(t, "10", gotSkip)
}

func TestSearch_RemoteErrorOnNegativeTotal(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pageBody(-5, testProduct(1)))
	})

	_, err := gw.Search(context.Background(), "widget", 1, 10)
	assert.True(t, domain.IsRemote(err), "negative total must be a RemoteError, got %v", err)
}

func TestRelated_RemoteErrorOnNegativeTotal(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pageBody(-1, testProduct(1)))
	})

	_, err := gw.Related(context.Background(), "widgets", 1)
	assert.True(t, domain.IsRemote(err), "negative total must be a RemoteError, got %v", err)
}

func TestRelated_ExcludesViewedProduct(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/category/widgets", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(pageBody(3, testProduct(1), testProduct(2), testProduct(3)))
	})

	got, err := gw.Related(context.Background(), "widgets", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.NotEqual(t, 2, p.ID)
	}
}
