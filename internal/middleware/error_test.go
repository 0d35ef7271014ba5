package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopwindow/internal/domain"
)

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, "internal server error", resp.Error.Message)
	assert.NotEmpty(t, resp.Error.Timestamp)
}

func TestErrorHandlingMiddleware_PassesThroughNormally(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRespondWithDomainError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, zap.NewNop(), &domain.NotFoundError{Resource: "product", ID: "9"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Contains(t, resp.Error.Message, "product 9 not found")
}

func TestRespondWithDomainError_RemoteIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, zap.NewNop(), &domain.RemoteError{Status: 503, Reason: "unexpected status"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, true, resp.Error.Details["retryable"])
}

func TestRespondWithDomainError_WrappedRemote(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := fmt.Errorf("fetch page: %w", &domain.RemoteError{Reason: "decoding response body"})
	RespondWithDomainError(rec, zap.NewNop(), wrapped)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRespondWithDomainError_UnknownIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, zap.NewNop(), errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeErrorResponse(t, rec)
	// Internal details never leak into the envelope.
	assert.Equal(t, "internal server error", resp.Error.Message)
}
