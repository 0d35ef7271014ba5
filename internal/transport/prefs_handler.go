package transport

import (
	"errors"
	"net/http"

	"shopwindow/internal/middleware"
	"shopwindow/internal/prefs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetPreferenceRequest represents a preference update payload
type SetPreferenceRequest struct {
	Value string `json:"value" validate:"required"`
}

// PreferenceResponse represents a stored preference value
type PreferenceResponse struct {
	Value string `json:"value"`
}

// PrefsHandler handles HTTP requests for the persisted UI preferences
type PrefsHandler struct {
	theme   prefs.Store
	sidebar prefs.Store
	logger  *zap.Logger
}

// NewPrefsHandler creates a new PrefsHandler
func NewPrefsHandler(theme, sidebar prefs.Store, logger *zap.Logger) *PrefsHandler {
	return &PrefsHandler{
		theme:   theme,
		sidebar: sidebar,
		logger:  logger,
	}
}

// RegisterRoutes registers all preference routes
func (h *PrefsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/prefs", func(r chi.Router) {
		r.Get("/theme", h.getPref(h.theme, "theme"))
		r.Put("/theme", h.setPref(h.theme, "theme"))
		r.Get("/sidebar", h.getPref(h.sidebar, "sidebar"))
		r.Put("/sidebar", h.setPref(h.sidebar, "sidebar"))
	})
}

func (h *PrefsHandler) getPref(store prefs.Store, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := middleware.GetSessionID(r.Context())
		if !ok {
			middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
			return
		}

		value, err := store.Get(r.Context(), sessionID)
		if err != nil {
			h.logger.Error("Failed to read preference",
				zap.String("preference", name),
				zap.Error(err),
			)
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read preference")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, PreferenceResponse{Value: value})
	}
}

func (h *PrefsHandler) setPref(store prefs.Store, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := middleware.GetSessionID(r.Context())
		if !ok {
			middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
			return
		}

		var req SetPreferenceRequest
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			h.logger.Debug("Preference update validation failed", zap.Error(err))

			if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
				middleware.RespondWithValidationErrors(w, validationErrors)
				return
			}

			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.Set(r.Context(), sessionID, req.Value); err != nil {
			if errors.Is(err, prefs.ErrInvalidValue) {
				middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("Failed to persist preference",
				zap.String("preference", name),
				zap.Error(err),
			)
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to save preference")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, PreferenceResponse{Value: req.Value})
	}
}
