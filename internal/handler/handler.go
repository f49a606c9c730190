package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"card-offer-finder/internal/models"
	"card-offer-finder/internal/selection"
	"card-offer-finder/internal/service"
	"card-offer-finder/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/catalog/banks", h.ListBanks)

	r.Route("/selection", func(r chi.Router) {
		r.Get("/", h.GetSelection)
		r.Delete("/", h.ClearSelection)
		r.Post("/toggle", h.ToggleCard)
		r.Post("/restore", h.RestoreSelection)
	})

	r.Get("/offers", h.GetOffers)
	r.Get("/offers/best", h.GetBestOffers)

	r.Route("/usage", func(r chi.Router) {
		r.Post("/", h.RecordUsage)
		r.Put("/", h.EditUsage)
		r.Get("/{card_id}/{source}", h.GetUsage)
	})

	r.Route("/carousel", func(r chi.Router) {
		r.Get("/", h.GetCarousel)
		r.Delete("/", h.StopCarousel)
		r.Post("/next", h.NextSlide)
		r.Post("/jump", h.JumpToSlide)
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ListBanks handles GET /catalog/banks?q=
func (h *Handler) ListBanks(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.BankGroups(r.URL.Query().Get("q")))
}

// GetSelection handles GET /selection
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Selection())
}

// ToggleCard handles POST /selection/toggle
func (h *Handler) ToggleCard(w http.ResponseWriter, r *http.Request) {
	var req models.ToggleSelectionRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Toggle(r.Context(), validation.SanitizeString(req.CardID))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ClearSelection handles DELETE /selection
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Clear(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// RestoreSelection handles POST /selection/restore?cards=a,b
//
// Without a cards parameter the saved selection is reloaded.
func (h *Handler) RestoreSelection(w http.ResponseWriter, r *http.Request) {
	ids := selection.ParseShareQuery(r.URL.RawQuery)

	resp, err := h.service.Restore(r.Context(), ids)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetOffers handles GET /offers
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	// Parse optional 'now' query parameter
	var now time.Time
	if nowParam := r.URL.Query().Get("now"); nowParam != "" {
		nowParam = validation.SanitizeString(nowParam)
		parsed, err := validation.ValidateTimeString(nowParam)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'now' parameter, must be RFC3339 or YYYY-MM-DD")
			return
		}
		now = parsed
	}

	h.respondJSON(w, http.StatusOK, h.service.Offers(r.Context(), now))
}

// GetBestOffers handles GET /offers/best
func (h *Handler) GetBestOffers(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Best(r.Context()))
}

// RecordUsage handles POST /usage
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req models.RecordUsageRequest
	if !h.decode(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := validation.ValidateTimeString(validation.SanitizeString(req.Date))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'date', must be RFC3339 or YYYY-MM-DD")
			return
		}
		date = parsed
	}

	resp, err := h.service.RecordUsage(r.Context(),
		validation.SanitizeString(req.CardID),
		models.Source(validation.SanitizeString(string(req.Source))),
		date)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

// EditUsage handles PUT /usage
func (h *Handler) EditUsage(w http.ResponseWriter, r *http.Request) {
	var req models.EditUsageRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := validation.ValidateTimeString(validation.SanitizeString(req.Date))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid 'date', must be RFC3339 or YYYY-MM-DD")
		return
	}

	resp, err := h.service.EditUsage(r.Context(),
		validation.SanitizeString(req.CardID),
		models.Source(validation.SanitizeString(string(req.Source))),
		req.Index,
		date)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetUsage handles GET /usage/{card_id}/{source}
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	cardID := urlParam(r, "card_id")
	source := models.Source(urlParam(r, "source"))

	resp, err := h.service.Usages(cardID, source)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetCarousel handles GET /carousel
func (h *Handler) GetCarousel(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Carousel())
}

// NextSlide handles POST /carousel/next
func (h *Handler) NextSlide(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.NextSlide())
}

// JumpToSlide handles POST /carousel/jump
func (h *Handler) JumpToSlide(w http.ResponseWriter, r *http.Request) {
	var req models.JumpRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.JumpTo(req.Index)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// StopCarousel handles DELETE /carousel, sent when leaving the offers screen.
func (h *Handler) StopCarousel(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.LeaveOffers())
}

// decode reads a JSON body into dst, writing a 400 and returning false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	return true
}

// urlParam returns the unescaped, sanitized path parameter.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	return validation.SanitizeString(value)
}

// respondServiceError maps service errors to status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCardNotFound), errors.Is(err, service.ErrOfferNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
