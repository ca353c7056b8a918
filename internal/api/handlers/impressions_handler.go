package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/api/middleware"
	"github.com/clipiq/feed/internal/api/response"
	"github.com/clipiq/feed/internal/models"
)

const maxWatchEventBodyBytes = 4 << 10

// ImpressionsReadWriter defines the watch-event and history operations the handler needs.
type ImpressionsReadWriter interface {
	RecordWatchEvent(ctx context.Context, userID, videoID uuid.UUID, watchDurationSeconds int, completed bool, impressionID *uuid.UUID) (*models.WatchEvent, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ImpressionHistoryEntry, error)
}

// ImpressionsHandler handles HTTP requests for watch events and impression history.
type ImpressionsHandler struct {
	service ImpressionsReadWriter
}

// NewImpressionsHandler creates a new impressions handler.
func NewImpressionsHandler(service ImpressionsReadWriter) *ImpressionsHandler {
	return &ImpressionsHandler{service: service}
}

// WatchEventRequest is the body for POST /v1/watch-events.
// API contract uses camelCase.
type WatchEventRequest struct {
	VideoID              uuid.UUID  `json:"videoId"`              //nolint:tagliatelle // API contract
	WatchDurationSeconds int        `json:"watchDurationSeconds"` //nolint:tagliatelle // API contract
	Completed            bool       `json:"completed"`
	ImpressionID         *uuid.UUID `json:"impressionId,omitempty"` //nolint:tagliatelle // API contract
}

// CreateWatchEvent handles POST /v1/watch-events.
func (h *ImpressionsHandler) CreateWatchEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing user identity")

		return
	}

	var req WatchEventRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWatchEventBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if req.VideoID == uuid.Nil {
		response.RespondBadRequest(w, "videoId is required")

		return
	}

	if req.WatchDurationSeconds < 0 {
		response.RespondBadRequest(w, "watchDurationSeconds must be non-negative")

		return
	}

	event, err := h.service.RecordWatchEvent(
		r.Context(), userID, req.VideoID, req.WatchDurationSeconds, req.Completed, req.ImpressionID)
	if err != nil {
		response.RespondInternalServerError(w, "Failed to record watch event")

		return
	}

	response.RespondJSON(w, http.StatusCreated, event)
}

// ImpressionHistoryResponse is the response for GET /v1/impressions.
type ImpressionHistoryResponse struct {
	Impressions []models.ImpressionHistoryEntry `json:"impressions"`
	Limit       int                             `json:"limit"`
	Offset      int                             `json:"offset"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ListImpressions handles GET /v1/impressions.
func (h *ImpressionsHandler) ListImpressions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing user identity")

		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			offset = n
		}
	}

	entries, err := h.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		response.RespondInternalServerError(w, "Failed to fetch impression history")

		return
	}

	response.RespondJSON(w, http.StatusOK, ImpressionHistoryResponse{
		Impressions: entries,
		Limit:       limit,
		Offset:      offset,
	})
}
