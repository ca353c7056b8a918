// Package handlers contains the HTTP handlers for the feed API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/api/middleware"
	"github.com/clipiq/feed/internal/api/response"
	"github.com/clipiq/feed/internal/feederrors"
	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/internal/service"
)

// FeedGenerator defines the feed operations the handler needs.
type FeedGenerator interface {
	GeneratePersonalFeed(ctx context.Context, userID, sessionID uuid.UUID, limit int) (*models.Feed, error)
	GenerateTrendingFeed(ctx context.Context, userID, sessionID uuid.UUID, limit int) (*models.Feed, error)
}

// FeedHandler handles HTTP requests for feed pages.
type FeedHandler struct {
	service FeedGenerator
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(service FeedGenerator) *FeedHandler {
	return &FeedHandler{service: service}
}

// PersonalFeed handles GET /v1/feed/personal.
func (h *FeedHandler) PersonalFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, h.service.GeneratePersonalFeed)
}

// TrendingFeed handles GET /v1/feed/trending.
func (h *FeedHandler) TrendingFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, h.service.GenerateTrendingFeed)
}

func (h *FeedHandler) serveFeed(
	w http.ResponseWriter, r *http.Request,
	generate func(ctx context.Context, userID, sessionID uuid.UUID, limit int) (*models.Feed, error),
) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing user identity")

		return
	}

	sessionIDStr := r.URL.Query().Get("session_id")
	if sessionIDStr == "" {
		sessionIDStr = r.Header.Get("X-Session-Id")
	}

	if sessionIDStr == "" {
		response.RespondBadRequest(w, "session_id is required (query parameter or X-Session-Id header)")

		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		response.RespondBadRequest(w, "Invalid session_id")

		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		response.RespondBadRequest(w, err.Error())

		return
	}

	feed, err := generate(r.Context(), userID, sessionID, limit)
	if err != nil {
		switch {
		case errors.Is(err, feederrors.ErrSourceUnavailable):
			response.RespondServiceUnavailable(w, "Feed source temporarily unavailable")
		case errors.Is(err, feederrors.ErrHydration), errors.Is(err, feederrors.ErrImpressionWrite):
			response.RespondInternalServerError(w, "Feed generation failed")
		default:
			response.RespondInternalServerError(w, "Feed generation failed")
		}

		return
	}

	response.RespondJSON(w, http.StatusOK, feed)
}

// parseLimit parses the limit query param; empty means the service default.
func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(s)
	if err != nil || limit < 1 {
		return 0, feederrors.NewValidationError("limit", "limit must be a positive integer")
	}

	if limit > service.MaxFeedLimit {
		return 0, feederrors.NewValidationError("limit", "limit must be at most "+strconv.Itoa(service.MaxFeedLimit))
	}

	return limit, nil
}
