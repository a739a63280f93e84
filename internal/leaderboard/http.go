package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/identity"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	aggregator *Aggregator
	directory  identity.Directory
	logger     zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler. A nil directory skips name enrichment.
func NewHTTPHandler(aggregator *Aggregator, directory identity.Directory, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		aggregator: aggregator,
		directory:  directory,
		logger:     logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the best attempt per player for a quiz.
// Route: GET /results/leaderboard/{quiz_id}?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quiz_id")
	if quizID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "quiz id required", "quiz_id")
		return
	}

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "limit must be an integer", "limit")
			return
		}
		limit = ClampLimit(parsed)
	}

	ctx := r.Context()
	entries, err := h.aggregator.Top(ctx, quizID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("quiz_id", quizID).Msg("leaderboard fetch failed")
		httperrors.RespondInternalError(w, "Failed to fetch leaderboard")
		return
	}

	if h.directory != nil && len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.PlayerID
		}
		names := h.directory.DisplayNames(identity.WithAuthorization(ctx, r.Header.Get("Authorization")), ids)
		for i := range entries {
			entries[i].DisplayName = names[entries[i].PlayerID]
		}
	}

	writeJSON(w, map[string]interface{}{
		"quiz_id":     quizID,
		"leaderboard": entries,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
