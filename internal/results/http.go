package results

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
)

// HTTPHandler serves stored attempt results.
type HTTPHandler struct {
	store  Store
	logger zerolog.Logger
}

func NewHTTPHandler(store Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		store:  store,
		logger: logger.With().Str("component", "results_http").Logger(),
	}
}

type resultView struct {
	AttemptResult
	Percentage float64 `json:"percentage"`
}

func toViews(list []AttemptResult) []resultView {
	out := make([]resultView, len(list))
	for i, r := range list {
		out[i] = resultView{AttemptResult: r, Percentage: r.Percentage()}
	}
	return out
}

// MyResults lists the caller's attempts, newest first.
// Route: GET /results/my-results
func (h *HTTPHandler) MyResults(w http.ResponseWriter, r *http.Request) {
	playerID := auth.PlayerID(r.Context())
	list, err := h.store.ByPlayer(r.Context(), playerID)
	if err != nil {
		h.logger.Error().Err(err).Str("player_id", playerID).Msg("list player results failed")
		httperrors.RespondInternalError(w, "Failed to load results")
		return
	}

	writeJSON(w, map[string]interface{}{
		"results": toViews(list),
		"count":   len(list),
	})
}

// Get returns one result to its owner or to staff.
// Route: GET /results/{result_id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("result_id")
	res, err := h.store.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeResultNotFound, "Result not found")
			return
		}
		h.logger.Error().Err(err).Str("result_id", id).Msg("load result failed")
		httperrors.RespondInternalError(w, "Failed to load result")
		return
	}

	if res.PlayerID != auth.PlayerID(r.Context()) && !auth.HasRole(r.Context(), jwt.RoleAdmin, jwt.RoleModerator) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Not allowed to view this result")
		return
	}

	writeJSON(w, resultView{AttemptResult: res, Percentage: res.Percentage()})
}

// ByQuiz lists every attempt on a quiz, best first. Staff only.
// Route: GET /results/quiz/{quiz_id}
func (h *HTTPHandler) ByQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quiz_id")
	list, err := h.store.ByQuiz(r.Context(), quizID)
	if err != nil {
		h.logger.Error().Err(err).Str("quiz_id", quizID).Msg("list quiz results failed")
		httperrors.RespondInternalError(w, "Failed to load results")
		return
	}

	writeJSON(w, map[string]interface{}{
		"quiz_id": quizID,
		"results": toViews(list),
		"count":   len(list),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
