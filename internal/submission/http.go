package submission

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	"github.com/gokatarajesh/quiz-results/internal/quiz"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
)

const maxBodyBytes = 1 << 20

// HTTPHandler exposes submission intake and status.
type HTTPHandler struct {
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

func NewHTTPHandler(dispatcher *Dispatcher, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "submission_http").Logger(),
	}
}

type submitBody struct {
	QuizID string `json:"quiz_id"`
	Request
}

// Submit accepts an attempt and answers 202 with a receipt. No score is returned.
// Route: POST /results/submit?quiz_id={quiz_id}
func (h *HTTPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	req := body.Request
	req.QuizID = r.URL.Query().Get("quiz_id")
	if req.QuizID == "" {
		req.QuizID = body.QuizID
	}

	receipt, err := h.dispatcher.Submit(r.Context(), auth.PlayerID(r.Context()), req)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			problem := httperrors.Problem{Error: httperrors.ErrCodeValidationFailed, Message: verr.Message, Field: verr.Field}
			if verr.Index != nil {
				problem = problem.WithDetail("index", *verr.Index)
			}
			httperrors.Write(w, http.StatusBadRequest, problem)
		case errors.Is(err, quiz.ErrNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found")
		default:
			h.logger.Error().Err(err).Str("quiz_id", req.QuizID).Msg("submission intake failed")
			httperrors.Respond(w, httperrors.ErrCodeSubmitFailed, "Submission could not be recorded, please retry")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

// Status reports where a submission is in the pipeline.
// Route: GET /results/submissions/{submission_id}
func (h *HTTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("submission_id")
	sub, err := h.dispatcher.Status(r.Context(), auth.PlayerID(r.Context()), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSubmissionNotFound, "Submission not found")
			return
		}
		h.logger.Error().Err(err).Str("submission_id", id).Msg("submission status lookup failed")
		httperrors.RespondInternalError(w, "Failed to load submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// History lists the caller's submissions so pending and failed attempts are visible.
// Route: GET /results/submissions?limit=N
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "limit must be an integer", "limit")
			return
		}
		limit = n
	}

	subs, err := h.dispatcher.History(r.Context(), auth.PlayerID(r.Context()), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("submission history lookup failed")
		httperrors.RespondInternalError(w, "Failed to load submissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"count":       len(subs),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
