package submission_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-results/internal/submission"
)

type httpFixture struct {
	*fixture
	mux   http.Handler
	token string
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	f := newFixture()
	mgr := jwt.NewManager(jwt.TokenConfig{Secret: []byte("secret")})
	token, err := mgr.Issue("42", "", jwt.RoleUser)
	require.NoError(t, err)

	h := submission.NewHTTPHandler(f.disp, zerolog.Nop())
	mux := http.NewServeMux()
	mux.Handle("POST /results/submit", auth.RequireAuth(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /results/submissions", auth.RequireAuth(http.HandlerFunc(h.History)))
	mux.Handle("GET /results/submissions/{submission_id}", auth.RequireAuth(http.HandlerFunc(h.Status)))

	return &httpFixture{
		fixture: f,
		mux:     auth.Middleware(mgr, zerolog.Nop())(mux),
		token:   token,
	}
}

func (f *httpFixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const validBody = `{"answers":[{"question_id":"qa","answer_ids":["a1"]}],"time_spent_seconds":45}`

func TestHTTPSubmitAccepted(t *testing.T) {
	f := newHTTPFixture(t)

	rec := f.do(http.MethodPost, "/results/submit?quiz_id=q1", validBody, true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "submitted", body["status"])
	assert.NotEmpty(t, body["submission_id"])
	assert.NotContains(t, body, "score")

	status := f.do(http.MethodGet, "/results/submissions/"+body["submission_id"].(string), "", true)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Equal(t, "RECEIVED", decode(t, status)["status"])
}

func TestHTTPSubmitQuizIDInBody(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(http.MethodPost, "/results/submit",
		`{"quiz_id":"q1","answers":[],"time_spent_seconds":0}`, true)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHTTPSubmitErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		authed bool
		status int
		code   string
		field  string
	}{
		{"unauthenticated", "/results/submit?quiz_id=q1", validBody, false, http.StatusUnauthorized, "authentication_required", ""},
		{"bad json", "/results/submit?quiz_id=q1", `{"answers":`, true, http.StatusBadRequest, "invalid_request", ""},
		{"missing answers", "/results/submit?quiz_id=q1", `{"time_spent_seconds":3}`, true, http.StatusBadRequest, "validation_failed", "answers"},
		{"negative time", "/results/submit?quiz_id=q1", `{"answers":[],"time_spent_seconds":-3}`, true, http.StatusBadRequest, "validation_failed", "time_spent_seconds"},
		{"unknown quiz", "/results/submit?quiz_id=zzz", validBody, true, http.StatusNotFound, "quiz_not_found", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHTTPFixture(t)
			rec := f.do(http.MethodPost, tc.path, tc.body, tc.authed)
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tc.code, body["error"])
			if tc.field != "" {
				assert.Equal(t, tc.field, body["field"])
			}
		})
	}
}

func TestHTTPSubmitReportsAnswerIndex(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(http.MethodPost, "/results/submit?quiz_id=q1",
		`{"answers":[{"question_id":"qa","answer_ids":["a1"]},{"question_id":"","answer_ids":[]}],"time_spent_seconds":5}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "answers.question_id", body["field"])
	assert.Equal(t, map[string]interface{}{"index": float64(1)}, body["details"])
}

func TestHTTPStatusUnknownSubmission(t *testing.T) {
	f := newHTTPFixture(t)
	rec := f.do(http.MethodGet, "/results/submissions/nope", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "submission_not_found", decode(t, rec)["error"])
}

func TestHTTPHistoryListsOwnSubmissions(t *testing.T) {
	f := newHTTPFixture(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/results/submit?quiz_id=q1", validBody, true).Code)
	}
	_, err := f.disp.Submit(context.Background(), "someone-else", validRequest())
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/results/submissions", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])

	bad := f.do(http.MethodGet, "/results/submissions?limit=x", "", true)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
