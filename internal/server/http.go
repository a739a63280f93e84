package server

import (
	"context"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth"
	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-results/internal/config"
	"github.com/gokatarajesh/quiz-results/internal/leaderboard"
	"github.com/gokatarajesh/quiz-results/internal/logging"
	"github.com/gokatarajesh/quiz-results/internal/results"
	"github.com/gokatarajesh/quiz-results/internal/submission"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
)

// NewUpgrader builds the WebSocket upgrader. Origins follow the CORS allow list;
// requests without an Origin header (non-browser clients) are accepted.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := set["*"]; ok {
				return true
			}
			_, ok := set[origin]
			return ok
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Pinger is anything /v1/ping should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the route handlers mounted by NewHTTPServer.
type Handlers struct {
	Tokens      auth.TokenValidator
	Submissions *submission.HTTPHandler
	Results     *results.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	Socket      *leaderboard.SocketHandler
}

// NewHTTPServer wires health, metrics and the results API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, store Pinger, redis *redis.Client, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		if err := pingDependencies(r.Context(), store, redis); err != nil {
			log.Error().Err(err).Msg("dependency ping failed")
			httperrors.Respond(w, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h.Submissions != nil {
		mux.Handle("POST /results/submit", auth.RequireAuth(http.HandlerFunc(h.Submissions.Submit)))
		mux.Handle("GET /results/submissions", auth.RequireAuth(http.HandlerFunc(h.Submissions.History)))
		mux.Handle("GET /results/submissions/{submission_id}", auth.RequireAuth(http.HandlerFunc(h.Submissions.Status)))
	}

	if h.Results != nil {
		mux.Handle("GET /results/my-results", auth.RequireAuth(http.HandlerFunc(h.Results.MyResults)))
		mux.Handle("GET /results/quiz/{quiz_id}",
			auth.RequireRole(jwt.RoleAdmin, jwt.RoleModerator)(http.HandlerFunc(h.Results.ByQuiz)))
		mux.Handle("GET /results/{result_id}", auth.RequireAuth(http.HandlerFunc(h.Results.Get)))
	}

	if h.Leaderboard != nil {
		mux.HandleFunc("GET /results/leaderboard/{quiz_id}", h.Leaderboard.HandleGet)
	}

	if h.Socket != nil {
		mux.Handle("GET /ws/results", auth.RequireAuth(http.HandlerFunc(h.Socket.HandleWebSocket)))
	}

	var handler http.Handler = mux
	if h.Tokens != nil {
		handler = auth.Middleware(h.Tokens, logger)(handler)
	}
	handler = requestLogger(logger)(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

// requestLogger puts a per-request logger carrying a request id into the context.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			log := base.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), log)))
		})
	}
}

func pingDependencies(ctx context.Context, store Pinger, redis *redis.Client) error {
	if store != nil {
		if err := store.Ping(ctx); err != nil {
			return err
		}
	}
	if redis != nil {
		if err := redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
