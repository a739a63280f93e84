package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HTTPDirectory fetches public profiles from the main service, a bounded
// number of requests at a time.
type HTTPDirectory struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
	logger      zerolog.Logger
}

var _ Directory = (*HTTPDirectory)(nil)

func NewHTTPDirectory(baseURL string, httpClient *http.Client, concurrency int, logger zerolog.Logger) *HTTPDirectory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Second}
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &HTTPDirectory{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  httpClient,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "identity_directory").Logger(),
	}
}

type publicProfile struct {
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
}

func (p publicProfile) name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if full := strings.TrimSpace(p.FirstName + " " + p.LastName); full != "" {
		return full
	}
	return p.Email
}

// profileResponse accepts both {"user": {...}} and a bare profile object.
type profileResponse struct {
	User *publicProfile `json:"user"`
	publicProfile
}

func (r profileResponse) name() string {
	if r.User != nil {
		return r.User.name()
	}
	return r.publicProfile.name()
}

type authKey struct{}

// WithAuthorization forwards the caller's Authorization header on profile lookups.
func WithAuthorization(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, header)
}

func (d *HTTPDirectory) DisplayNames(ctx context.Context, playerIDs []string) map[string]string {
	out := make(map[string]string, len(playerIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		id := id
		g.Go(func() error {
			name, err := d.fetch(gctx, id)
			if err != nil || name == "" {
				if err != nil {
					d.logger.Debug().Err(err).Str("player_id", id).Msg("profile lookup failed")
				}
				name = Fallback(id)
			}
			mu.Lock()
			out[id] = name
			mu.Unlock()
			// Lookup failures degrade to the fallback; never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *HTTPDirectory) fetch(ctx context.Context, playerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/public", d.baseURL, url.PathEscape(playerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if header, ok := ctx.Value(authKey{}).(string); ok {
		req.Header.Set("Authorization", header)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile %s: status %d", playerID, resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile %s: %w", playerID, err)
	}
	return profile.name(), nil
}
