package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const resultEmailPath = "/api/notify/send-quiz-result-email"

// HTTPNotifier posts result messages to the main service, which emails the player.
type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
}

var _ Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier builds a notifier for the main service at baseURL.
func NewHTTPNotifier(baseURL string, httpClient *http.Client) *HTTPNotifier {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPNotifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type resultEmailRequest struct {
	UserID    string  `json:"user_id"`
	QuizTitle string  `json:"quiz_title"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
	Rank      int     `json:"rank"`
}

// Notify implements Notifier.
func (n *HTTPNotifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resultEmailRequest{
		UserID:    msg.PlayerID,
		QuizTitle: msg.QuizTitle,
		Score:     msg.Score,
		MaxScore:  msg.MaxScore,
		Rank:      msg.Rank,
	})
	if err != nil {
		return fmt.Errorf("encode result email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+resultEmailPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send result email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send result email: main service returned %d", resp.StatusCode)
	}
	return nil
}
