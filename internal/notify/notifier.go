package notify

import (
	"context"
	"errors"
)

// Message tells the player their attempt has been scored.
type Message struct {
	PlayerID  string  `json:"user_id"`
	QuizID    string  `json:"quiz_id"`
	QuizTitle string  `json:"quiz_title"`
	ResultID  string  `json:"result_id"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
	Rank      int     `json:"rank"`
}

// Notifier delivers result messages. Delivery is best effort; callers log errors and move on.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Message) error { return nil }
