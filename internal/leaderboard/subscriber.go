package leaderboard

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/notify"
	ws "github.com/gokatarajesh/quiz-results/pkg/http/ws"
)

// Broadcaster listens for result events on Redis Pub/Sub and pushes them to
// the owning player's socket, if it is connected to this instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered result broadcaster.
func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = notify.DefaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "result_broadcaster").Logger(),
	}
}

// Run subscribes to the result channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt notify.Message
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode result event")
		return
	}
	if evt.PlayerID == "" {
		return
	}

	msg, err := ws.NewMessage(ws.TypeResultReady, ws.ResultReadyPayload{
		ResultID:  evt.ResultID,
		QuizID:    evt.QuizID,
		QuizTitle: evt.QuizTitle,
		Score:     evt.Score,
		MaxScore:  evt.MaxScore,
		Rank:      evt.Rank,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal result WS payload")
		return
	}

	if err := b.hub.SendToPlayer(evt.PlayerID, msg); err != nil {
		if errors.Is(err, ws.ErrConnectionNotFound) {
			// Player is offline or connected to another instance.
			return
		}
		b.logger.Warn().Err(err).Str("player_id", evt.PlayerID).Msg("failed to push result")
	}
}
