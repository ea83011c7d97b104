package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/practice"
	ws "github.com/gokatarajesh/practice-engine/pkg/http/ws"
)

// Broadcaster listens for practice events on Redis Pub/Sub and forwards each
// one to the WebSocket connections of the student it belongs to.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "practice_broadcaster").Logger(),
	}
}

// Run subscribes to the events channel and blocks until the context is cancelled.
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
	var ev practice.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode practice event")
		return
	}

	msg := ws.Message{
		Type:    ws.TypePracticeEvent,
		Payload: json.RawMessage(payload),
	}
	n, err := b.hub.SendToStudent(ev.StudentID, msg)
	if errors.Is(err, ws.ErrConnectionNotFound) {
		return
	}
	if err != nil {
		b.logger.Warn().Err(err).
			Str("student_id", ev.StudentID.String()).
			Str("event", ev.Type).
			Msg("failed to forward practice event")
		return
	}
	b.logger.Debug().
		Str("student_id", ev.StudentID.String()).
		Str("session_id", ev.SessionID.String()).
		Str("event", ev.Type).
		Int("connections", n).
		Msg("practice event forwarded")
}
