package notify

import (
	"callgate/backend/internal/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisRelay publishes events on a Redis channel and feeds events received on
// that channel into the local hub, so every backend replica reaches its own
// websocket clients.
type RedisRelay struct {
	Redis   *redis.Client
	Hub     *Hub
	Channel string
}

func NewRedisRelay(rdb *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{
		Redis:   rdb,
		Hub:     hub,
		Channel: config.EventsChannel,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return r.Redis.Publish(ctx, r.Channel, payload).Err()
}

// Listen blocks until ctx is cancelled or the subscription fails.
func (r *RedisRelay) Listen(ctx context.Context) error {
	pubsub := r.Redis.Subscribe(ctx, r.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Channel, err)
	}
	log.Info().Str("channel", r.Channel).Msg("Listening for call events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			ev, err := DecodeEvent(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("Skipping malformed call event")
				continue
			}
			if err := r.Hub.Publish(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

func EncodeEvent(ev Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(data), nil
}

func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" || len(ev.To) == 0 {
		return Event{}, errors.New("decode event: missing type or recipients")
	}
	return ev, nil
}
