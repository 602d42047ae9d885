package ws

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tableside/api/internal/enum"
)

// Envelope is what travels between hubs. Origin lets a hub ignore the
// echo of its own events.
type Envelope struct {
	Origin uuid.UUID `json:"origin"`
	Event  Event     `json:"event"`
}

// Relay carries events between server instances so that a dashboard
// connected to instance A sees changes made through instance B. It has the
// same best-effort, no-replay guarantee as the hub itself.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe blocks, invoking fn for every envelope, until ctx is done
	// or the underlying transport fails.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// OpenRelay connects the relay selected by driver. It returns nil, nil for
// the "none" driver.
func OpenRelay(ctx context.Context, driver, redisURL, amqpURL, channel string) (Relay, error) {
	switch driver {
	case enum.RelayNone, "":
		return nil, nil
	case enum.RelayRedis:
		r, err := NewRedisRelay(ctx, redisURL, channel)
		if err != nil {
			return nil, err
		}
		return r, nil
	case enum.RelayAMQP:
		r, err := NewAMQPRelay(amqpURL, channel)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown relay driver %q", driver)
}
