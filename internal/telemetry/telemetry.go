// Package telemetry optionally publishes transfer progress to Redis for
// a fleet operator dashboard watching many devices flash concurrently.
// It uses an HSet+Publish pipeline so a dashboard can read the latest
// state directly or subscribe for live updates. The DFU engine never
// imports this package — it only calls the ProgressFunc telemetry hands
// to the sequencer, so a telemetry outage cannot affect the transfer
// itself.
package telemetry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nordicdfu/serial-host/internal/logging"
	"github.com/nordicdfu/serial-host/pkg/manifest"
)

// ProgressKey is the Redis hash progress events are written to; Channel
// is the pub/sub channel they're published on.
const (
	ProgressKey = "dfu:progress"
	Channel     = "dfu:progress"
)

// Publisher publishes DFU transfer progress events to Redis.
type Publisher struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to a Redis server, failing fast if it is unreachable.
func New(addr, password string, db int) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Publisher{client: client, ctx: ctx}, nil
}

// Report publishes one progress event for an image/phase pair.
func (p *Publisher) Report(kind manifest.Kind, phase string, sent, total int) {
	field := fmt.Sprintf("%s:%s", kind, phase)
	value := fmt.Sprintf("%d/%d", sent, total)

	pipe := p.client.Pipeline()
	pipe.HSet(p.ctx, ProgressKey, field, value)
	pipe.Publish(p.ctx, Channel, fmt.Sprintf("%s:%s", field, value))
	if _, err := pipe.Exec(p.ctx); err != nil {
		logging.Info("telemetry: failed to publish progress for %s: %v", field, err)
	}
}

// Close closes the Redis client connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
