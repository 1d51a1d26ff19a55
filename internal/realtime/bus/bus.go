// Package bus moves realtime events between processes. Every API
// instance publishes to one Redis channel and forwards what it
// receives into its local hub, so a job running on any worker reaches
// clients connected anywhere.
package bus

import (
	"context"

	"github.com/potalora/ai-web-records-app-take-2/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, event realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(event realtime.Event)) error
	Close() error
}
