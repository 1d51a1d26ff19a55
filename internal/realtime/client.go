package realtime

import "github.com/google/uuid"

// Client is one open event stream. Events queue on Outbound until the
// serving goroutine writes them out.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan Event
	done     chan struct{}
}
