// Package broadcast defines the live event fan-out port.
package broadcast

import "context"

// Broadcaster pushes typed events to connected observers (dashboards).
// Delivery is best-effort; the core never blocks on it.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
