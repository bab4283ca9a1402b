// Package idempotency provides short-lived leases that keep concurrent
// deliveries of the same webhook from repeating an external side effect.
package idempotency

import (
	"context"
	"fmt"
	"time"
)

// Guard hands out leases on natural keys
type Guard interface {
	// Acquire returns true when the caller now holds the lease for key
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops the lease so a later delivery can retry immediately
	Release(ctx context.Context, key string) error
}

// RoomEgressKey guards starting the composite egress of a meeting
func RoomEgressKey(meetingID string) string {
	return "room-egress:" + meetingID
}

// TrackEgressKey guards starting the audio egress of one speaker
func TrackEgressKey(recordingID, identity string) string {
	return fmt.Sprintf("track-egress:%s:%s", recordingID, identity)
}
