package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo identifies one feed connection in metrics and ws events.
type ConnInfo struct {
	ConnID      string
	Kind        string
	ResourceID  string
	UserID      uuid.UUID
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
