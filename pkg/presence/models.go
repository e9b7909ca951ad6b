package presence

import (
	"time"

	"github.com/google/uuid"
)

// Sender is the transport-side surface the registry needs from a live
// connection. Implemented by *transport.Connection; tests substitute fakes.
type Sender interface {
	Send(message []byte)
	Close(err error)
}

// Identity is what a client asserts on user:register.
type Identity struct {
	UserID string
	Name   string
	Role   string
	Photo  *string
}

// ConnectionState is the registry's record for one live connection. Identity
// fields stay zero until the connection registers; a connection that never
// registers is invisible to the roster.
type ConnectionState struct {
	ID        uuid.UUID
	IPAddress string
	Sender    Sender
	CreatedAt time.Time

	UserID     string
	Name       string
	Role       string
	Photo      *string
	Activity   string
	ActivityAt time.Time
}

// Registered reports whether an identity has been attached.
func (c *ConnectionState) Registered() bool {
	return c.UserID != ""
}
