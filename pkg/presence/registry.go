package presence

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
	"github.com/google/uuid"
)

var (
	ErrAlreadyTracked    = errors.New("connection is already tracked")
	ErrUnknownConnection = errors.New("connection is not tracked")
	ErrInvalidIdentity   = errors.New("identity requires a userId and a name")
)

// Registry tracks every live connection and the identity/activity attached to
// it. It is the single owner of presence state; all methods are safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*ConnectionState
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]*ConnectionState),
		logger: logger.With(slog.String("component", "presence_registry")),
	}
}

// Track records a freshly opened connection. The connection stays
// unregistered until an explicit Register call.
func (r *Registry) Track(connID uuid.UUID, ipAddr string, sender Sender) (*ConnectionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return nil, ErrAlreadyTracked
	}
	conn := &ConnectionState{
		ID:        connID,
		IPAddress: ipAddr,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
	r.conns[connID] = conn
	r.logger.Debug("Connection tracked", slog.String("connID", connID.String()))
	return conn, nil
}

// Untrack drops a connection and returns a snapshot of the state it held, so
// the caller can still announce the departure.
func (r *Registry) Untrack(connID uuid.UUID) (ConnectionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ConnectionState{}, false
	}
	delete(r.conns, connID)
	r.logger.Debug("Connection untracked",
		slog.String("connID", connID.String()),
		slog.String("userID", conn.UserID),
	)
	return *conn, true
}

// Snapshot returns a copy of the state for one connection.
func (r *Registry) Snapshot(connID uuid.UUID) (ConnectionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ConnectionState{}, false
	}
	return *conn, true
}

// Register attaches an asserted identity to a tracked connection. Identities
// missing a userId or name are rejected.
func (r *Registry) Register(connID uuid.UUID, id Identity) (ConnectionState, error) {
	if id.UserID == "" || id.Name == "" {
		return ConnectionState{}, ErrInvalidIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ConnectionState{}, ErrUnknownConnection
	}
	conn.UserID = id.UserID
	conn.Name = id.Name
	conn.Role = id.Role
	conn.Photo = id.Photo
	conn.Activity = protocol.ActivityJoined
	conn.ActivityAt = time.Now()

	r.logger.Info("User registered",
		slog.String("userID", id.UserID),
		slog.String("name", id.Name),
		slog.String("role", id.Role),
	)
	return *conn, nil
}

// UpdateActivity overwrites the free-text activity and its timestamp. The
// activity content itself is not validated.
func (r *Registry) UpdateActivity(connID uuid.UUID, activity string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	conn.Activity = activity
	conn.ActivityAt = at
	return nil
}

// ListRegistered builds the full roster from scratch, most recent activity
// first. Connections without an identity are excluded.
func (r *Registry) ListRegistered() []protocol.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]protocol.RosterEntry, 0, len(r.conns))
	for _, conn := range r.conns {
		if !conn.Registered() {
			continue
		}
		activity := conn.Activity
		if activity == "" {
			activity = protocol.ActivityIdle
		}
		roster = append(roster, protocol.RosterEntry{
			UserID:    conn.UserID,
			Name:      conn.Name,
			Role:      conn.Role,
			Photo:     conn.Photo,
			Activity:  activity,
			Timestamp: conn.ActivityAt,
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		return roster[i].Timestamp.After(roster[j].Timestamp)
	})
	return roster
}

// SendersExcept returns the senders of every tracked connection except one.
// Pass uuid.Nil to address all of them.
func (r *Registry) SendersExcept(connID uuid.UUID) []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	senders := make([]Sender, 0, len(r.conns))
	for id, conn := range r.conns {
		if id == connID || conn.Sender == nil {
			continue
		}
		senders = append(senders, conn.Sender)
	}
	return senders
}

// RegisteredSendersExcept is SendersExcept narrowed to connections that have
// completed registration.
func (r *Registry) RegisteredSendersExcept(connID uuid.UUID) []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	senders := make([]Sender, 0, len(r.conns))
	for id, conn := range r.conns {
		if id == connID || conn.Sender == nil || !conn.Registered() {
			continue
		}
		senders = append(senders, conn.Sender)
	}
	return senders
}

// CountByIP reports how many live connections share a source address.
func (r *Registry) CountByIP(ipAddr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, conn := range r.conns {
		if conn.IPAddress == ipAddr {
			count++
		}
	}
	return count
}

// OldestByIP finds the longest-lived connection from a source address, for
// the connection limiter's cycle mode.
func (r *Registry) OldestByIP(ipAddr string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest *ConnectionState
	for _, conn := range r.conns {
		if conn.IPAddress != ipAddr {
			continue
		}
		if oldest == nil || conn.CreatedAt.Before(oldest.CreatedAt) {
			oldest = conn
		}
	}
	if oldest == nil || oldest.Sender == nil {
		return nil, false
	}
	return oldest.Sender, true
}
