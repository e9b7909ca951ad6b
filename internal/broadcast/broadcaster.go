// Package broadcast fans presence and clinical events out to the live
// connections. Delivery is fire-and-forget: a missed presence update degrades
// another workstation's view until the next full roster push, nothing more.
package broadcast

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/presence"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/session"
	"github.com/google/uuid"
)

// ErrNotWired is returned when the broadcaster was constructed without a
// registry to fan out through.
var ErrNotWired = errors.New("broadcaster is not wired to a connection registry")

type Broadcaster struct {
	logger   *slog.Logger
	registry *presence.Registry
	session  *session.Store
}

func New(logger *slog.Logger, registry *presence.Registry, sess *session.Store) *Broadcaster {
	return &Broadcaster{
		logger:   logger.With(slog.String("component", "broadcaster")),
		registry: registry,
		session:  sess,
	}
}

func (b *Broadcaster) ready() error {
	if b.registry == nil {
		b.logger.Warn("Broadcast attempted before wiring to a registry")
		return ErrNotWired
	}
	return nil
}

// OnRegister announces a newly registered connection: user:connected to the
// other registered connections, a fresh users:list to every registered
// connection, and a private replay of the current patient selection to the
// newcomer.
func (b *Broadcaster) OnRegister(connID uuid.UUID, state presence.ConnectionState) error {
	if err := b.ready(); err != nil {
		return err
	}

	connected := protocol.PresencePayload{
		UserID:    state.UserID,
		Name:      state.Name,
		Role:      state.Role,
		Photo:     state.Photo,
		Activity:  state.Activity,
		Timestamp: state.ActivityAt,
	}
	b.emit(b.registry.RegisteredSendersExcept(connID), protocol.EventUserConnected, connected)

	if err := b.PushRoster(); err != nil {
		return err
	}

	if b.session != nil {
		if current, ok := b.session.Current(); ok && state.Sender != nil {
			b.send(state.Sender, protocol.EventPatientSelected, json.RawMessage(current))
			b.logger.Info("Replayed current patient selection to new user",
				slog.String("userID", state.UserID),
				slog.String("name", state.Name),
			)
		}
	}
	return nil
}

// OnActivityUpdate patches every other connection's view of one user's
// activity. No roster recompute; clients patch locally by userId.
func (b *Broadcaster) OnActivityUpdate(connID uuid.UUID, payload protocol.ActivityPayload) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.emit(b.registry.SendersExcept(connID), protocol.EventUserActivity, payload)
	return nil
}

// OnDisconnect drops a connection from the registry and, if it had
// registered, announces the departure followed by a fresh roster.
func (b *Broadcaster) OnDisconnect(connID uuid.UUID) error {
	if err := b.ready(); err != nil {
		return err
	}

	state, ok := b.registry.Untrack(connID)
	if !ok {
		return nil
	}
	if !state.Registered() {
		return nil
	}

	departed := protocol.DisconnectPayload{UserID: state.UserID, Name: state.Name}
	b.emit(b.registry.SendersExcept(connID), protocol.EventUserDisconnected, departed)
	return b.PushRoster()
}

// PushRoster rebuilds the full roster and pushes it to every registered
// connection. Full rebroadcast on every join/leave keeps the roster
// drift-free at clinic scale.
func (b *Broadcaster) PushRoster() error {
	if err := b.ready(); err != nil {
		return err
	}
	roster := b.registry.ListRegistered()
	b.emit(b.registry.RegisteredSendersExcept(uuid.Nil), protocol.EventUsersList, roster)
	return nil
}

// SendRoster replies privately with the current roster (users:get-list).
func (b *Broadcaster) SendRoster(connID uuid.UUID) error {
	if err := b.ready(); err != nil {
		return err
	}
	state, ok := b.registry.Snapshot(connID)
	if !ok || state.Sender == nil {
		return presence.ErrUnknownConnection
	}
	b.send(state.Sender, protocol.EventUsersList, b.registry.ListRegistered())
	return nil
}

// RelayToOthers forwards a payload verbatim to every connection except the
// sender. Echo suppression is the universal contract for clinical events:
// the sender already holds its own state.
func (b *Broadcaster) RelayToOthers(connID uuid.UUID, event string, payload json.RawMessage) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.emit(b.registry.SendersExcept(connID), event, payload)
	return nil
}

// BroadcastAll forwards a payload to every connection including the sender.
// Only announcements use this path.
func (b *Broadcaster) BroadcastAll(event string, payload json.RawMessage) error {
	if err := b.ready(); err != nil {
		return err
	}
	b.emit(b.registry.SendersExcept(uuid.Nil), event, payload)
	return nil
}

// SynthesizeActivity records and fans out a server-generated activity string
// for a clinical update the sender just relayed.
func (b *Broadcaster) SynthesizeActivity(connID uuid.UUID, userID, activity string, at time.Time) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := b.registry.UpdateActivity(connID, activity, at); err != nil {
		return err
	}
	return b.OnActivityUpdate(connID, protocol.ActivityPayload{
		UserID:    userID,
		Activity:  activity,
		Timestamp: at.Format(time.RFC3339),
	})
}

func (b *Broadcaster) emit(targets []presence.Sender, event string, payload any) {
	msg, err := protocol.Encode(event, payload)
	if err != nil {
		b.logger.Warn("Dropping broadcast", slog.String("event", event), slog.Any("error", err))
		return
	}
	for _, target := range targets {
		target.Send(msg)
	}
}

func (b *Broadcaster) send(target presence.Sender, event string, payload any) {
	msg, err := protocol.Encode(event, payload)
	if err != nil {
		b.logger.Warn("Dropping message", slog.String("event", event), slog.Any("error", err))
		return
	}
	target.Send(msg)
}
