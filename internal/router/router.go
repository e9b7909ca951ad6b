package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dibyaarfianda/dokterdibya-realtime/internal/broadcast"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/presence"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/session"
	"github.com/google/uuid"
)

// EventRouter parses incoming envelopes and dispatches each named event to
// its handler. Unknown events are logged and dropped; nothing here retries or
// escalates.
type EventRouter struct {
	logger      *slog.Logger
	registry    *presence.Registry
	session     *session.Store
	broadcaster *broadcast.Broadcaster
}

func NewEventRouter(logger *slog.Logger, registry *presence.Registry, sess *session.Store, broadcaster *broadcast.Broadcaster) *EventRouter {
	return &EventRouter{
		logger:      logger.With(slog.String("component", "event_router")),
		registry:    registry,
		session:     sess,
		broadcaster: broadcaster,
	}
}

// HandleMessage is the transport's per-message callback.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var clientMsg protocol.Message
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		r.logger.Warn("Failed to unmarshal client message",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	switch clientMsg.Event {
	case protocol.EventUserRegister:
		r.handleRegister(connID, clientMsg.Payload)
	case protocol.EventActivityUpdate:
		r.handleActivityUpdate(connID, clientMsg.Payload)
	case protocol.EventPatientSelect:
		r.handlePatientSelect(connID, clientMsg.Payload)
	case protocol.EventAnamnesaUpdate,
		protocol.EventPhysicalUpdate,
		protocol.EventUSGUpdate,
		protocol.EventLabUpdate,
		protocol.EventBillingUpdate,
		protocol.EventVisitComplete:
		r.handleDomainUpdate(connID, clientMsg.Event, clientMsg.Payload)
	case protocol.EventAnnouncementNew:
		r.handleAnnouncement(connID, clientMsg.Payload)
	case protocol.EventUsersGetList:
		if err := r.broadcaster.SendRoster(connID); err != nil {
			r.logger.Warn("Failed to reply with roster",
				slog.String("connID", connID.String()),
				slog.Any("error", err),
			)
		}
	default:
		r.logger.Warn("Received unknown event",
			slog.String("event", clientMsg.Event),
			slog.String("connID", connID.String()),
		)
	}
}

// HandleDisconnect is the transport's close callback.
func (r *EventRouter) HandleDisconnect(connID uuid.UUID, err error) {
	if bErr := r.broadcaster.OnDisconnect(connID); bErr != nil {
		r.logger.Warn("Disconnect fan-out failed",
			slog.String("connID", connID.String()),
			slog.Any("error", bErr),
		)
	}
}
