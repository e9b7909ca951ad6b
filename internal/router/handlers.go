package router

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/presence"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

func (r *EventRouter) handleRegister(connID uuid.UUID, payload json.RawMessage) {
	var reg protocol.RegisterPayload
	if err := json.Unmarshal(payload, &reg); err != nil {
		r.logger.Warn("Malformed registration payload",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}
	if err := reg.Validate(); err != nil {
		r.logger.Warn("Rejected registration",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	state, err := r.registry.Register(connID, presence.Identity{
		UserID: reg.UserID,
		Name:   reg.Name,
		Role:   reg.Role,
		Photo:  reg.Photo,
	})
	if err != nil {
		r.logger.Warn("Registration failed",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	if err := r.broadcaster.OnRegister(connID, state); err != nil {
		r.logger.Warn("Registration fan-out failed",
			slog.String("userID", reg.UserID),
			slog.Any("error", err),
		)
	}
}

func (r *EventRouter) handleActivityUpdate(connID uuid.UUID, payload json.RawMessage) {
	var act protocol.ActivityPayload
	if err := json.Unmarshal(payload, &act); err != nil {
		r.logger.Warn("Malformed activity payload",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	at := protocol.ParseTimestamp(act.Timestamp, time.Now())
	if err := r.registry.UpdateActivity(connID, act.Activity, at); err != nil {
		r.logger.Warn("Activity update for unknown connection",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}
	if err := r.broadcaster.OnActivityUpdate(connID, act); err != nil {
		r.logger.Warn("Activity fan-out failed", slog.Any("error", err))
	}
}

func (r *EventRouter) handlePatientSelect(connID uuid.UUID, payload json.RawMessage) {
	var sel protocol.DomainUpdate
	if err := json.Unmarshal(payload, &sel); err != nil {
		r.logger.Warn("Malformed patient selection",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}
	if err := sel.Validate(); err != nil {
		r.logger.Warn("Rejected patient selection",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	r.logger.Info("Patient selected",
		slog.String("by", sel.UserName),
		slog.String("patientID", sel.PatientID),
		slog.String("patientName", sel.PatientName),
	)

	r.session.Select(payload, time.Now())
	if err := r.broadcaster.RelayToOthers(connID, protocol.EventPatientSelected, payload); err != nil {
		r.logger.Warn("Selection fan-out failed", slog.Any("error", err))
	}
}

// handleDomainUpdate relays the five clinical section updates and
// visit:complete. Payloads are forwarded verbatim; the router only peeks at
// the attribution fields. Senders are not required to have registered.
func (r *EventRouter) handleDomainUpdate(connID uuid.UUID, event string, payload json.RawMessage) {
	var upd protocol.DomainUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		r.logger.Warn("Malformed clinical update",
			slog.String("event", event),
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}
	if err := upd.Validate(); err != nil {
		r.logger.Warn("Rejected clinical update",
			slog.String("event", event),
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	echo, ok := protocol.EchoEvent(event)
	if !ok {
		r.logger.Warn("No echo channel for event", slog.String("event", event))
		return
	}

	r.logger.Info("Relaying clinical update",
		slog.String("event", event),
		slog.String("by", upd.UserName),
		slog.String("patientName", upd.PatientName),
	)
	if err := r.broadcaster.RelayToOthers(connID, echo, payload); err != nil {
		r.logger.Warn("Clinical update fan-out failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}

	if activity, ok := protocol.ActivityFor(event, upd.PatientName); ok {
		if err := r.broadcaster.SynthesizeActivity(connID, upd.UserID, activity, time.Now()); err != nil {
			r.logger.Warn("Activity synthesis failed",
				slog.String("event", event),
				slog.Any("error", err),
			)
		}
	}
}

// handleAnnouncement broadcasts to every connection including the sender; a
// clinic-wide notice is not a personal edit echo.
func (r *EventRouter) handleAnnouncement(connID uuid.UUID, payload json.RawMessage) {
	title := gjson.GetBytes(payload, "title").String()
	by := gjson.GetBytes(payload, "created_by_name").String()
	r.logger.Info("Broadcasting announcement",
		slog.String("title", title),
		slog.String("by", by),
	)
	if err := r.broadcaster.BroadcastAll(protocol.EventAnnouncementNew, payload); err != nil {
		r.logger.Warn("Announcement broadcast failed", slog.Any("error", err))
	}
}
