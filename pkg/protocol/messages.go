package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingIdentity = errors.New("registration requires userId and name")
	ErrMissingSubject  = errors.New("payload requires userName, patientId and patientName")
)

// Message is the wire envelope for every event in both directions.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals a payload into its wire envelope.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	msg := Message{Event: event, Payload: raw}
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return out, nil
}

// RegisterPayload is the identity a client asserts on user:register.
type RegisterPayload struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Role   string  `json:"role,omitempty"`
	Photo  *string `json:"photo,omitempty"`
}

func (p *RegisterPayload) Validate() error {
	if p.UserID == "" || p.Name == "" {
		return ErrMissingIdentity
	}
	return nil
}

// ActivityPayload travels on activity:update and user:activity.
type ActivityPayload struct {
	UserID    string `json:"userId"`
	Activity  string `json:"activity"`
	Timestamp string `json:"timestamp"`
}

// PresencePayload announces a newly registered user on user:connected.
type PresencePayload struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Photo     *string   `json:"photo"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
}

// DisconnectPayload travels on user:disconnected.
type DisconnectPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// RosterEntry is one row of the users:list snapshot.
type RosterEntry struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Photo     *string   `json:"photo"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
}

// DomainUpdate is the minimum shape shared by patient:select, the clinical
// section updates and visit:complete. Section-specific fields ride along in
// the raw payload and are relayed untouched.
type DomainUpdate struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (p *DomainUpdate) Validate() error {
	if p.UserName == "" || p.PatientID == "" || p.PatientName == "" {
		return ErrMissingSubject
	}
	return nil
}

// ParseTimestamp parses an RFC 3339 wire timestamp, coercing anything
// unparseable to the fallback.
func ParseTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t
}
