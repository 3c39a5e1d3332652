// Package domain defines the core value types shared by the sync client,
// the state store, and the computation engine: wire envelopes, connection
// states, order lines and totals, stock records, and analytics periods.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ConnectionState is the state of a sync connection manager.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the lowercase name of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s ConnectionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name produced by MarshalJSON.
func (s *ConnectionState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for st := StateDisconnected; st <= StateClosed; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", name)
}

// Message types consumed from the sync feed.
const (
	MsgDashboardUpdate = "dashboard:update"
	MsgInventoryUpdate = "inventory:update"
	MsgOrderCompleted  = "order:completed"
	MsgSalesMetrics    = "sales:metrics"
)

// Lifecycle topics published by the connection manager itself.
const (
	TopicConnected    = "connected"
	TopicDisconnected = "disconnected"
	TopicError        = "error"
)

// KnownMessageType reports whether t is a business message type the client
// consumes. Lifecycle topics are not included.
func KnownMessageType(t string) bool {
	switch t {
	case MsgDashboardUpdate, MsgInventoryUpdate, MsgOrderCompleted, MsgSalesMetrics:
		return true
	}
	return false
}

// Envelope is the unit exchanged over the sync transport.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// UnmarshalJSON decodes an envelope without rejecting it over its
// timestamp. Type and payload are what dispatch depends on; a timestamp in
// an unrecognized shape decodes as the zero time.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.Payload = raw.Payload
	e.Timestamp = ParseTimestamp(raw.Timestamp)
	return nil
}

// timestampLayouts are tried in order. Layouts without an offset are read
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads a JSON timestamp leniently: an RFC 3339 string, an
// ISO-8601 date-time or date without offset, or a number of milliseconds
// since the Unix epoch. Anything else, including null and "", yields the
// zero time.
func ParseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(int64(ms)).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NewEnvelope encodes payload and stamps the envelope with ts.
func NewEnvelope(msgType string, payload any, ts time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw, Timestamp: ts.UTC()}, nil
}
