// Package telemetry carries check-in and registration events and outcome metrics.
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the orchestrators and the registration front.
const (
	EventCheckin    = "checkin"
	EventRegister   = "register"
	EventUnregister = "unregister"
)

// Event is one check-in or registration outcome. Tokens and security tokens are never carried.
type Event struct {
	Type      string
	Source    string
	Outcome   string
	IntentID  string
	DeviceID  int64
	App       string
	Sender    string
	Metadata  []byte
	CreatedAt time.Time
}

// EventEmitter emits events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
