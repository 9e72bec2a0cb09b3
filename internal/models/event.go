package models

import "time"

// Event names emitted to the realtime fan-out channel.
const (
	EventComplaintNew      = "complaint:new"
	EventComplaintRefresh  = "complaint:refresh"
	EventAssignmentNew     = "new_assignment"
	EventAssignmentUpdated = "assignment_updated"
)

// Event is one realtime notification. Delivery is at-most-once and
// best-effort; payloads carry entity ids and minimal display fields only.
type Event struct {
	Name      string                 `json:"event"`
	UserID    string                 `json:"user_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
}
