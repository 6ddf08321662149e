package domain

import "time"

// EventType classifies one effective change to an element.
type EventType string

const (
	EventTypeCreate EventType = "create"
	EventTypeUpdate EventType = "update"
	EventTypeDelete EventType = "delete"
)

// ElementEvent is an immutable audit record of one effective change to
// one element: at most one per element per reconciliation cycle.
type ElementEvent struct {
	ID          int64
	Date        time.Time
	ElementID   ElementID
	ElementLat  float64
	ElementLon  float64
	ElementName string
	Type        EventType
	UserID      int64
	UserName    string
}
