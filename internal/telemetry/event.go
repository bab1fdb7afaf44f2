package telemetry

import "time"

type EventType string

const (
	EventItemFound    EventType = "item_found"
	EventStateChanged EventType = "state_changed"
	EventCatchUp      EventType = "catch_up"
	EventTransfer     EventType = "transfer"
	EventItemUsed     EventType = "item_used"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
