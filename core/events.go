package core

import "time"

// Event types broadcast to live subscribers.
const (
	EventCheckpointPassed   = "checkpoint.passed"
	EventCheckpointReturned = "checkpoint.returned"
	EventGroupsRandomized   = "groups.randomized"
	EventGroupsReplaced     = "groups.replaced"
	EventQueueRaised        = "queue.raised"
	EventQueueClaimed       = "queue.claimed"
	EventQueueResolved      = "queue.resolved"
	EventQueueCancelled     = "queue.cancelled"
	EventQueueUrgent        = "queue.urgent"
)

type Event struct {
	Type    string      `json:"type"`
	LabID   string      `json:"lab_id"`
	GroupID string      `json:"group_id,omitempty"`
	At      time.Time   `json:"at"`
	Data    interface{} `json:"data,omitempty"`
}

// EventPublisher is any service that can broadcast events to live
// subscribers. Delivery is fire-and-forget, at-most-once: publishers must
// never block or fail the calling mutation.
type EventPublisher interface {
	Publish(events ...Event)
}
