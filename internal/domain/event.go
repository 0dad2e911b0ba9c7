package domain

import "time"

// EventType enumerates the lead events recorded in the event log.
type EventType string

const (
	EventSent         EventType = "sent"
	EventOpened       EventType = "opened"
	EventClicked      EventType = "clicked"
	EventReplied      EventType = "replied"
	EventBounced      EventType = "bounced"
	EventUnsubscribed EventType = "unsubscribed"
	EventComplained   EventType = "complained"
)

// EngagementWeight returns the score weight of an engagement event, or 0 for
// events that do not count as engagement.
func EngagementWeight(t EventType) float64 {
	switch t {
	case EventOpened:
		return 10
	case EventClicked:
		return 25
	case EventReplied:
		return 50
	default:
		return 0
	}
}

// EngagementEvents lists the event types that carry an engagement weight.
var EngagementEvents = []EventType{EventOpened, EventClicked, EventReplied}

// Event is a single entry in the append-only event log.
type Event struct {
	ID         string    `json:"id" db:"id"`
	LeadID     string    `json:"lead_id" db:"lead_id"`
	CampaignID string    `json:"campaign_id,omitempty" db:"campaign_id"`
	Type       EventType `json:"type" db:"type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// EventCounts maps an event type to its count within some window.
type EventCounts map[EventType]int
