package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for feed events.
const (
	EventTypePaperCurated      = "feed.paper_curated"
	EventTypeScoutCompleted    = "feed.scout_completed"
	EventTypeBackfillCompleted = "feed.backfill_completed"
	EventTypePaperRepaired     = "feed.paper_repaired"
)

// Event represents a domain event published to the feed topic.
type Event struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now(),
	}, nil
}

// PaperCuratedPayload is the payload for feed.paper_curated events.
type PaperCuratedPayload struct {
	PaperID  uuid.UUID `json:"paper_id"`
	Title    string    `json:"title"`
	Topic    string    `json:"topic"`
	Category Category  `json:"category"`
	Score    int       `json:"score"`
	Source   string    `json:"source"`
}

// ScoutCompletedPayload is the payload for feed.scout_completed events.
type ScoutCompletedPayload struct {
	TopicsScanned int           `json:"topics_scanned"`
	PapersSaved   int           `json:"papers_saved"`
	Duplicates    int           `json:"duplicates"`
	Duration      time.Duration `json:"duration_ns"`
}

// BackfillCompletedPayload is the payload for feed.backfill_completed events.
type BackfillCompletedPayload struct {
	Hub           string        `json:"hub"`
	TopicsScanned int           `json:"topics_scanned"`
	PapersSaved   int           `json:"papers_saved"`
	Duplicates    int           `json:"duplicates"`
	Duration      time.Duration `json:"duration_ns"`
}

// PaperRepairedPayload is the payload for feed.paper_repaired events.
type PaperRepairedPayload struct {
	PaperID uuid.UUID `json:"paper_id"`
	Title   string    `json:"title"`
	Fields  []string  `json:"fields"`
}
