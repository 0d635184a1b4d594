package app

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// DefaultEventQueue receives every lifecycle and grading event.
const DefaultEventQueue = "quiz.events"

const (
	EventSessionCreated  = "session.created"
	EventSessionJoined   = "session.joined"
	EventSessionStarted  = "session.started"
	EventSessionFinished = "session.finished"
	EventAnswerGraded    = "answer.graded"
)

// Event is the JSON body published for lifecycle changes.
type Event struct {
	Type        string    `json:"type"`
	SessionCode string    `json:"session_code,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	QuestionID  string    `json:"question_id,omitempty"`
	Correct     *bool     `json:"correct,omitempty"`
	Score       *int      `json:"score,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// events publishes best effort: failures are logged, never returned.
type events struct {
	publisher EventPublisher
	queue     string
}

func newEvents(publisher EventPublisher, queue string) events {
	if queue == "" {
		queue = DefaultEventQueue
	}
	return events{publisher: publisher, queue: queue}
}

func (e events) publish(ctx context.Context, ev Event) {
	if e.publisher == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("marshal %s event: %v", ev.Type, err)
		return
	}
	if err := e.publisher.Publish(ctx, e.queue, body); err != nil {
		log.Printf("publish %s event: %v", ev.Type, err)
	}
}
