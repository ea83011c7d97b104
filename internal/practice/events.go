package practice

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on the practice events channel.
const (
	EventSessionStarted   = "session.started"
	EventSessionAnswered  = "session.answered"
	EventSessionCompleted = "session.completed"
)

// Event notifies other processes (and the student's other tabs) about a session change.
type Event struct {
	Type          string    `json:"type"`
	SessionID     uuid.UUID `json:"session_id"`
	StudentID     uuid.UUID `json:"student_id"`
	QuestionIndex int       `json:"question_index,omitempty"`
	AnsweredCount int       `json:"answered_count"`
	Version       int       `json:"version"`
	Summary       *Summary  `json:"summary,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
