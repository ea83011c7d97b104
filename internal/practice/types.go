package practice

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType distinguishes how a question is answered and evaluated.
type QuestionType string

// Question types served by the content catalog.
const (
	QuestionSingleChoice QuestionType = "single-choice"
	QuestionMultiChoice  QuestionType = "multi-choice"
	QuestionFreeText     QuestionType = "free-text"
)

// IsChoice reports whether answers are given by selecting options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

// Option is one selectable answer of a choice question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// Empty reports whether the option has nothing to display.
func (o Option) Empty() bool {
	return o.Text == "" && o.ImageURL == ""
}

// Question is an immutable content unit owned by the catalog.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	ImageURL    string       `json:"image_url,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	TextAnswer  string       `json:"text_answer,omitempty"` // free-text only
}

// SubTopic carries the denormalised names of a sub-topic's curriculum path.
type SubTopic struct {
	ID          uuid.UUID
	Name        string
	TopicID     uuid.UUID
	TopicName   string
	SubjectID   uuid.UUID
	SubjectName string
}

// PracticeSession is the persisted aggregate for one timed attempt.
type PracticeSession struct {
	ID           uuid.UUID
	StudentID    uuid.UUID
	SubTopicID   uuid.UUID
	SubjectName  string
	TopicName    string
	SubTopicName string
	CycleNumber  int

	// QuestionIDs is the ordered question list bound at creation; it never changes.
	QuestionIDs []string

	// CurrentIndex is 1-based.
	CurrentIndex     int
	Answers          []PracticeAnswer
	CreatedAt        time.Time
	CompletedAt      *time.Time
	TimeSpentSeconds int

	CorrectCount *int
	Score        *int
	XPEarned     *int
	CoinsEarned  *int

	// Version increases with every answer and completion write.
	Version int
}

// Completed reports whether the session has been finalised.
func (s PracticeSession) Completed() bool {
	return s.CompletedAt != nil
}

// PracticeAnswer records the single answer given to one question of a session.
type PracticeAnswer struct {
	ID                uuid.UUID `json:"id"`
	SessionID         uuid.UUID `json:"session_id"`
	QuestionID        string    `json:"question_id"`
	SelectedOptionIDs []string  `json:"selected_option_ids,omitempty"`
	TextAnswer        string    `json:"text_answer,omitempty"`
	IsCorrect         bool      `json:"is_correct"`
	TimeSpentSeconds  int       `json:"time_spent_seconds"`
	AnsweredAt        time.Time `json:"answered_at"`
}

// Submission is what a student hands in for the current question.
type Submission struct {
	OptionIDs []string
	Text      string
}

// NewSession is the payload for the atomic create-within-quota gateway call.
type NewSession struct {
	ID          uuid.UUID
	StudentID   uuid.UUID
	SubTopic    SubTopic
	CycleNumber int
	QuestionIDs []string
	CreatedAt   time.Time
}

// Completion carries the totals written by the atomic mark-complete gateway call.
type Completion struct {
	SessionID        uuid.UUID
	CorrectCount     int
	Score            int
	TimeSpentSeconds int
	CompletedAt      time.Time
}

// Summary is handed to the external reward function once a session completes.
type Summary struct {
	SessionID       uuid.UUID `json:"session_id"`
	StudentID       uuid.UUID `json:"student_id"`
	SubTopicID      uuid.UUID `json:"sub_topic_id"`
	TotalQuestions  int       `json:"total_questions"`
	CorrectCount    int       `json:"correct_count"`
	Score           int       `json:"score"`
	DurationSeconds int       `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Rewards are the XP and coin deltas returned by the reward function.
type Rewards struct {
	XP    int `json:"xp"`
	Coins int `json:"coins"`
}

// LimitStatus is the per-day session quota snapshot for a student.
type LimitStatus struct {
	Tier              string `json:"tier"`
	SessionsToday     int    `json:"sessions_today"`
	SessionLimit      int    `json:"session_limit"`
	CanStartSession   bool   `json:"can_start_session"`
	RemainingSessions int    `json:"remaining_sessions"`
}

// CatalogRequest asks the catalog for a batch of questions within one rotation cycle.
type CatalogRequest struct {
	StudentID  uuid.UUID
	SubTopicID uuid.UUID
	Cycle      int
	Limit      int
}
