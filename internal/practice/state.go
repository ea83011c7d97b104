package practice

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle position of a session held in memory.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	default:
		return "uninitialized"
	}
}

// State is the explicit in-memory session state. Transitions are pure: they
// return a new State and never modify the receiver.
type State struct {
	Phase     Phase
	Session   PracticeSession
	Questions []Question
}

// ActiveState builds an Active state for a persisted session and its questions,
// clamping the stored index into range.
func ActiveState(s PracticeSession, questions []Question) State {
	s.CurrentIndex = clampIndex(s.CurrentIndex, len(questions))
	return State{Phase: PhaseActive, Session: s, Questions: questions}
}

// Current returns the question at the current index.
func (s State) Current() (Question, error) {
	if s.Phase != PhaseActive {
		return Question{}, ErrNotActive
	}
	if len(s.Questions) == 0 {
		return Question{}, ErrNoQuestions
	}
	return s.Questions[s.Session.CurrentIndex-1], nil
}

// AnswerFor returns the recorded answer for questionID, if any.
func (s State) AnswerFor(questionID string) (PracticeAnswer, bool) {
	for _, a := range s.Session.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return PracticeAnswer{}, false
}

// Submit evaluates sub against the current question and appends the answer.
// The returned answer is what must be persisted before the new state is adopted.
func (s State) Submit(sub Submission, timeSpentSeconds int, answerID uuid.UUID, at time.Time) (State, PracticeAnswer, error) {
	q, err := s.Current()
	if err != nil {
		return s, PracticeAnswer{}, err
	}
	if _, ok := s.AnswerFor(q.ID); ok {
		return s, PracticeAnswer{}, ErrAlreadyAnswered
	}

	correct, err := Evaluate(q, sub)
	if err != nil {
		return s, PracticeAnswer{}, err
	}

	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}
	answer := PracticeAnswer{
		ID:               answerID,
		SessionID:        s.Session.ID,
		QuestionID:       q.ID,
		IsCorrect:        correct,
		TimeSpentSeconds: timeSpentSeconds,
		AnsweredAt:       at,
	}
	if q.Type.IsChoice() {
		answer.SelectedOptionIDs = normalizeSelection(sub.OptionIDs)
	} else {
		answer.TextAnswer = sub.Text
	}

	next := s
	next.Session.Answers = make([]PracticeAnswer, 0, len(s.Session.Answers)+1)
	next.Session.Answers = append(next.Session.Answers, s.Session.Answers...)
	next.Session.Answers = append(next.Session.Answers, answer)
	next.Session.TimeSpentSeconds += timeSpentSeconds
	return next, answer, nil
}

// MoveBy shifts the current index by delta without wrapping. changed is false
// when the index was already at the boundary.
func (s State) MoveBy(delta int) (next State, changed bool, err error) {
	return s.GoTo(s.Session.CurrentIndex + delta)
}

// GoTo jumps to the 1-based index, clamped into range.
func (s State) GoTo(index int) (next State, changed bool, err error) {
	if s.Phase != PhaseActive {
		return s, false, ErrNotActive
	}
	target := clampIndex(index, len(s.Questions))
	if target == s.Session.CurrentIndex {
		return s, false, nil
	}
	next = s
	next.Session.CurrentIndex = target
	return next, true, nil
}

// Complete finalises the session. Every question must have exactly one answer.
func (s State) Complete(at time.Time) (State, Summary, error) {
	if s.Phase != PhaseActive {
		return s, Summary{}, ErrNotActive
	}
	total := len(s.Questions)
	if len(s.Session.Answers) != total {
		return s, Summary{}, ErrIncompleteAnswers
	}

	correct, seconds := 0, 0
	for _, a := range s.Session.Answers {
		if a.IsCorrect {
			correct++
		}
		seconds += a.TimeSpentSeconds
	}
	score := Score(correct, total)

	next := s
	next.Phase = PhaseCompleted
	completedAt := at
	next.Session.CompletedAt = &completedAt
	next.Session.TimeSpentSeconds = seconds
	next.Session.CorrectCount = &correct
	next.Session.Score = &score

	return next, Summary{
		SessionID:       s.Session.ID,
		StudentID:       s.Session.StudentID,
		SubTopicID:      s.Session.SubTopicID,
		TotalQuestions:  total,
		CorrectCount:    correct,
		Score:           score,
		DurationSeconds: seconds,
		CompletedAt:     at,
	}, nil
}

// Score is the rounded percentage of correct answers; zero questions score 0.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Completion converts a summary into the gateway's mark-complete payload.
func (s Summary) Completion() Completion {
	return Completion{
		SessionID:        s.SessionID,
		CorrectCount:     s.CorrectCount,
		Score:            s.Score,
		TimeSpentSeconds: s.DurationSeconds,
		CompletedAt:      s.CompletedAt,
	}
}

func clampIndex(index, n int) int {
	if index < 1 || n == 0 {
		return 1
	}
	if index > n {
		return n
	}
	return index
}
