package practice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Gateway is the persistence collaborator. Implementations must make
// CreateSessionWithinQuota and CompleteSession atomic.
type Gateway interface {
	SessionCounter
	TierSource

	// CreateSessionWithinQuota re-counts sessions created since dayStart and
	// returns ErrLimitReached without writing anything once limit is reached.
	CreateSessionWithinQuota(ctx context.Context, s NewSession, dayStart time.Time, limit int) (PracticeSession, error)
	// GetSession returns ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id uuid.UUID) (PracticeSession, error)
	ListOpenSessions(ctx context.Context, studentID uuid.UUID) ([]PracticeSession, error)
	CurrentCycle(ctx context.Context, studentID, subTopicID uuid.UUID) (int, error)
	// InsertAnswer stores a and returns the new session version. It fails with
	// ErrAlreadyAnswered or ErrVersionConflict without writing.
	InsertAnswer(ctx context.Context, a PracticeAnswer, expectedVersion int) (int, error)
	UpdateProgress(ctx context.Context, sessionID uuid.UUID, currentIndex int) error
	// CompleteSession marks the session complete with its totals and returns the
	// new version. It refuses sessions that are already complete or not fully answered.
	CompleteSession(ctx context.Context, c Completion, expectedVersion int) (int, error)
	ApplyRewards(ctx context.Context, sessionID uuid.UUID, r Rewards) error
}

// SessionCounter counts sessions a student created from a point in time on.
type SessionCounter interface {
	CountSessionsSince(ctx context.Context, studentID uuid.UUID, since time.Time) (int, error)
}

// TierSource resolves a student's subscription tier. An empty tier means unknown.
type TierSource interface {
	TierFor(ctx context.Context, studentID uuid.UUID) (string, error)
}

// Catalog is the content collaborator. It owns the cycle exclusion policy.
type Catalog interface {
	QuestionsForSubTopic(ctx context.Context, req CatalogRequest) ([]Question, error)
	// QuestionsByID must return questions in the order of ids.
	QuestionsByID(ctx context.Context, ids []string) ([]Question, error)
	SubTopic(ctx context.Context, id uuid.UUID) (SubTopic, error)
}

// RewardFunc turns a completion summary into XP and coin deltas. The engine
// never calls it; callers do after CompleteSession.
type RewardFunc interface {
	Rewards(ctx context.Context, summary Summary) (Rewards, error)
}

// Locker serialises mutations of one session across processes.
type Locker interface {
	Lock(ctx context.Context, sessionID uuid.UUID) (unlock func() error, err error)
}

// EventPublisher fans session events out to other interested processes.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uuid.UUID) (func() error, error) {
	return func() error { return nil }, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
