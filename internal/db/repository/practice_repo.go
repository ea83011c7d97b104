package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlcgen "github.com/gokatarajesh/practice-engine/internal/db/sqlc"
	"github.com/gokatarajesh/practice-engine/internal/practice"
)

type practiceStore interface {
	LockStudentSessions(ctx context.Context, studentID pgtype.UUID) error
	CountSessionsSince(ctx context.Context, arg sqlcgen.CountSessionsSinceParams) (int64, error)
	CreatePracticeSession(ctx context.Context, arg sqlcgen.CreatePracticeSessionParams) (sqlcgen.PracticeSession, error)
	InsertSessionQuestion(ctx context.Context, arg sqlcgen.InsertSessionQuestionParams) error
	InsertCycleUsage(ctx context.Context, arg sqlcgen.InsertCycleUsageParams) error
	GetCurrentCycle(ctx context.Context, arg sqlcgen.GetCurrentCycleParams) (int32, error)
	GetPracticeSession(ctx context.Context, id pgtype.UUID) (sqlcgen.PracticeSession, error)
	ListSessionQuestions(ctx context.Context, sessionID pgtype.UUID) ([]string, error)
	ListSessionAnswers(ctx context.Context, sessionID pgtype.UUID) ([]sqlcgen.PracticeAnswer, error)
	ListOpenSessions(ctx context.Context, studentID pgtype.UUID) ([]sqlcgen.PracticeSession, error)
	InsertPracticeAnswer(ctx context.Context, arg sqlcgen.InsertPracticeAnswerParams) (pgtype.UUID, error)
	BumpSessionVersion(ctx context.Context, arg sqlcgen.BumpSessionVersionParams) (int32, error)
	UpdateSessionProgress(ctx context.Context, arg sqlcgen.UpdateSessionProgressParams) (int64, error)
	CompletePracticeSession(ctx context.Context, arg sqlcgen.CompletePracticeSessionParams) (int32, error)
	ApplySessionRewards(ctx context.Context, arg sqlcgen.ApplySessionRewardsParams) (int64, error)
	GetStudentTier(ctx context.Context, studentID pgtype.UUID) (string, error)
}

// PracticeRepository is the Postgres persistence gateway for practice sessions.
type PracticeRepository struct {
	store practiceStore
	inTx  func(ctx context.Context, fn func(practiceStore) error) error
}

var _ practice.Gateway = (*PracticeRepository)(nil)

// NewPracticeRepository wraps sqlc Queries; multi-statement writes run in a pool transaction.
func NewPracticeRepository(pool *pgxpool.Pool, queries *sqlcgen.Queries) *PracticeRepository {
	return &PracticeRepository{
		store: queries,
		inTx: func(ctx context.Context, fn func(practiceStore) error) error {
			return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
				return fn(queries.WithTx(tx))
			})
		},
	}
}

// newPracticeRepositoryWithStore runs "transactions" directly on store.
func newPracticeRepositoryWithStore(store practiceStore) *PracticeRepository {
	return &PracticeRepository{
		store: store,
		inTx: func(_ context.Context, fn func(practiceStore) error) error {
			return fn(store)
		},
	}
}

// CountSessionsSince counts sessions a student created at or after since.
func (r *PracticeRepository) CountSessionsSince(ctx context.Context, studentID uuid.UUID, since time.Time) (int, error) {
	n, err := r.store.CountSessionsSince(ctx, sqlcgen.CountSessionsSinceParams{
		StudentID: pgUUID(studentID),
		Since:     pgTime(since),
	})
	return int(n), err
}

// TierFor returns the student's active subscription tier, or "" when none.
func (r *PracticeRepository) TierFor(ctx context.Context, studentID uuid.UUID) (string, error) {
	tier, err := r.store.GetStudentTier(ctx, pgUUID(studentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return tier, err
}

// CreateSessionWithinQuota serialises creates per student with an advisory
// lock, recounts, then writes the session, its questions and cycle usage.
func (r *PracticeRepository) CreateSessionWithinQuota(ctx context.Context, s practice.NewSession, dayStart time.Time, limit int) (practice.PracticeSession, error) {
	var created practice.PracticeSession
	err := r.inTx(ctx, func(q practiceStore) error {
		studentID := pgUUID(s.StudentID)
		if err := q.LockStudentSessions(ctx, studentID); err != nil {
			return fmt.Errorf("lock student sessions: %w", err)
		}
		n, err := q.CountSessionsSince(ctx, sqlcgen.CountSessionsSinceParams{StudentID: studentID, Since: pgTime(dayStart)})
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		if int(n) >= limit {
			return practice.ErrLimitReached
		}

		row, err := q.CreatePracticeSession(ctx, sqlcgen.CreatePracticeSessionParams{
			ID:            pgUUID(s.ID),
			StudentID:     studentID,
			SubTopicID:    pgUUID(s.SubTopic.ID),
			SubjectName:   s.SubTopic.SubjectName,
			TopicName:     s.SubTopic.TopicName,
			SubTopicName:  s.SubTopic.Name,
			CycleNumber:   int32(s.CycleNumber),
			QuestionCount: int32(len(s.QuestionIDs)),
			CreatedAt:     pgTime(s.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		for i, qid := range s.QuestionIDs {
			if err := q.InsertSessionQuestion(ctx, sqlcgen.InsertSessionQuestionParams{
				SessionID:  row.ID,
				Position:   int32(i + 1),
				QuestionID: qid,
			}); err != nil {
				return fmt.Errorf("insert session question %d: %w", i+1, err)
			}
			if err := q.InsertCycleUsage(ctx, sqlcgen.InsertCycleUsageParams{
				StudentID:   studentID,
				SubTopicID:  row.SubTopicID,
				CycleNumber: int32(s.CycleNumber),
				QuestionID:  qid,
			}); err != nil {
				return fmt.Errorf("record cycle usage: %w", err)
			}
		}

		created = toPracticeSession(row, s.QuestionIDs, nil)
		return nil
	})
	if err != nil {
		return practice.PracticeSession{}, err
	}
	return created, nil
}

// GetSession loads a session with its question ids and answers.
func (r *PracticeRepository) GetSession(ctx context.Context, id uuid.UUID) (practice.PracticeSession, error) {
	row, err := r.store.GetPracticeSession(ctx, pgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return practice.PracticeSession{}, practice.ErrNotFound
		}
		return practice.PracticeSession{}, err
	}
	return r.hydrate(ctx, row)
}

// ListOpenSessions returns the student's incomplete sessions, newest first.
func (r *PracticeRepository) ListOpenSessions(ctx context.Context, studentID uuid.UUID) ([]practice.PracticeSession, error) {
	rows, err := r.store.ListOpenSessions(ctx, pgUUID(studentID))
	if err != nil {
		return nil, err
	}
	out := make([]practice.PracticeSession, 0, len(rows))
	for _, row := range rows {
		s, err := r.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *PracticeRepository) hydrate(ctx context.Context, row sqlcgen.PracticeSession) (practice.PracticeSession, error) {
	ids, err := r.store.ListSessionQuestions(ctx, row.ID)
	if err != nil {
		return practice.PracticeSession{}, fmt.Errorf("list session questions: %w", err)
	}
	answers, err := r.store.ListSessionAnswers(ctx, row.ID)
	if err != nil {
		return practice.PracticeSession{}, fmt.Errorf("list session answers: %w", err)
	}
	return toPracticeSession(row, ids, answers), nil
}

// CurrentCycle returns the highest cycle the student has drawn from for the sub-topic, starting at 1.
func (r *PracticeRepository) CurrentCycle(ctx context.Context, studentID, subTopicID uuid.UUID) (int, error) {
	c, err := r.store.GetCurrentCycle(ctx, sqlcgen.GetCurrentCycleParams{
		StudentID:  pgUUID(studentID),
		SubTopicID: pgUUID(subTopicID),
	})
	return int(c), err
}

// InsertAnswer writes the answer and bumps the session version in one transaction.
func (r *PracticeRepository) InsertAnswer(ctx context.Context, a practice.PracticeAnswer, expectedVersion int) (int, error) {
	var version int32
	err := r.inTx(ctx, func(q practiceStore) error {
		_, err := q.InsertPracticeAnswer(ctx, sqlcgen.InsertPracticeAnswerParams{
			ID:                pgUUID(a.ID),
			SessionID:         pgUUID(a.SessionID),
			QuestionID:        a.QuestionID,
			SelectedOptionIds: nonNil(a.SelectedOptionIDs),
			TextAnswer:        pgText(a.TextAnswer),
			IsCorrect:         a.IsCorrect,
			TimeSpentSeconds:  int32(a.TimeSpentSeconds),
			AnsweredAt:        pgTime(a.AnsweredAt),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return practice.ErrAlreadyAnswered
		}
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}

		version, err = q.BumpSessionVersion(ctx, sqlcgen.BumpSessionVersionParams{
			ID:               pgUUID(a.SessionID),
			Version:          int32(expectedVersion),
			TimeSpentSeconds: int32(a.TimeSpentSeconds),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return practice.ErrVersionConflict
		}
		return err
	})
	return int(version), err
}

// UpdateProgress stores the current index. Navigation is last-write-wins.
func (r *PracticeRepository) UpdateProgress(ctx context.Context, sessionID uuid.UUID, currentIndex int) error {
	n, err := r.store.UpdateSessionProgress(ctx, sqlcgen.UpdateSessionProgressParams{
		ID:           pgUUID(sessionID),
		CurrentIndex: int32(currentIndex),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return practice.ErrNotFound
	}
	return nil
}

// CompleteSession atomically marks the session complete with its totals.
func (r *PracticeRepository) CompleteSession(ctx context.Context, c practice.Completion, expectedVersion int) (int, error) {
	version, err := r.store.CompletePracticeSession(ctx, sqlcgen.CompletePracticeSessionParams{
		CompletedAt:      pgTime(c.CompletedAt),
		CorrectCount:     pgInt4(c.CorrectCount),
		Score:            pgInt4(c.Score),
		TimeSpentSeconds: int32(c.TimeSpentSeconds),
		ID:               pgUUID(c.SessionID),
		Version:          int32(expectedVersion),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// stale version, already completed, or answers missing in storage
		return 0, practice.ErrVersionConflict
	}
	return int(version), err
}

// ApplyRewards stores XP and coins on a completed session.
func (r *PracticeRepository) ApplyRewards(ctx context.Context, sessionID uuid.UUID, rw practice.Rewards) error {
	n, err := r.store.ApplySessionRewards(ctx, sqlcgen.ApplySessionRewardsParams{
		ID:          pgUUID(sessionID),
		XpEarned:    pgInt4(rw.XP),
		CoinsEarned: pgInt4(rw.Coins),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return practice.ErrNotFound
	}
	return nil
}

func toPracticeSession(row sqlcgen.PracticeSession, questionIDs []string, answers []sqlcgen.PracticeAnswer) practice.PracticeSession {
	s := practice.PracticeSession{
		ID:               fromPgUUID(row.ID),
		StudentID:        fromPgUUID(row.StudentID),
		SubTopicID:       fromPgUUID(row.SubTopicID),
		SubjectName:      row.SubjectName,
		TopicName:        row.TopicName,
		SubTopicName:     row.SubTopicName,
		CycleNumber:      int(row.CycleNumber),
		QuestionIDs:      append([]string(nil), questionIDs...),
		CurrentIndex:     int(row.CurrentIndex),
		CreatedAt:        row.CreatedAt.Time,
		CompletedAt:      timePtr(row.CompletedAt),
		TimeSpentSeconds: int(row.TimeSpentSeconds),
		CorrectCount:     intPtr(row.CorrectCount),
		Score:            intPtr(row.Score),
		XPEarned:         intPtr(row.XpEarned),
		CoinsEarned:      intPtr(row.CoinsEarned),
		Version:          int(row.Version),
	}
	for _, a := range answers {
		s.Answers = append(s.Answers, practice.PracticeAnswer{
			ID:                fromPgUUID(a.ID),
			SessionID:         fromPgUUID(a.SessionID),
			QuestionID:        a.QuestionID,
			SelectedOptionIDs: a.SelectedOptionIds,
			TextAnswer:        a.TextAnswer.String,
			IsCorrect:         a.IsCorrect,
			TimeSpentSeconds:  int(a.TimeSpentSeconds),
			AnsweredAt:        a.AnsweredAt.Time,
		})
	}
	return s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
