package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/practice-engine/internal/db/sqlc"
)

type questionStore interface {
	ListUnservedQuestions(ctx context.Context, arg sqlcgen.ListUnservedQuestionsParams) ([]sqlcgen.Question, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]sqlcgen.Question, error)
	ListOptionsForQuestions(ctx context.Context, questionIds []string) ([]sqlcgen.QuestionOption, error)
	GetSubTopicPath(ctx context.Context, id pgtype.UUID) (sqlcgen.GetSubTopicPathRow, error)
}

// QuestionRepository wraps sqlc queries for curriculum content access.
type QuestionRepository struct {
	store questionStore
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// FetchUnserved returns up to limit active questions of a sub-topic not yet
// served to the student within cycle, in random order.
func (r *QuestionRepository) FetchUnserved(ctx context.Context, studentID, subTopicID uuid.UUID, cycle, limit int) ([]sqlcgen.Question, error) {
	return r.store.ListUnservedQuestions(ctx, sqlcgen.ListUnservedQuestionsParams{
		SubTopicID:   pgUUID(subTopicID),
		StudentID:    pgUUID(studentID),
		CycleNumber:  int32(cycle),
		MaxQuestions: int32(limit),
	})
}

// FetchByIDs loads questions in no particular order.
func (r *QuestionRepository) FetchByIDs(ctx context.Context, ids []string) ([]sqlcgen.Question, error) {
	return r.store.GetQuestionsByIDs(ctx, ids)
}

// FetchOptions loads the options of the given questions ordered by question and position.
func (r *QuestionRepository) FetchOptions(ctx context.Context, questionIDs []string) ([]sqlcgen.QuestionOption, error) {
	return r.store.ListOptionsForQuestions(ctx, questionIDs)
}

// SubTopicPath resolves the subject and topic a sub-topic belongs to.
func (r *QuestionRepository) SubTopicPath(ctx context.Context, subTopicID uuid.UUID) (sqlcgen.GetSubTopicPathRow, error) {
	return r.store.GetSubTopicPath(ctx, pgUUID(subTopicID))
}
