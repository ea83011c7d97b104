package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/practice-engine/internal/db/sqlc"
	"github.com/gokatarajesh/practice-engine/internal/practice"
)

// ErrUnknownQuestion is returned when a requested question id does not exist.
var ErrUnknownQuestion = errors.New("unknown question")

// Service serves curriculum content to the practice engine from Postgres,
// caching hydrated questions in Redis.
type Service struct {
	repo   *repository.QuestionRepository
	cache  QuestionCache
	logger zerolog.Logger
}

var _ practice.Catalog = (*Service)(nil)

func NewService(repo *repository.QuestionRepository, cache QuestionCache, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// QuestionsForSubTopic returns up to req.Limit questions the student has not
// been served in req.Cycle. An empty result means the cycle is exhausted.
func (s *Service) QuestionsForSubTopic(ctx context.Context, req practice.CatalogRequest) ([]practice.Question, error) {
	rows, err := s.repo.FetchUnserved(ctx, req.StudentID, req.SubTopicID, req.Cycle, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unserved questions: %w", err)
	}
	qs, err := s.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.store(ctx, qs)
	return qs, nil
}

// QuestionsByID returns the questions in the order of ids.
func (s *Service) QuestionsByID(ctx context.Context, ids []string) ([]practice.Question, error) {
	found := map[string]practice.Question{}
	if s.cache != nil {
		cached, err := s.cache.GetMany(ctx, ids)
		if err != nil {
			s.logger.Warn().Err(err).Msg("question cache read failed")
		} else {
			found = cached
		}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		rows, err := s.repo.FetchByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("fetch questions: %w", err)
		}
		loaded, err := s.hydrate(ctx, rows)
		if err != nil {
			return nil, err
		}
		for _, q := range loaded {
			found[q.ID] = q
		}
		s.store(ctx, loaded)
	}

	out := make([]practice.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
		}
		out = append(out, q)
	}
	return out, nil
}

// SubTopic resolves the curriculum path names stored on a session.
func (s *Service) SubTopic(ctx context.Context, id uuid.UUID) (practice.SubTopic, error) {
	row, err := s.repo.SubTopicPath(ctx, id)
	if err != nil {
		return practice.SubTopic{}, fmt.Errorf("sub-topic %s: %w", id, err)
	}
	return practice.SubTopic{
		ID:          uuid.UUID(row.SubTopicID.Bytes),
		Name:        row.SubTopicName,
		TopicID:     uuid.UUID(row.TopicID.Bytes),
		TopicName:   row.TopicName,
		SubjectID:   uuid.UUID(row.SubjectID.Bytes),
		SubjectName: row.SubjectName,
	}, nil
}

func (s *Service) hydrate(ctx context.Context, rows []sqlcgen.Question) ([]practice.Question, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	opts, err := s.repo.FetchOptions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch options: %w", err)
	}
	byQuestion := make(map[string][]practice.Option, len(rows))
	for _, o := range opts {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], practice.Option{
			ID:        o.ID,
			Text:      o.Text.String,
			ImageURL:  o.ImageUrl.String,
			IsCorrect: o.IsCorrect,
		})
	}

	qs := make([]practice.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, toDomain(row, byQuestion[row.ID]))
	}
	return qs, nil
}

func (s *Service) store(ctx context.Context, qs []practice.Question) {
	if s.cache == nil || len(qs) == 0 {
		return
	}
	if err := s.cache.SetMany(ctx, qs); err != nil {
		s.logger.Warn().Err(err).Int("questions", len(qs)).Msg("question cache write failed")
	}
}

func toDomain(row sqlcgen.Question, opts []practice.Option) practice.Question {
	q := practice.Question{
		ID:          row.ID,
		Type:        practice.QuestionType(row.Type),
		Prompt:      row.Prompt,
		ImageURL:    row.ImageUrl.String,
		Explanation: row.Explanation.String,
	}
	if q.Type.IsChoice() {
		q.Options = opts
	} else {
		q.TextAnswer = row.TextAnswer.String
	}
	return q
}
