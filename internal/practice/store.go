package practice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StoreOptions tunes a SessionStore.
type StoreOptions struct {
	BatchSize int
	Shuffle   *ShuffleCache
	Events    EventPublisher
	NewID     func() uuid.UUID
}

// SessionStore owns the lifecycle of one student's active practice session.
// Operations are serialised; a failed persistence call leaves state untouched.
type SessionStore struct {
	mu        sync.Mutex
	studentID uuid.UUID
	state     State

	gateway   Gateway
	catalog   Catalog
	gate      *LimitGate
	shuffle   *ShuffleCache
	events    EventPublisher
	batchSize int
	newID     func() uuid.UUID
	logger    zerolog.Logger
}

// NewSessionStore creates an Uninitialized store for studentID.
func NewSessionStore(studentID uuid.UUID, gateway Gateway, catalog Catalog, gate *LimitGate, opts StoreOptions, logger zerolog.Logger) *SessionStore {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Shuffle == nil {
		opts.Shuffle = NewShuffleCache()
	}
	if opts.Events == nil {
		opts.Events = noopPublisher{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	return &SessionStore{
		studentID: studentID,
		gateway:   gateway,
		catalog:   catalog,
		gate:      gate,
		shuffle:   opts.Shuffle,
		events:    opts.Events,
		batchSize: opts.BatchSize,
		newID:     opts.NewID,
		logger: logger.With().
			Str("component", "practice_store").
			Str("student_id", studentID.String()).
			Logger(),
	}
}

// State returns a snapshot of the in-memory state.
func (s *SessionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the id of the session held in memory, or uuid.Nil.
func (s *SessionStore) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == PhaseUninitialized {
		return uuid.Nil
	}
	return s.state.Session.ID
}

// Start creates a new session for subTopicID and makes it active.
func (s *SessionStore) Start(ctx context.Context, subTopicID uuid.UUID) (PracticeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.gate.CheckLimit(ctx, s.studentID)
	if err != nil {
		return PracticeSession{}, fmt.Errorf("check limit: %w", err)
	}
	if !status.CanStartSession {
		limitRejections.Inc()
		return PracticeSession{}, ErrLimitReached
	}

	cycle, err := s.gateway.CurrentCycle(ctx, s.studentID, subTopicID)
	if err != nil {
		return PracticeSession{}, fmt.Errorf("current cycle: %w", err)
	}
	questions, cycle, err := s.drawBatch(ctx, subTopicID, cycle)
	if err != nil {
		return PracticeSession{}, err
	}

	subTopic, err := s.catalog.SubTopic(ctx, subTopicID)
	if err != nil {
		return PracticeSession{}, fmt.Errorf("load sub-topic: %w", err)
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	now := s.gate.Now()
	created, err := s.gateway.CreateSessionWithinQuota(ctx, NewSession{
		ID:          s.newID(),
		StudentID:   s.studentID,
		SubTopic:    subTopic,
		CycleNumber: cycle,
		QuestionIDs: ids,
		CreatedAt:   now,
	}, s.gate.DayStart(now), status.SessionLimit)
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			limitRejections.Inc()
			return PracticeSession{}, ErrLimitReachedAtCreate
		}
		return PracticeSession{}, fmt.Errorf("create session: %w", err)
	}

	s.shuffle.Reset(created.ID)
	s.state = ActiveState(created, questions)
	sessionsStarted.Inc()

	s.logger.Info().
		Str("session_id", created.ID.String()).
		Str("sub_topic_id", subTopicID.String()).
		Int("cycle", cycle).
		Int("questions", len(questions)).
		Msg("practice session started")
	s.publish(ctx, EventSessionStarted, nil)
	return s.state.Session, nil
}

// drawBatch asks the catalog for the current cycle, moving to the next cycle
// once when the current one is exhausted.
func (s *SessionStore) drawBatch(ctx context.Context, subTopicID uuid.UUID, cycle int) ([]Question, int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		questions, err := s.catalog.QuestionsForSubTopic(ctx, CatalogRequest{
			StudentID:  s.studentID,
			SubTopicID: subTopicID,
			Cycle:      cycle,
			Limit:      s.batchSize,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("load questions: %w", err)
		}
		if len(questions) > 0 {
			return questions, cycle, nil
		}
		cycle++
	}
	return nil, 0, ErrNoQuestions
}

// Resume loads a persisted, incomplete session owned by this student.
func (s *SessionStore) Resume(ctx context.Context, sessionID uuid.UUID) (PracticeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume(ctx, sessionID)
}

// withSession runs fn with sessionID loaded, resuming it first when the store
// holds nothing or another session. The store stays locked until fn returns,
// so a concurrent request cannot swap the loaded session underneath fn.
func (s *SessionStore) withSession(ctx context.Context, sessionID uuid.UUID, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == PhaseUninitialized || s.state.Session.ID != sessionID {
		if _, err := s.resume(ctx, sessionID); err != nil {
			return err
		}
	}
	return fn()
}

// reloadAfterConflict re-reads a session whose write lost a version race so
// the next request sees what was persisted. Callers hold s.mu.
func (s *SessionStore) reloadAfterConflict(ctx context.Context, err error) {
	if !errors.Is(err, ErrVersionConflict) {
		return
	}
	sessionID := s.state.Session.ID
	if _, rerr := s.resume(ctx, sessionID); rerr != nil {
		s.logger.Warn().Err(rerr).Str("session_id", sessionID.String()).Msg("reload after version conflict")
		s.state = State{}
	}
}

func (s *SessionStore) resume(ctx context.Context, sessionID uuid.UUID) (PracticeSession, error) {
	stored, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PracticeSession{}, ErrNotFound
		}
		return PracticeSession{}, fmt.Errorf("load session: %w", err)
	}
	if stored.StudentID != s.studentID || stored.Completed() {
		return PracticeSession{}, ErrNotFound
	}

	questions, err := s.catalog.QuestionsByID(ctx, stored.QuestionIDs)
	if err != nil {
		return PracticeSession{}, fmt.Errorf("load session questions: %w", err)
	}
	if len(questions) != len(stored.QuestionIDs) {
		return PracticeSession{}, fmt.Errorf("session %s: %d of %d questions available", sessionID, len(questions), len(stored.QuestionIDs))
	}

	s.shuffle.Bind(stored.ID)
	s.state = ActiveState(stored, questions)

	s.logger.Info().
		Str("session_id", stored.ID.String()).
		Int("index", s.state.Session.CurrentIndex).
		Int("answered", len(stored.Answers)).
		Msg("practice session resumed")
	return s.state.Session, nil
}

// QuestionView is one question as presented, options in their stable shuffled order.
type QuestionView struct {
	SessionID uuid.UUID
	Index     int
	Total     int
	Question  Question
	Answer    *PracticeAnswer
}

// CurrentQuestion returns the question at the current index.
func (s *SessionStore) CurrentQuestion() (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestion()
}

func (s *SessionStore) currentQuestion() (QuestionView, error) {
	q, err := s.state.Current()
	if err != nil {
		return QuestionView{}, err
	}
	if q.Type.IsChoice() {
		q.Options = s.shuffle.OptionsFor(s.state.Session.ID, q)
	}
	view := QuestionView{
		SessionID: s.state.Session.ID,
		Index:     s.state.Session.CurrentIndex,
		Total:     len(s.state.Questions),
		Question:  q,
	}
	if a, ok := s.state.AnswerFor(q.ID); ok {
		view.Answer = &a
	}
	return view, nil
}

// SubmitAnswer records the answer for the current question. The index does not move.
func (s *SessionStore) SubmitAnswer(ctx context.Context, sub Submission, timeSpentSeconds int) (PracticeAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitAnswer(ctx, sub, timeSpentSeconds)
}

func (s *SessionStore) submitAnswer(ctx context.Context, sub Submission, timeSpentSeconds int) (PracticeAnswer, error) {
	next, answer, err := s.state.Submit(sub, timeSpentSeconds, s.newID(), s.gate.Now())
	if err != nil {
		return PracticeAnswer{}, err
	}

	version, err := s.gateway.InsertAnswer(ctx, answer, s.state.Session.Version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			versionConflicts.Inc()
		}
		return PracticeAnswer{}, fmt.Errorf("save answer: %w", err)
	}
	next.Session.Version = version
	s.state = next

	answersSubmitted.WithLabelValues(strconv.FormatBool(answer.IsCorrect)).Inc()
	s.logger.Info().
		Str("session_id", answer.SessionID.String()).
		Int("index", s.state.Session.CurrentIndex).
		Bool("correct", answer.IsCorrect).
		Msg("answer recorded")
	s.publish(ctx, EventSessionAnswered, nil)
	return answer, nil
}

// Next moves forward one question; a no-op on the last one.
func (s *SessionStore) Next(ctx context.Context) (int, error) {
	return s.navigate(ctx, func(st State) (State, bool, error) { return st.MoveBy(1) })
}

// Previous moves back one question; a no-op on the first one.
func (s *SessionStore) Previous(ctx context.Context) (int, error) {
	return s.navigate(ctx, func(st State) (State, bool, error) { return st.MoveBy(-1) })
}

// GoTo jumps to a 1-based index, clamped into range.
func (s *SessionStore) GoTo(ctx context.Context, index int) (int, error) {
	return s.navigate(ctx, func(st State) (State, bool, error) { return st.GoTo(index) })
}

func (s *SessionStore) navigate(ctx context.Context, step func(State) (State, bool, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(ctx, step)
}

func (s *SessionStore) move(ctx context.Context, step func(State) (State, bool, error)) (int, error) {
	next, changed, err := step(s.state)
	if err != nil {
		return 0, err
	}
	if !changed {
		return s.state.Session.CurrentIndex, nil
	}
	if err := s.gateway.UpdateProgress(ctx, next.Session.ID, next.Session.CurrentIndex); err != nil {
		return 0, fmt.Errorf("save progress: %w", err)
	}
	s.state = next
	return next.Session.CurrentIndex, nil
}

// Complete finalises the active session and returns the summary for the reward function.
func (s *SessionStore) Complete(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete(ctx)
}

func (s *SessionStore) complete(ctx context.Context) (Summary, error) {
	next, summary, err := s.state.Complete(s.gate.Now())
	if err != nil {
		return Summary{}, err
	}

	version, err := s.gateway.CompleteSession(ctx, summary.Completion(), s.state.Session.Version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			versionConflicts.Inc()
		}
		return Summary{}, fmt.Errorf("complete session: %w", err)
	}
	next.Session.Version = version
	s.state = next

	sessionsCompleted.Inc()
	completionScores.Observe(float64(summary.Score))
	s.logger.Info().
		Str("session_id", summary.SessionID.String()).
		Int("correct", summary.CorrectCount).
		Int("total", summary.TotalQuestions).
		Int("score", summary.Score).
		Msg("practice session completed")
	s.publish(ctx, EventSessionCompleted, &summary)
	return summary, nil
}

// RecordRewards stores the reward function's result on the completed session.
func (s *SessionStore) RecordRewards(ctx context.Context, r Rewards) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseCompleted {
		return ErrNotActive
	}
	if err := s.gateway.ApplyRewards(ctx, s.state.Session.ID, r); err != nil {
		return fmt.Errorf("apply rewards: %w", err)
	}
	xp, coins := r.XP, r.Coins
	s.state.Session.XPEarned = &xp
	s.state.Session.CoinsEarned = &coins
	return nil
}

// End drops the in-memory session without completing it. The persisted
// session keeps its last saved state and can be resumed.
func (s *SessionStore) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseUninitialized {
		s.logger.Info().Str("session_id", s.state.Session.ID.String()).Msg("practice session released")
	}
	s.state = State{}
}

func (s *SessionStore) publish(ctx context.Context, typ string, summary *Summary) {
	ev := Event{
		Type:          typ,
		SessionID:     s.state.Session.ID,
		StudentID:     s.studentID,
		QuestionIndex: s.state.Session.CurrentIndex,
		AnsweredCount: len(s.state.Session.Answers),
		Version:       s.state.Session.Version,
		Summary:       summary,
		OccurredAt:    s.gate.Now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Msg("publish practice event")
	}
}
