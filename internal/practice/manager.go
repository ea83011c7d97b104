package practice

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ManagerOptions configures the Manager.
type ManagerOptions struct {
	BatchSize int
	Locker    Locker
	Events    EventPublisher
}

// Manager routes student requests to that student's SessionStore. Each
// student has at most one store; a request for a session that store does not
// hold resumes it first.
type Manager struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*SessionStore

	gateway   Gateway
	catalog   Catalog
	gate      *LimitGate
	locker    Locker
	events    EventPublisher
	batchSize int
	logger    zerolog.Logger
}

// NewManager wires a manager over the shared collaborators.
func NewManager(gateway Gateway, catalog Catalog, gate *LimitGate, opts ManagerOptions, logger zerolog.Logger) *Manager {
	if opts.Locker == nil {
		opts.Locker = noopLocker{}
	}
	if opts.Events == nil {
		opts.Events = noopPublisher{}
	}
	return &Manager{
		stores:    make(map[uuid.UUID]*SessionStore),
		gateway:   gateway,
		catalog:   catalog,
		gate:      gate,
		locker:    opts.Locker,
		events:    opts.Events,
		batchSize: opts.BatchSize,
		logger:    logger.With().Str("component", "practice_manager").Logger(),
	}
}

func (m *Manager) storeFor(studentID uuid.UUID) *SessionStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stores[studentID]
	if !ok {
		st = NewSessionStore(studentID, m.gateway, m.catalog, m.gate, StoreOptions{
			BatchSize: m.batchSize,
			Events:    m.events,
		}, m.logger)
		m.stores[studentID] = st
	}
	return st
}

// CheckLimit reports the student's quota for today.
func (m *Manager) CheckLimit(ctx context.Context, studentID uuid.UUID) (LimitStatus, error) {
	return m.gate.CheckLimit(ctx, studentID)
}

// Start begins a new session, replacing whatever the student's store held.
func (m *Manager) Start(ctx context.Context, studentID, subTopicID uuid.UUID) (PracticeSession, error) {
	st := m.storeFor(studentID)
	session, err := st.Start(ctx, subTopicID)
	m.forgetIfIdle(studentID, st, err)
	return session, err
}

// ListOpen returns the student's incomplete sessions, newest first.
func (m *Manager) ListOpen(ctx context.Context, studentID uuid.UUID) ([]PracticeSession, error) {
	sessions, err := m.gateway.ListOpenSessions(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	return sessions, nil
}

// Resume loads sessionID into the student's store.
func (m *Manager) Resume(ctx context.Context, studentID, sessionID uuid.UUID) (PracticeSession, error) {
	var out PracticeSession
	err := m.withLock(ctx, sessionID, func() error {
		st := m.storeFor(studentID)
		var err error
		out, err = st.Resume(ctx, sessionID)
		m.forgetIfIdle(studentID, st, err)
		return err
	})
	return out, err
}

// Current returns the current question of sessionID.
func (m *Manager) Current(ctx context.Context, studentID, sessionID uuid.UUID) (QuestionView, error) {
	var out QuestionView
	err := m.within(ctx, studentID, sessionID, func(st *SessionStore) error {
		var err error
		out, err = st.currentQuestion()
		return err
	})
	return out, err
}

// Session returns the in-memory state of sessionID, loading it when needed.
func (m *Manager) Session(ctx context.Context, studentID, sessionID uuid.UUID) (State, error) {
	var out State
	err := m.within(ctx, studentID, sessionID, func(st *SessionStore) error {
		out = st.state
		return nil
	})
	return out, err
}

// Submit records an answer for the current question of sessionID.
func (m *Manager) Submit(ctx context.Context, studentID, sessionID uuid.UUID, sub Submission, timeSpentSeconds int) (PracticeAnswer, error) {
	var out PracticeAnswer
	err := m.withLock(ctx, sessionID, func() error {
		return m.within(ctx, studentID, sessionID, func(st *SessionStore) error {
			var err error
			out, err = st.submitAnswer(ctx, sub, timeSpentSeconds)
			st.reloadAfterConflict(ctx, err)
			return err
		})
	})
	return out, err
}

// Navigation is either a relative step or an absolute 1-based index.
type Navigation struct {
	Direction string
	Index     int
}

// Navigation directions.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
)

// Navigate moves the current index of sessionID and returns the new index.
func (m *Manager) Navigate(ctx context.Context, studentID, sessionID uuid.UUID, nav Navigation) (int, error) {
	var step func(State) (State, bool, error)
	switch {
	case nav.Direction == DirectionNext:
		step = func(s State) (State, bool, error) { return s.MoveBy(1) }
	case nav.Direction == DirectionPrevious:
		step = func(s State) (State, bool, error) { return s.MoveBy(-1) }
	case nav.Direction == "" && nav.Index > 0:
		step = func(s State) (State, bool, error) { return s.GoTo(nav.Index) }
	default:
		return 0, ErrBadNavigation
	}

	var out int
	err := m.withLock(ctx, sessionID, func() error {
		return m.within(ctx, studentID, sessionID, func(st *SessionStore) error {
			var err error
			out, err = st.move(ctx, step)
			return err
		})
	})
	return out, err
}

// Complete finalises sessionID. The completed session leaves memory; rewards
// for it are written straight through the gateway.
func (m *Manager) Complete(ctx context.Context, studentID, sessionID uuid.UUID) (Summary, error) {
	var out Summary
	err := m.withLock(ctx, sessionID, func() error {
		return m.within(ctx, studentID, sessionID, func(st *SessionStore) error {
			var err error
			out, err = st.complete(ctx)
			st.reloadAfterConflict(ctx, err)
			return err
		})
	})
	if err != nil {
		return Summary{}, err
	}
	m.forget(studentID, sessionID)
	return out, nil
}

// RecordRewards stores reward deltas for a completed session.
func (m *Manager) RecordRewards(ctx context.Context, studentID, sessionID uuid.UUID, r Rewards) error {
	if st := m.loaded(studentID); st != nil && st.SessionID() == sessionID {
		return st.RecordRewards(ctx, r)
	}

	stored, err := m.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if stored.StudentID != studentID || !stored.Completed() {
		return ErrNotFound
	}
	return m.gateway.ApplyRewards(ctx, sessionID, r)
}

// End releases sessionID from memory. Ending a session that is not loaded is a no-op.
func (m *Manager) End(studentID, sessionID uuid.UUID) {
	st := m.loaded(studentID)
	if st == nil || st.SessionID() != sessionID {
		return
	}
	st.End()
	m.forget(studentID, sessionID)
}

// within runs fn on the student's store with sessionID loaded. A store left
// holding nothing after a failure is dropped.
func (m *Manager) within(ctx context.Context, studentID, sessionID uuid.UUID, fn func(st *SessionStore) error) error {
	st := m.storeFor(studentID)
	err := st.withSession(ctx, sessionID, func() error { return fn(st) })
	m.forgetIfIdle(studentID, st, err)
	return err
}

// loaded returns the student's store without creating one.
func (m *Manager) loaded(studentID uuid.UUID) *SessionStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[studentID]
}

// forget drops the student's store when it still holds sessionID or nothing.
func (m *Manager) forget(studentID, sessionID uuid.UUID) {
	st := m.loaded(studentID)
	if st == nil {
		return
	}
	if id := st.SessionID(); id != sessionID && id != uuid.Nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stores[studentID] == st {
		delete(m.stores, studentID)
	}
}

func (m *Manager) forgetIfIdle(studentID uuid.UUID, st *SessionStore, err error) {
	if err == nil || st.SessionID() != uuid.Nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stores[studentID] == st {
		delete(m.stores, studentID)
	}
}

func (m *Manager) withLock(ctx context.Context, sessionID uuid.UUID, fn func() error) error {
	unlock, err := m.locker.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("release session lock")
		}
	}()
	return fn()
}
