package practice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocker struct {
	mu       sync.Mutex
	held     map[uuid.UUID]bool
	acquired int
	released int
}

func newCountingLocker() *countingLocker {
	return &countingLocker{held: map[uuid.UUID]bool{}}
}

func (l *countingLocker) Lock(_ context.Context, id uuid.UUID) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, ErrSessionBusy
	}
	l.held[id] = true
	l.acquired++
	return func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, id)
		l.released++
		return nil
	}, nil
}

func (e *testEnv) manager(locker Locker) *Manager {
	return NewManager(e.gateway, e.catalog, e.gate, ManagerOptions{
		BatchSize: 10,
		Locker:    locker,
		Events:    e.events,
	}, zerolog.Nop())
}

func TestManagerFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 2)...)
	locker := newCountingLocker()
	m := env.manager(locker)

	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)

	_, err = m.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q1-a"}}, 3)
	require.NoError(t, err)
	idx, err := m.Navigate(ctx, env.studentID, session.ID, Navigation{Direction: DirectionNext})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	_, err = m.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q2-b"}}, 3)
	require.NoError(t, err)

	summary, err := m.Complete(ctx, env.studentID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Score)

	require.NoError(t, m.RecordRewards(ctx, env.studentID, session.ID, Rewards{XP: 10}))
	assert.Equal(t, locker.acquired, locker.released)
	assert.Equal(t, 4, locker.acquired)
}

func TestManagerResumesAfterRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)

	session, err := env.manager(nil).Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)
	_, err = env.manager(nil).Navigate(ctx, env.studentID, session.ID, Navigation{Index: 2})
	require.NoError(t, err)

	// A fresh manager has nothing in memory and loads the session on demand.
	view, err := env.manager(nil).Current(ctx, env.studentID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Index)
	assert.Equal(t, "q2", view.Question.ID)
}

func TestManagerRejectsForeignSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	m := env.manager(nil)

	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)

	_, err = m.Submit(ctx, uuid.New(), session.ID, Submission{OptionIDs: []string{"q1-a"}}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, env.gateway.session(session.ID).Answers)

	err = m.RecordRewards(ctx, uuid.New(), session.ID, Rewards{XP: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerSessionBusy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	locker := newCountingLocker()
	m := env.manager(locker)

	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, session.ID)
	require.NoError(t, err)
	_, err = m.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q1-a"}}, 1)
	assert.ErrorIs(t, err, ErrSessionBusy)
	require.NoError(t, unlock())

	_, err = m.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q1-a"}}, 1)
	assert.NoError(t, err)
}

func TestManagerRefreshesAfterVersionConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	tabA := env.manager(nil)
	tabB := env.manager(nil)

	session, err := tabA.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)
	_, err = tabB.Resume(ctx, env.studentID, session.ID)
	require.NoError(t, err)

	_, err = tabA.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q1-a"}}, 1)
	require.NoError(t, err)

	_, err = tabB.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q1-b"}}, 1)
	require.ErrorIs(t, err, ErrAlreadyAnswered)

	_, err = tabB.Navigate(ctx, env.studentID, session.ID, Navigation{Direction: DirectionNext})
	require.NoError(t, err)
	_, err = tabB.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q2-a"}}, 1)
	require.ErrorIs(t, err, ErrVersionConflict)

	// The reload picked up tab A's answer, so tab B can continue.
	state, err := tabB.Session(ctx, env.studentID, session.ID)
	require.NoError(t, err)
	assert.Len(t, state.Session.Answers, 1)
	_, err = tabB.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{"q2-a"}}, 1)
	assert.NoError(t, err)
}

func TestManagerNavigateValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	m := env.manager(nil)
	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)

	_, err = m.Navigate(ctx, env.studentID, session.ID, Navigation{Direction: "sideways"})
	assert.ErrorIs(t, err, ErrBadNavigation)
	_, err = m.Navigate(ctx, env.studentID, session.ID, Navigation{})
	assert.ErrorIs(t, err, ErrBadNavigation)
}

func TestManagerEndKeepsPersistedSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	m := env.manager(nil)
	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)

	m.End(env.studentID, session.ID)

	open, err := m.ListOpen(ctx, env.studentID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, session.ID, open[0].ID)

	resumed, err := m.Resume(ctx, env.studentID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resumed.ID)
}

func storeCount(m *Manager) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

func TestManagerKeepsTabsOnTheirOwnSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.catalog.add(1, questionSet("q", 3)...)
	m := env.manager(nil)

	sessionA, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)
	sessionB, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)
	env.catalog.delay = time.Millisecond

	// One tab reads session A while another answers session B; every call
	// swaps the student's loaded session.
	for i := 0; i < 100; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			view, err := m.Current(ctx, env.studentID, sessionA.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, sessionA.ID, view.SessionID)
			}
		}()
		go func() {
			defer wg.Done()
			answer, err := m.Submit(ctx, env.studentID, sessionB.ID, Submission{OptionIDs: []string{"q1-a"}}, 1)
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyAnswered)
				return
			}
			assert.Equal(t, sessionB.ID, answer.SessionID)
		}()
		wg.Wait()
	}

	assert.Empty(t, env.gateway.session(sessionA.ID).Answers, "no answer may land in session A")
	assert.Len(t, env.gateway.session(sessionB.ID).Answers, 1)
}

func TestManagerReleasesStores(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.catalog.add(1, questionSet("q", 2)...)
	m := env.manager(nil)

	session, err := m.Start(ctx, env.studentID, env.subTopic)
	require.NoError(t, err)
	assert.Equal(t, 1, storeCount(m))

	m.End(env.studentID, session.ID)
	assert.Equal(t, 0, storeCount(m))

	// Failed loads leave nothing behind.
	_, err = m.Current(ctx, env.studentID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Resume(ctx, uuid.New(), session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, storeCount(m))

	for i, pick := range []string{"q1-a", "q2-a"} {
		_, err = m.Navigate(ctx, env.studentID, session.ID, Navigation{Index: i + 1})
		require.NoError(t, err)
		_, err = m.Submit(ctx, env.studentID, session.ID, Submission{OptionIDs: []string{pick}}, 2)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, storeCount(m))

	summary, err := m.Complete(ctx, env.studentID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Score)
	assert.Equal(t, 0, storeCount(m))

	require.NoError(t, m.RecordRewards(ctx, env.studentID, session.ID, Rewards{XP: 5, Coins: 1}))
	assert.Equal(t, Rewards{XP: 5, Coins: 1}, env.gateway.rewards[session.ID])
	assert.Equal(t, 0, storeCount(m))
}
