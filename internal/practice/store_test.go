package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 12)...)
	store := env.store()

	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	assert.Equal(t, 1, session.CurrentIndex)
	assert.Len(t, session.QuestionIDs, 10)
	assert.Equal(t, env.studentID, session.StudentID)
	assert.Equal(t, "Fractions", session.SubTopicName)
	assert.Equal(t, 1, session.CycleNumber)
	assert.Equal(t, PhaseActive, store.State().Phase)
	assert.Equal(t, 1, env.gateway.count())
	assert.Equal(t, []string{EventSessionStarted}, env.events.types())
}

func TestStartSessionLimitReachedCreatesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(10)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()

	for i := 0; i < 10; i++ {
		_, err := store.Start(ctx, env.subTopic)
		require.NoError(t, err)
	}
	before := store.State().Session.ID

	_, err := store.Start(ctx, env.subTopic)

	require.ErrorIs(t, err, ErrLimitReached)
	assert.NotErrorIs(t, err, ErrLimitReachedAtCreate, "refused by the pre-check")
	assert.Equal(t, 10, env.gateway.count())
	assert.Equal(t, before, store.State().Session.ID, "active session must survive a refused start")
}

func TestStartSessionLimitRaceIsCaughtAtCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(1)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()

	// Another tab creates the day's only session between the check and the create.
	env.gateway.beforeCreate = func() {
		env.gateway.beforeCreate = nil
		_, err := env.gateway.CreateSessionWithinQuota(ctx, NewSession{
			ID: uuid.New(), StudentID: env.studentID, SubTopic: SubTopic{ID: env.subTopic}, CycleNumber: 1, CreatedAt: fixedNow,
		}, fixedNow.Add(-time.Hour), 1)
		require.NoError(t, err)
	}

	_, err := store.Start(ctx, env.subTopic)

	require.ErrorIs(t, err, ErrLimitReached)
	assert.ErrorIs(t, err, ErrLimitReachedAtCreate)
	assert.Equal(t, 1, env.gateway.count())
	assert.Equal(t, PhaseUninitialized, store.State().Phase)
}

func TestStartSessionRotatesToNextCycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(2, questionSet("n", 4)...)
	store := env.store()

	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	assert.Equal(t, 2, session.CycleNumber)
	require.Len(t, env.catalog.requests, 2)
	assert.Equal(t, 1, env.catalog.requests[0].Cycle)
	assert.Equal(t, 2, env.catalog.requests[1].Cycle)
	assert.Equal(t, env.studentID, env.catalog.requests[1].StudentID)
}

func TestStartSessionNoQuestions(t *testing.T) {
	env := newTestEnv(3)
	store := env.store()

	_, err := store.Start(context.Background(), env.subTopic)

	require.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, 0, env.gateway.count())
}

func TestSubmitAnswerPersistsAndKeepsIndex(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	answer, err := store.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 7)
	require.NoError(t, err)

	assert.True(t, answer.IsCorrect)
	persisted := env.gateway.session(session.ID)
	require.Len(t, persisted.Answers, 1)
	assert.Equal(t, 7, persisted.TimeSpentSeconds)
	assert.Equal(t, persisted.Version, store.State().Session.Version)
	assert.Equal(t, 1, store.State().Session.CurrentIndex)

	_, err = store.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-b"}}, 7)
	require.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.Len(t, store.State().Session.Answers, 1)
	assert.Len(t, env.gateway.session(session.ID).Answers, 1)
}

func TestSubmitAnswerPersistenceFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()
	_, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	env.gateway.insertErr = errors.New("connection reset")
	_, err = store.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 7)
	require.Error(t, err)
	assert.Empty(t, store.State().Session.Answers)

	env.gateway.insertErr = nil
	_, err = store.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 7)
	require.NoError(t, err)
}

func TestSubmitAnswerVersionConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	tabA := env.store()
	tabB := env.store()

	session, err := tabA.Start(ctx, env.subTopic)
	require.NoError(t, err)
	_, err = tabB.Resume(ctx, session.ID)
	require.NoError(t, err)

	_, err = tabA.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 3)
	require.NoError(t, err)
	_, err = tabB.Next(ctx)
	require.NoError(t, err)

	_, err = tabB.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q2-a"}}, 3)
	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Len(t, env.gateway.session(session.ID).Answers, 1)
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	idx, err := store.Previous(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = store.GoTo(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, 3, env.gateway.session(session.ID).CurrentIndex)

	idx, err = store.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	env.gateway.progressErr = errors.New("timeout")
	_, err = store.Previous(ctx)
	require.Error(t, err)
	assert.Equal(t, 3, store.State().Session.CurrentIndex)
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 10)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	require.NoError(t, answerAll(ctx, store, 6))

	summary, err := store.Complete(ctx)
	require.NoError(t, err)

	assert.Equal(t, 60, summary.Score)
	assert.Equal(t, 6, summary.CorrectCount)
	assert.Equal(t, 10, summary.TotalQuestions)
	assert.Equal(t, 50, summary.DurationSeconds)

	persisted := env.gateway.session(session.ID)
	assert.True(t, persisted.Completed())
	require.NotNil(t, persisted.Score)
	assert.Equal(t, 60, *persisted.Score)
	assert.Equal(t, PhaseCompleted, store.State().Phase)

	_, err = store.Complete(ctx)
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = store.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 1)
	assert.ErrorIs(t, err, ErrNotActive)

	types := env.events.types()
	assert.Equal(t, EventSessionCompleted, types[len(types)-1])
}

func TestCompleteSessionIncomplete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 10)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		view, err := store.CurrentQuestion()
		require.NoError(t, err)
		_, err = store.SubmitAnswer(ctx, Submission{OptionIDs: []string{view.Question.ID + "-a"}}, 1)
		require.NoError(t, err)
		_, err = store.Next(ctx)
		require.NoError(t, err)
	}

	_, err = store.Complete(ctx)
	require.ErrorIs(t, err, ErrIncompleteAnswers)
	assert.False(t, env.gateway.session(session.ID).Completed())
	assert.Equal(t, PhaseActive, store.State().Phase)
}

func TestCompleteSessionPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 2)...)
	store := env.store()
	_, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)
	require.NoError(t, answerAll(ctx, store, 2))

	env.gateway.completeErr = errors.New("network")
	_, err = store.Complete(ctx)
	require.Error(t, err)
	assert.Equal(t, PhaseActive, store.State().Phase)

	env.gateway.completeErr = nil
	summary, err := store.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Score)
}

func TestResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 5)...)
	first := env.store()
	session, err := first.Start(ctx, env.subTopic)
	require.NoError(t, err)

	_, err = first.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q1-a"}}, 4)
	require.NoError(t, err)
	_, err = first.Next(ctx)
	require.NoError(t, err)
	_, err = first.SubmitAnswer(ctx, Submission{OptionIDs: []string{"q2-c"}}, 9)
	require.NoError(t, err)
	_, err = first.Next(ctx)
	require.NoError(t, err)
	before := first.State().Session
	first.End()
	assert.Equal(t, PhaseUninitialized, first.State().Phase)

	second := env.store()
	resumed, err := second.Resume(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, before.CurrentIndex, resumed.CurrentIndex)
	assert.Equal(t, before.QuestionIDs, resumed.QuestionIDs)
	require.Len(t, resumed.Answers, 2)
	for i := range before.Answers {
		assert.Equal(t, before.Answers[i].QuestionID, resumed.Answers[i].QuestionID)
		assert.Equal(t, before.Answers[i].IsCorrect, resumed.Answers[i].IsCorrect)
		assert.Equal(t, before.Answers[i].TimeSpentSeconds, resumed.Answers[i].TimeSpentSeconds)
	}

	view, err := second.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "q3", view.Question.ID)
	assert.Nil(t, view.Answer)
}

func TestResumeNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 1)...)
	owner := env.store()
	session, err := owner.Start(ctx, env.subTopic)
	require.NoError(t, err)

	_, err = env.store().Resume(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound, "missing")

	stranger := NewSessionStore(uuid.New(), env.gateway, env.catalog, env.gate, StoreOptions{}, owner.logger)
	_, err = stranger.Resume(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound, "foreign")

	require.NoError(t, answerAll(ctx, owner, 1))
	_, err = owner.Complete(ctx)
	require.NoError(t, err)
	_, err = env.store().Resume(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound, "completed")
}

func TestShuffleStableAcrossEndAndResumeOfSameSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 3)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	view, err := store.CurrentQuestion()
	require.NoError(t, err)
	want := optionIDs(view.Question.Options)

	for i := 0; i < 5; i++ {
		again, err := store.CurrentQuestion()
		require.NoError(t, err)
		assert.Equal(t, want, optionIDs(again.Question.Options))
	}

	store.End()
	_, err = store.Resume(ctx, session.ID)
	require.NoError(t, err)
	again, err := store.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, want, optionIDs(again.Question.Options))
}

func TestCurrentQuestionRequiresActive(t *testing.T) {
	env := newTestEnv(3)
	_, err := env.store().CurrentQuestion()
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestRecordRewards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(3)
	env.catalog.add(1, questionSet("q", 1)...)
	store := env.store()
	session, err := store.Start(ctx, env.subTopic)
	require.NoError(t, err)

	assert.ErrorIs(t, store.RecordRewards(ctx, Rewards{XP: 1}), ErrNotActive)

	require.NoError(t, answerAll(ctx, store, 1))
	_, err = store.Complete(ctx)
	require.NoError(t, err)

	require.NoError(t, store.RecordRewards(ctx, Rewards{XP: 40, Coins: 5}))
	assert.Equal(t, Rewards{XP: 40, Coins: 5}, env.gateway.rewards[session.ID])
	require.NotNil(t, store.State().Session.XPEarned)
	assert.Equal(t, 40, *store.State().Session.XPEarned)
}
