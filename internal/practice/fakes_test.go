package practice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type memGateway struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*PracticeSession
	tiers    map[uuid.UUID]string
	cycles   map[string]int
	rewards  map[uuid.UUID]Rewards

	insertErr   error
	progressErr error
	completeErr error
	// beforeCreate runs inside CreateSessionWithinQuota before the recount.
	beforeCreate func()
}

func newMemGateway() *memGateway {
	return &memGateway{
		sessions: map[uuid.UUID]*PracticeSession{},
		tiers:    map[uuid.UUID]string{},
		cycles:   map[string]int{},
		rewards:  map[uuid.UUID]Rewards{},
	}
}

func cycleKey(student, subTopic uuid.UUID) string {
	return student.String() + "/" + subTopic.String()
}

func cloneSession(s PracticeSession) PracticeSession {
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	s.Answers = append([]PracticeAnswer(nil), s.Answers...)
	return s
}

func (g *memGateway) countLocked(student uuid.UUID, since time.Time) int {
	n := 0
	for _, s := range g.sessions {
		if s.StudentID == student && !s.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func (g *memGateway) CountSessionsSince(_ context.Context, student uuid.UUID, since time.Time) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.countLocked(student, since), nil
}

func (g *memGateway) TierFor(_ context.Context, student uuid.UUID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tiers[student], nil
}

func (g *memGateway) CreateSessionWithinQuota(_ context.Context, ns NewSession, dayStart time.Time, limit int) (PracticeSession, error) {
	if g.beforeCreate != nil {
		g.beforeCreate()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.countLocked(ns.StudentID, dayStart) >= limit {
		return PracticeSession{}, ErrLimitReached
	}
	s := PracticeSession{
		ID:           ns.ID,
		StudentID:    ns.StudentID,
		SubTopicID:   ns.SubTopic.ID,
		SubjectName:  ns.SubTopic.SubjectName,
		TopicName:    ns.SubTopic.TopicName,
		SubTopicName: ns.SubTopic.Name,
		CycleNumber:  ns.CycleNumber,
		QuestionIDs:  append([]string(nil), ns.QuestionIDs...),
		CurrentIndex: 1,
		CreatedAt:    ns.CreatedAt,
		Version:      1,
	}
	g.sessions[s.ID] = &s
	g.cycles[cycleKey(ns.StudentID, ns.SubTopic.ID)] = ns.CycleNumber
	return cloneSession(s), nil
}

func (g *memGateway) GetSession(_ context.Context, id uuid.UUID) (PracticeSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return PracticeSession{}, ErrNotFound
	}
	return cloneSession(*s), nil
}

func (g *memGateway) ListOpenSessions(_ context.Context, student uuid.UUID) ([]PracticeSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []PracticeSession
	for _, s := range g.sessions {
		if s.StudentID == student && !s.Completed() {
			out = append(out, cloneSession(*s))
		}
	}
	return out, nil
}

func (g *memGateway) CurrentCycle(_ context.Context, student, subTopic uuid.UUID) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.cycles[cycleKey(student, subTopic)]; ok {
		return c, nil
	}
	return 1, nil
}

func (g *memGateway) InsertAnswer(_ context.Context, a PracticeAnswer, expectedVersion int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insertErr != nil {
		return 0, g.insertErr
	}
	s, ok := g.sessions[a.SessionID]
	if !ok {
		return 0, ErrNotFound
	}
	for _, prev := range s.Answers {
		if prev.QuestionID == a.QuestionID {
			return 0, ErrAlreadyAnswered
		}
	}
	if s.Version != expectedVersion || s.Completed() {
		return 0, ErrVersionConflict
	}
	s.Answers = append(s.Answers, a)
	s.TimeSpentSeconds += a.TimeSpentSeconds
	s.Version++
	return s.Version, nil
}

func (g *memGateway) UpdateProgress(_ context.Context, id uuid.UUID, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.progressErr != nil {
		return g.progressErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.CurrentIndex = index
	return nil
}

func (g *memGateway) CompleteSession(_ context.Context, c Completion, expectedVersion int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.completeErr != nil {
		return 0, g.completeErr
	}
	s, ok := g.sessions[c.SessionID]
	if !ok {
		return 0, ErrNotFound
	}
	if s.Version != expectedVersion || s.Completed() {
		return 0, ErrVersionConflict
	}
	if len(s.Answers) != len(s.QuestionIDs) {
		return 0, ErrIncompleteAnswers
	}
	at := c.CompletedAt
	correct, score := c.CorrectCount, c.Score
	s.CompletedAt = &at
	s.CorrectCount = &correct
	s.Score = &score
	s.TimeSpentSeconds = c.TimeSpentSeconds
	s.Version++
	return s.Version, nil
}

func (g *memGateway) ApplyRewards(_ context.Context, id uuid.UUID, r Rewards) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[id]; !ok {
		return ErrNotFound
	}
	g.rewards[id] = r
	return nil
}

func (g *memGateway) session(id uuid.UUID) PracticeSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	return cloneSession(*g.sessions[id])
}

func (g *memGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// memCatalog serves a fixed pool per cycle.
type memCatalog struct {
	mu       sync.Mutex
	byCycle  map[int][]Question
	byID     map[string]Question
	requests []CatalogRequest
	// delay slows QuestionsByID down to widen resume windows.
	delay time.Duration
}

func newMemCatalog() *memCatalog {
	return &memCatalog{byCycle: map[int][]Question{}, byID: map[string]Question{}}
}

func (c *memCatalog) add(cycle int, qs ...Question) {
	c.byCycle[cycle] = append(c.byCycle[cycle], qs...)
	for _, q := range qs {
		c.byID[q.ID] = q
	}
}

func (c *memCatalog) QuestionsForSubTopic(_ context.Context, req CatalogRequest) ([]Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	qs := c.byCycle[req.Cycle]
	if len(qs) > req.Limit {
		qs = qs[:req.Limit]
	}
	return append([]Question(nil), qs...), nil
}

func (c *memCatalog) QuestionsByID(_ context.Context, ids []string) ([]Question, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *memCatalog) SubTopic(_ context.Context, id uuid.UUID) (SubTopic, error) {
	return SubTopic{ID: id, Name: "Fractions", TopicName: "Numbers", SubjectName: "Math"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// singleChoice builds a question whose first option is correct.
func singleChoice(id string) Question {
	return Question{
		ID:     id,
		Type:   QuestionSingleChoice,
		Prompt: "Pick " + id,
		Options: []Option{
			{ID: id + "-a", Text: "A", IsCorrect: true},
			{ID: id + "-b", Text: "B"},
			{ID: id + "-c", Text: "C"},
			{ID: id + "-d", Text: "D"},
		},
	}
}

func questionSet(prefix string, n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = singleChoice(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return qs
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	gateway   *memGateway
	catalog   *memCatalog
	gate      *LimitGate
	events    *recordingPublisher
	studentID uuid.UUID
	subTopic  uuid.UUID
}

func newTestEnv(limit int) *testEnv {
	g := newMemGateway()
	return &testEnv{
		gateway: g,
		catalog: newMemCatalog(),
		gate: NewLimitGate(g, g, LimitOptions{
			TierLimits:  map[string]int{"free": limit},
			DefaultTier: "free",
			Location:    time.UTC,
			Clock:       func() time.Time { return fixedNow },
		}),
		events:    &recordingPublisher{},
		studentID: uuid.New(),
		subTopic:  uuid.New(),
	}
}

func (e *testEnv) store() *SessionStore {
	return NewSessionStore(e.studentID, e.gateway, e.catalog, e.gate, StoreOptions{
		BatchSize: 10,
		Events:    e.events,
	}, zerolog.Nop())
}

// answerAll submits the correct option for the first `correct` questions and a
// wrong one for the rest, advancing after each.
func answerAll(ctx context.Context, s *SessionStore, correct int) error {
	total := len(s.State().Questions)
	for i := 0; i < total; i++ {
		view, err := s.CurrentQuestion()
		if err != nil {
			return err
		}
		pick := view.Question.ID + "-b"
		if i < correct {
			pick = view.Question.ID + "-a"
		}
		if _, err := s.SubmitAnswer(ctx, Submission{OptionIDs: []string{pick}}, 5); err != nil {
			return err
		}
		if _, err := s.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}
