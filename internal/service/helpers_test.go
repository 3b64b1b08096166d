package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection: concurrent transactions queue up like row locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&model.Assignment{},
		&model.Question{},
		&model.Answer{},
		&model.AttemptSlot{},
		&model.Attempt{},
		&model.StudentAnswer{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type publishedEvent struct {
	key     string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.key)
	}
	return keys
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "mem://" + key, nil
}

func (s *fakeBlobStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeBlobStore) KeyFromURL(url string) (string, bool) {
	return trimURLPrefix(url, "mem://")
}

func (s *fakeBlobStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type testEnv struct {
	db          *gorm.DB
	clock       *fakeClock
	events      *fakePublisher
	blobs       *fakeBlobStore
	assignments *AssignmentService
	attempts    *AttemptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	env := &testEnv{
		db:     db,
		clock:  newFakeClock(),
		events: &fakePublisher{},
		blobs:  newFakeBlobStore(),
	}

	assignmentRepo := repository.NewAssignmentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	thumbs := &ThumbnailProcessor{MaxWidth: 64, MaxHeight: 64, Quality: 75, MaxBytes: 1 << 20}

	env.assignments = NewAssignmentService(assignmentRepo, attemptRepo, env.blobs, thumbs, NewAssignmentCache(nil, 0), env.events)
	env.attempts = NewAttemptService(db, assignmentRepo, attemptRepo, env.events)
	env.attempts.Now = env.clock.Now
	return env
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

// quizRequest builds a two-question assignment: a single-choice question
// worth 4 and a multiple-choice question worth 6.
func quizRequest() *CreateAssignmentRequest {
	return &CreateAssignmentRequest{
		Title:       "Loops",
		Description: "for and while",
		Questions: []CreateQuestionRequest{
			{
				Content: "Which loop always runs once?",
				Type:    "single",
				Score:   4,
				Answers: []CreateAnswerRequest{
					{Content: "do-while", IsCorrect: true},
					{Content: "while"},
					{Content: "for"},
				},
			},
			{
				Content: "Which keywords exit or skip an iteration?",
				Type:    "multiple",
				Score:   6,
				Answers: []CreateAnswerRequest{
					{Content: "break", IsCorrect: true},
					{Content: "continue", IsCorrect: true},
					{Content: "goto"},
				},
			},
		},
	}
}

func (e *testEnv) createQuiz(t *testing.T, creator uint, mutate func(*CreateAssignmentRequest)) *OwnerAssignment {
	t.Helper()
	req := quizRequest()
	if mutate != nil {
		mutate(req)
	}
	a, err := e.assignments.CreateAssignment(context.Background(), creator, req)
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	return a
}

// correctAnswers returns a submission selecting exactly the correct options.
func correctAnswers(a *OwnerAssignment) []SubmitAnswer {
	var out []SubmitAnswer
	for _, q := range a.Questions {
		var ids AnswerIDs
		for _, ans := range q.Answers {
			if ans.IsCorrect {
				ids = append(ids, ans.ID)
			}
		}
		out = append(out, SubmitAnswer{QuestionID: q.ID, AnswerID: ids})
	}
	return out
}
