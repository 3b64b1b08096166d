package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T) (*AssignmentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	return NewAssignmentCache(rdb, time.Minute), mr
}

func TestAssignmentCache_RoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, 5); ok {
		t.Fatal("Get on empty cache hit")
	}

	view := &StudentAssignment{
		AssignmentHeader: AssignmentHeader{ID: 5, Title: "Maps", MaxAttempts: 2},
		Questions:        []StudentQuestion{{ID: 9, Content: "len of nil map?", Type: model.QuestionSingle}},
	}
	cache.Set(ctx, view)

	got, ok := cache.Get(ctx, 5)
	if !ok {
		t.Fatal("Get after Set missed")
	}
	if got.Title != "Maps" || got.MaxAttempts != 2 || len(got.Questions) != 1 || got.Questions[0].ID != 9 {
		t.Errorf("cached view = %+v", got)
	}
	if ttl := mr.TTL(assignmentCacheKey(5)); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	cache.Invalidate(ctx, 5)
	if mr.Exists(assignmentCacheKey(5)) {
		t.Error("key still present after Invalidate")
	}
	if _, ok := cache.Get(ctx, 5); ok {
		t.Error("Get after Invalidate hit")
	}

	if err := mr.Set(assignmentCacheKey(6), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	if _, ok := cache.Get(ctx, 6); ok {
		t.Error("corrupt entry reported as hit")
	}
}

func TestAssignmentCache_UnavailableRedisIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	cache.Set(ctx, &StudentAssignment{AssignmentHeader: AssignmentHeader{ID: 1}})
	if _, ok := cache.Get(ctx, 1); ok {
		t.Error("Get with redis down hit")
	}
	cache.Invalidate(ctx, 1)

	var disabled *AssignmentCache
	if _, ok := disabled.Get(ctx, 1); ok {
		t.Error("nil cache hit")
	}
}

func TestGetAssignment_CachedUntilDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache, mr := newTestCache(t)
	env.assignments.Cache = cache

	owner := &util.Claims{UserID: 1, Role: model.Teacher}
	a := env.createQuiz(t, owner.UserID, nil)

	if _, err := env.assignments.GetAssignment(ctx, a.ID); err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if !mr.Exists(assignmentCacheKey(a.ID)) {
		t.Fatal("student view not cached")
	}

	// A cached read does not touch the database.
	if err := env.db.Model(&model.Assignment{}).Where("id = ?", a.ID).Update("title", "Renamed").Error; err != nil {
		t.Fatalf("rename: %v", err)
	}
	view, err := env.assignments.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if view.Title != "Loops" {
		t.Errorf("title = %q, want cached %q", view.Title, "Loops")
	}

	if _, err := env.assignments.DeleteAssignment(ctx, a.ID, owner); err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}
	if mr.Exists(assignmentCacheKey(a.ID)) {
		t.Error("cache entry survived delete")
	}
	if _, err := env.assignments.GetAssignment(ctx, a.ID); !errors.Is(err, util.ErrAssignmentNotFound) {
		t.Errorf("GetAssignment after delete err = %v, want ErrAssignmentNotFound", err)
	}
}
