package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz_engine_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const assignmentCacheKeyPrefix = "assignment:student_view:"

// AssignmentCache keeps student projections in redis. A nil client turns
// every call into a miss or a no-op; cache errors never fail a request.
type AssignmentCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewAssignmentCache(rdb *redis.Client, ttl time.Duration) *AssignmentCache {
	return &AssignmentCache{Redis: rdb, TTL: ttl}
}

func (c *AssignmentCache) enabled() bool {
	return c != nil && c.Redis != nil && c.TTL > 0
}

func assignmentCacheKey(id uint) string {
	return fmt.Sprintf("%s%d", assignmentCacheKeyPrefix, id)
}

func (c *AssignmentCache) Get(ctx context.Context, id uint) (*StudentAssignment, bool) {
	if !c.enabled() {
		return nil, false
	}

	val, err := c.Redis.Get(ctx, assignmentCacheKey(id)).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		logger.Log.Warn("Assignment cache read failed", zap.Uint("assignment_id", id), zap.Error(err))
		return nil, false
	}

	var view StudentAssignment
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		logger.Log.Warn("Assignment cache entry corrupt", zap.Uint("assignment_id", id), zap.Error(err))
		return nil, false
	}
	return &view, true
}

func (c *AssignmentCache) Set(ctx context.Context, view *StudentAssignment) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, assignmentCacheKey(view.ID), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("Assignment cache write failed", zap.Uint("assignment_id", view.ID), zap.Error(err))
	}
}

func (c *AssignmentCache) Invalidate(ctx context.Context, id uint) {
	if !c.enabled() {
		return
	}
	if err := c.Redis.Del(ctx, assignmentCacheKey(id)).Err(); err != nil {
		logger.Log.Warn("Assignment cache invalidation failed", zap.Uint("assignment_id", id), zap.Error(err))
	}
}
