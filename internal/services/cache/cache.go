// Package cache fronts a match result store with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/utils"
)

const keyPrefix = "matches:"

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewClient creates a Redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// ResultStore is a read-through cache over a backing matcher.ResultStore.
// Redis failures are logged and never fail a call the backing store served.
type ResultStore struct {
	client  redisClient
	backing matcher.ResultStore
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResultStore wraps backing with a Redis cache whose entries expire after ttl.
func NewResultStore(client redisClient, backing matcher.ResultStore, ttl time.Duration, logger *zap.Logger) *ResultStore {
	return &ResultStore{client: client, backing: backing, ttl: ttl, logger: utils.OrNop(logger)}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Save invalidates the cached entry, writes through to the backing store and
// then refreshes the cache. A superseded list is never served afterwards.
func (s *ResultStore) Save(ctx context.Context, sessionID string, matches []models.LenderMatch) error {
	s.evict(ctx, sessionID)
	if err := s.backing.Save(ctx, sessionID, matches); err != nil {
		return err
	}
	s.put(ctx, sessionID, matches)
	return nil
}

// Get serves from Redis when possible and fills the cache on a miss.
func (s *ResultStore) Get(ctx context.Context, sessionID string) ([]models.LenderMatch, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	switch {
	case err == nil:
		var matches []models.LenderMatch
		if jsonErr := json.Unmarshal(raw, &matches); jsonErr == nil {
			return matches, nil
		}
		s.logger.Warn("Discarding unreadable cached matches", zap.String("session_id", sessionID))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("Redis get failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	matches, err := s.backing.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if matches != nil {
		s.put(ctx, sessionID, matches)
	}
	return matches, nil
}

// Delete removes the entry from both Redis and the backing store.
func (s *ResultStore) Delete(ctx context.Context, sessionID string) error {
	s.evict(ctx, sessionID)
	return s.backing.Delete(ctx, sessionID)
}

func (s *ResultStore) evict(ctx context.Context, sessionID string) {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		s.logger.Warn("Redis delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *ResultStore) put(ctx context.Context, sessionID string, matches []models.LenderMatch) {
	raw, err := json.Marshal(matches)
	if err != nil {
		s.logger.Warn("Failed to encode matches for cache", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key(sessionID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("Redis set failed", zap.String("session_id", sessionID), zap.Error(err))
		s.evict(ctx, sessionID)
	}
}
