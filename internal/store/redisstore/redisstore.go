// Package redisstore provides a Redis-backed chatter store.
//
// Each chatter is a hash at <prefix>chatter:<id>. Two indexes keep lookups
// cheap: a set of chatter ids per room (<prefix>room:<room>) and a string
// mapping a connection id to its chatter id (<prefix>conn:<connectionId>).
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// Config holds redis store configuration.
type Config struct {
	Addr   string
	Prefix string
}

// DefaultConfig returns the default redis store configuration.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "wirechat:",
	}
}

// RedisStore implements store.ChatterStore on Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) chatterKey(id string) string { return s.prefix + "chatter:" + id }
func (s *RedisStore) roomKey(room string) string  { return s.prefix + "room:" + room }
func (s *RedisStore) connKey(conn string) string  { return s.prefix + "conn:" + conn }

// Find returns every chatter matching the filter, oldest first.
func (s *RedisStore) Find(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	ids, err := s.candidateIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	chatters, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*store.Chatter, 0, len(chatters))
	for _, c := range chatters {
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// FindOne returns the oldest chatter matching the filter.
func (s *RedisStore) FindOne(ctx context.Context, filter store.Filter) (*store.Chatter, error) {
	found, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

// Create stores the chatter hash and its indexes in one transaction.
func (s *RedisStore) Create(ctx context.Context, fields store.NewChatter) (*store.Chatter, error) {
	c := &store.Chatter{
		ID:           uuid.NewString(),
		Username:     fields.Username,
		Room:         fields.Room,
		Status:       fields.Status,
		ConnectionID: fields.ConnectionID,
		CreatedAt:    time.Now().UTC(),
	}

	ok, err := s.client.SetNX(ctx, s.connKey(c.ConnectionID), c.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve connection: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("connection %s already bound to a chatter", c.ConnectionID)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.chatterKey(c.ID), map[string]any{
		"id":            c.ID,
		"username":      c.Username,
		"room":          c.Room,
		"status":        string(c.Status),
		"connection_id": c.ConnectionID,
		"created_at":    c.CreatedAt.Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, s.roomKey(c.Room), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.client.Del(ctx, s.connKey(c.ConnectionID))
		return nil, fmt.Errorf("insert chatter: %w", err)
	}

	return c, nil
}

// Delete removes every matching chatter and its index entries.
func (s *RedisStore) Delete(ctx context.Context, filter store.Filter) ([]*store.Chatter, error) {
	found, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	deleted := make([]*store.Chatter, 0, len(found))
	for _, c := range found {
		pipe := s.client.TxPipeline()
		removed := pipe.Del(ctx, s.chatterKey(c.ID))
		pipe.SRem(ctx, s.roomKey(c.Room), c.ID)
		pipe.Del(ctx, s.connKey(c.ConnectionID))
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, fmt.Errorf("delete chatter: %w", err)
		}
		// A concurrent delete may have won the race for this record.
		if removed.Val() > 0 {
			deleted = append(deleted, c)
		}
	}
	return deleted, nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// candidateIDs narrows the search using the most selective index available.
func (s *RedisStore) candidateIDs(ctx context.Context, filter store.Filter) ([]string, error) {
	switch {
	case filter.ConnectionID != "":
		id, err := s.client.Get(ctx, s.connKey(filter.ConnectionID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, fmt.Errorf("lookup connection: %w", err)
		}
		return []string{id}, nil
	case filter.Room != "":
		ids, err := s.client.SMembers(ctx, s.roomKey(filter.Room)).Result()
		if err != nil {
			return nil, fmt.Errorf("list room: %w", err)
		}
		return ids, nil
	default:
		return s.scanIDs(ctx)
	}
}

func (s *RedisStore) scanIDs(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	prefix := s.chatterKey("")
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan chatters: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(prefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

func (s *RedisStore) load(ctx context.Context, ids []string) ([]*store.Chatter, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.chatterKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load chatters: %w", err)
	}

	chatters := make([]*store.Chatter, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
		chatters = append(chatters, &store.Chatter{
			ID:           fields["id"],
			Username:     fields["username"],
			Room:         fields["room"],
			Status:       store.Status(fields["status"]),
			ConnectionID: fields["connection_id"],
			CreatedAt:    createdAt,
		})
	}
	return chatters, nil
}
