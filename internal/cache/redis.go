// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for room action logs.
const DefaultQueueName = "codeheist_actions"

// ActionRecord holds the minimal info the historian consumer needs to rebuild
// a room's action timeline.
type ActionRecord struct {
	RoomID      uuid.UUID `json:"room_id"`
	RoomCode    string    `json:"room_code"`
	ActionIndex int       `json:"action_index"`
	ActorID     uuid.UUID `json:"actor_user_id"`
	ActionType  string    `json:"action_type"`
	Card        string    `json:"card,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   int64     `json:"timestamp"`
}

// ActionQueue publishes action records onto a Redis list.
type ActionQueue struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes an ActionQueue from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - HISTORIAN_QUEUE_NAME (optional)
func Connect() (*ActionQueue, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &ActionQueue{
		rdb:   rdb,
		queue: getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
	}, nil
}

// Publish serializes the record to JSON and pushes it onto the queue. This
// does not block the calling logic beyond a quick network send.
func (q *ActionQueue) Publish(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", q.queue, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
