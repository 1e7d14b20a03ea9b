package storeadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/larkmail/keepd/internal/housekeeper"
)

// lookupScanCount is the COUNT hint passed to SCAN when sweeping a
// keyspace, matching the teacher corpus's convention of batching
// potentially large keyspaces rather than issuing KEYS.
const lookupScanCount = 500

// RedisLookupStore is the in-memory/lookup storage contract backed by
// Redis, sharing its connection with the lock service: both the
// housekeeper's coarse mutual exclusion and its ephemeral key/value data
// live in the same Redis database.
type RedisLookupStore struct {
	Client *redis.Client
	// Prefix namespaces every key this lookup store owns, so
	// PurgeInMemoryStore and KeyDeletePrefix never touch keys belonging to
	// another lookup store sharing the same Redis database.
	Prefix string
}

var _ housekeeper.LookupStore = (*RedisLookupStore)(nil)
var _ housekeeper.LockService = (*RedisLookupStore)(nil)

// PurgeInMemoryStore deletes every key under Prefix.
func (s *RedisLookupStore) PurgeInMemoryStore(ctx context.Context) error {
	return s.deleteByPattern(ctx, s.Prefix+"*")
}

// KeyDeletePrefix deletes every key under Prefix whose suffix starts with
// prefix.
func (s *RedisLookupStore) KeyDeletePrefix(ctx context.Context, prefix []byte) error {
	return s.deleteByPattern(ctx, s.Prefix+string(prefix)+"*")
}

func (s *RedisLookupStore) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, pattern, lookupScanCount).Result()
		if err != nil {
			return fmt.Errorf("scanning redis keys %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := s.Client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting redis keys %q: %w", pattern, err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

// TryLock attempts to acquire namespace:key via SETNX with a TTL, matching
// the housekeeper's LockService contract.
func (s *RedisLookupStore) TryLock(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error) {
	ok, err := s.Client.SetNX(ctx, lockRedisKey(namespace, key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s/%s: %w", namespace, key, err)
	}
	return ok, nil
}

// RemoveLock releases namespace:key.
func (s *RedisLookupStore) RemoveLock(ctx context.Context, namespace, key string) error {
	if err := s.Client.Del(ctx, lockRedisKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("releasing lock %s/%s: %w", namespace, key, err)
	}
	return nil
}

func lockRedisKey(namespace, key string) string {
	return "lock:" + namespace + ":" + key
}
