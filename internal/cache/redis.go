package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const revisionKeyPrefix = "revisions:"

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every cache
// call becomes a miss or a no-op.
func Init(addr, password string, db int) error {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// SetClient installs c as the package client. Passing nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

func GetClient() *redis.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// RevisionListKey is the key holding the revision list of one reference.
// The reference name is length prefixed so names containing ':' cannot
// collide.
func RevisionListKey(reference, referenceID string) string {
	return revisionKeyPrefix + "list:" + revisionKeySuffix(reference, referenceID)
}

// RevisionGenerationKey holds a counter bumped every time the revisions of
// one reference change. Cached lists remember the generation they were read
// under and are ignored once it moves on.
func RevisionGenerationKey(reference, referenceID string) string {
	return revisionKeyPrefix + "gen:" + revisionKeySuffix(reference, referenceID)
}

func revisionKeySuffix(reference, referenceID string) string {
	return strconv.Itoa(len(reference)) + ":" + reference + ":" + referenceID
}

// RevisionGeneration returns the current generation of a reference. ok is
// false when Redis is unavailable.
func RevisionGeneration(ctx context.Context, reference, referenceID string) (int64, bool) {
	if client == nil {
		return 0, false
	}
	gen, err := client.Get(ctx, RevisionGenerationKey(reference, referenceID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

// GetRevisionList returns the cached list of a reference, but only when it
// was stored under the current generation.
func GetRevisionList(ctx context.Context, reference, referenceID string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	vals, err := client.MGet(ctx,
		RevisionListKey(reference, referenceID),
		RevisionGenerationKey(reference, referenceID),
	).Result()
	if err != nil || len(vals) != 2 {
		return nil, false
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, false
	}
	var current int64
	if genStr, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(genStr, 10, 64); err != nil {
			return nil, false
		}
	}

	var env versionedList
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Generation != current {
		return nil, false
	}
	return env.Data, true
}

// SetRevisionList stores data as read under generation gen.
func SetRevisionList(ctx context.Context, reference, referenceID string, gen int64, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	payload, err := json.Marshal(versionedList{Generation: gen, Data: data})
	if err != nil {
		return
	}
	client.Set(ctx, RevisionListKey(reference, referenceID), payload, ttl)
}

// InvalidateRevisionCaches moves the generation of one reference forward
// and drops its cached list.
// Called when: Propose, and on every revision_changes notification
func InvalidateRevisionCaches(ctx context.Context, reference, referenceID string) error {
	if client == nil {
		return nil
	}
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, RevisionGenerationKey(reference, referenceID))
		pipe.Del(ctx, RevisionListKey(reference, referenceID))
		return nil
	})
	return err
}

type versionedList struct {
	Generation int64           `json:"gen"`
	Data       json.RawMessage `json:"data"`
}

// IsHealthy returns true if Redis connection is working
func IsHealthy(ctx context.Context) bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// Enabled reports whether a client is installed.
func Enabled() bool {
	return client != nil
}
