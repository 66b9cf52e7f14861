package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// defaultKeyPrefix namespaces all cache keys in Redis to avoid collisions.
	defaultKeyPrefix = "bettersubs:sessions:"

	redisOpTimeout = 2 * time.Second
)

func init() {
	Register("redis", newRedisCache)
}

// redisCache implements the Cache interface using Redis/Valkey with
// application-level LRU semantics, letting multiple instances share one
// session space behind the same get/set/remove contract.
//
// Requires Redis 7.4+ or Valkey 8+ for per-field hash TTL (HPEXPIRE).
//
// Data is stored in two Redis keys regardless of the number of entries:
//
//   - {prefix}data — a Hash holding all cached values (field = user key).
//     Per-field TTL via HPEXPIRE removes expired fields server-side.
//   - {prefix}lru  — a Sorted Set tracking LRU order (score = last-access µs).
//
// Lua scripts keep Get (touch) and Set (write + evict) each atomic. Stale
// LRU members whose hash field already expired are lazily cleaned during
// eviction.
type redisCache struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
	onEvict EvictCallback
	logger  Logger
	dataKey string
	lruKey  string
}

// getAndTouch retrieves a value from the hash and refreshes the LRU score
// when the entry exists.
//
// KEYS[1] = data hash, KEYS[2] = LRU sorted set
// ARGV[1] = current µs timestamp, ARGV[2] = member (user key)
var getAndTouch = redis.NewScript(`
local val = redis.call('HGET', KEYS[1], ARGV[2])
if val then
    redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
end
return val
`)

// setAndEvict stores a value, sets per-field TTL, updates LRU tracking, and
// evicts the least-recently-used entries when the cache exceeds maxSize.
//
// KEYS[1] = data hash, KEYS[2] = LRU sorted set
// ARGV[1] = value, ARGV[2] = current µs timestamp, ARGV[3] = member,
// ARGV[4] = maxSize, ARGV[5] = TTL in milliseconds
//
// Returns the list of evicted member names (may be empty).
var setAndEvict = redis.NewScript(`
local member  = ARGV[3]
local maxSize = tonumber(ARGV[4])
local ttlMs   = tonumber(ARGV[5])

redis.call('HSET', KEYS[1], member, ARGV[1])
redis.call('HPEXPIRE', KEYS[1], ttlMs, 'FIELDS', 1, member)
redis.call('ZADD', KEYS[2], ARGV[2], member)

local size = redis.call('ZCARD', KEYS[2])
local evicted = {}
while size > maxSize do
    local oldest = redis.call('ZPOPMIN', KEYS[2], 1)
    if #oldest == 0 then break end
    local oldMember = oldest[1]
    redis.call('HDEL', KEYS[1], oldMember)
    table.insert(evicted, oldMember)
    size = size - 1
end

return evicted
`)

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Verify connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &redisCache{
		client:  client,
		ttl:     cfg.TTL,
		maxSize: cfg.Size,
		onEvict: cfg.OnEvict,
		logger:  cfg.Logger,
		dataKey: defaultKeyPrefix + "data",
		lruKey:  defaultKeyPrefix + "lru",
	}, nil
}

func (r *redisCache) keys() []string {
	return []string{r.dataKey, r.lruKey}
}

func (r *redisCache) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, err)
	}
}

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	result, err := getAndTouch.Run(ctx, r.client, r.keys(), now, key).Text()
	if err != nil {
		// redis.Nil means the key doesn't exist, a normal cache miss.
		if !errors.Is(err, redis.Nil) {
			r.logError("redis cache Get failed", err)
		}
		return nil, false
	}
	return []byte(result), true
}

func (r *redisCache) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	evicted, err := setAndEvict.Run(ctx, r.client, r.keys(),
		value, now, key, strconv.Itoa(r.maxSize), strconv.FormatInt(r.ttl.Milliseconds(), 10),
	).StringSlice()
	if err != nil {
		r.logError("redis cache Set failed", err)
		return
	}

	if r.onEvict != nil {
		// Value is nil: fetching evicted values back from Redis would cost
		// extra roundtrips, and callers only need the key for bookkeeping.
		for _, evictedKey := range evicted {
			r.onEvict(evictedKey, nil)
		}
	}
}

func (r *redisCache) Contains(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ok, err := r.client.HExists(ctx, r.dataKey, key).Result()
	if err != nil {
		r.logError("redis cache Contains failed", err)
	}
	return err == nil && ok
}

func (r *redisCache) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.dataKey, key)
	pipe.ZRem(ctx, r.lruKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logError("redis cache Remove failed", err)
	}
}

func (r *redisCache) Purge() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.dataKey, r.lruKey).Err(); err != nil {
		r.logError("redis cache Purge failed", err)
	}
}

func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := r.client.HLen(ctx, r.dataKey).Result()
	if err != nil {
		r.logError("redis cache Len failed", err)
		return 0
	}
	return int(n)
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
