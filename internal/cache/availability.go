// Package cache keeps per-showtime seat availability in Redis.  A nil
// client or a disabled config turns every method into a no-op, so callers
// never need to check whether Redis is present.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Availability caches the seat map of each showtime under
// "<prefix>:showtime:<id>".  A generation counter under "<key>:gen" is bumped
// by every invalidation, and a write only lands if the generation it read
// alongside the miss is still current.
type Availability struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// generationTTL bounds how long an idle generation counter is kept.
const generationTTL = 24 * time.Hour

// setIfCurrent writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// invalidate drops each KEYS[i] and bumps the generation in KEYS[i+1].
var invalidate = redis.NewScript(`
for i = 1, #KEYS, 2 do
  redis.call('DEL', KEYS[i])
  redis.call('INCR', KEYS[i + 1])
  redis.call('PEXPIRE', KEYS[i + 1], ARGV[1])
end
return #KEYS / 2
`)

// NewAvailability builds the cache.  It returns a usable no-op cache when
// caching is disabled or rdb is nil.
func NewAvailability(cfg config.CacheConfig, rdb *redis.Client) *Availability {
	if !cfg.Enabled {
		rdb = nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "avail"
	}
	return &Availability{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (a *Availability) key(showtimeID uint64) string {
	return a.prefix + ":showtime:" + strconv.FormatUint(showtimeID, 10)
}

func genKey(key string) string { return key + ":gen" }

// Get returns the cached seat map and the generation it was read at.  On a
// miss the generation is what Set must be given.  A generation of -1 means
// the result must not be cached.
func (a *Availability) Get(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, int64, bool) {
	if a == nil || a.rdb == nil {
		return nil, -1, false
	}
	key := a.key(showtimeID)
	vals, err := a.rdb.MGet(ctx, key, genKey(key)).Result()
	if err != nil || len(vals) != 2 {
		log.Printf("cache: get showtime=%d failed: %v", showtimeID, err)
		return nil, -1, false
	}
	gen := int64(0)
	if v, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(v, 10, 64); err != nil {
			log.Printf("cache: bad generation showtime=%d value=%q", showtimeID, v)
			return nil, -1, false
		}
	}
	payload, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var seats []model.SeatAvailability
	if err := json.Unmarshal([]byte(payload), &seats); err != nil {
		log.Printf("cache: decode showtime=%d failed: %v", showtimeID, err)
		return nil, gen, false
	}
	return seats, gen, true
}

// Set stores the seat map with the configured TTL unless the showtime was
// invalidated after generation gen was read.
func (a *Availability) Set(ctx context.Context, showtimeID uint64, gen int64, seats []model.SeatAvailability) {
	if a == nil || a.rdb == nil || gen < 0 {
		return
	}
	payload, err := json.Marshal(seats)
	if err != nil {
		return
	}
	key := a.key(showtimeID)
	err = setIfCurrent.Run(ctx, a.rdb, []string{key, genKey(key)},
		strconv.FormatInt(gen, 10), string(payload), a.ttl.Milliseconds()).Err()
	if err != nil {
		log.Printf("cache: set showtime=%d failed: %v", showtimeID, err)
	}
}

// Invalidate drops the cached seat maps of the given showtimes and moves
// their generations forward.
func (a *Availability) Invalidate(ctx context.Context, showtimeIDs ...uint64) {
	if a == nil || a.rdb == nil || len(showtimeIDs) == 0 {
		return
	}
	keys := make([]string, 0, 2*len(showtimeIDs))
	for _, id := range showtimeIDs {
		k := a.key(id)
		keys = append(keys, k, genKey(k))
	}
	if err := invalidate.Run(ctx, a.rdb, keys, generationTTL.Milliseconds()).Err(); err != nil {
		log.Printf("cache: invalidate %v failed: %v", showtimeIDs, err)
	}
}
