package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefixRestaurant = "restaurant:config:"

// CachedDirectory serves restaurant snapshots from Redis in front of a
// Repository. A nil client disables caching. Cache failures are logged and
// fall through to the repository.
type CachedDirectory struct {
	repo  Repository
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedDirectory(repo Repository, client *redis.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{repo: repo, redis: client, ttl: ttl}
}

// GetRestaurantByID returns nil, nil when the restaurant does not exist.
func (d *CachedDirectory) GetRestaurantByID(ctx context.Context, id int64) (*Restaurant, error) {
	if d.redis != nil {
		raw, err := d.redis.Get(ctx, cacheKey(id)).Bytes()
		switch {
		case err == nil:
			var r Restaurant
			if jerr := json.Unmarshal(raw, &r); jerr == nil {
				return &r, nil
			}
			log.Warn().Int64("restaurant_id", id).Msg("Discarding undecodable restaurant cache entry")
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Int64("restaurant_id", id).Msg("Restaurant cache read failed")
		}
	}

	r, err := d.repo.GetByID(ctx, id)
	if err != nil || r == nil {
		return r, err
	}

	if d.redis != nil {
		if raw, err := json.Marshal(r); err == nil {
			if err := d.redis.Set(ctx, cacheKey(id), raw, d.ttl).Err(); err != nil {
				log.Warn().Err(err).Int64("restaurant_id", id).Msg("Restaurant cache write failed")
			}
		}
	}
	return r, nil
}

// Invalidate drops the cached snapshot of a restaurant.
func (d *CachedDirectory) Invalidate(ctx context.Context, id int64) {
	if d.redis == nil {
		return
	}
	if err := d.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		log.Warn().Err(err).Int64("restaurant_id", id).Msg("Restaurant cache invalidation failed")
	}
}

func cacheKey(id int64) string {
	return keyPrefixRestaurant + strconv.FormatInt(id, 10)
}
