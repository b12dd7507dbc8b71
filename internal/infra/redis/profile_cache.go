package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// ProfileCache caches public profiles in Redis (hash per user) and falls back
// to a loader on cache miss.
// Profiles are stored as: HSET profile:{uid} displayName .. [avatar ..] [state ..] [district ..]
type ProfileCache struct {
	client *redis.Client
	loader app.ProfileLookup
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewProfileCache(client *redis.Client, loader app.ProfileLookup, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ProfileCache) PublicProfile(ctx context.Context, uid string) (*domain.PublicProfile, error) {
	key := c.key(uid)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return profileFromHash(fields), nil
	}

	result, err, _ := c.sf.Do(uid, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return profileFromHash(fields), nil
		}

		p, err := c.loader.PublicProfile(ctx, uid)
		if err != nil || p == nil {
			return p, err
		}

		values := map[string]interface{}{"displayName": p.DisplayName}
		if p.Avatar != nil {
			values["avatar"] = *p.Avatar
		}
		if p.State != nil {
			values["state"] = *p.State
		}
		if p.District != nil {
			values["district"] = *p.District
		}
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, values)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.PublicProfile), nil
}

func (c *ProfileCache) key(uid string) string {
	return "profile:" + uid
}

func profileFromHash(fields map[string]string) *domain.PublicProfile {
	p := &domain.PublicProfile{DisplayName: fields["displayName"]}
	if v, ok := fields["avatar"]; ok {
		p.Avatar = &v
	}
	if v, ok := fields["state"]; ok {
		p.State = &v
	}
	if v, ok := fields["district"]; ok {
		p.District = &v
	}
	return p
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
