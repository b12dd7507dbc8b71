package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// ProfileCache caches public profiles with TTL to avoid repeated lookups.
// Missing profiles are not cached so a newly created profile shows up on the next result.
type ProfileCache struct {
	loader app.ProfileLookup
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.PublicProfile
	expiresAt time.Time
}

func NewProfileCache(loader app.ProfileLookup, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedProfile),
	}
}

func (c *ProfileCache) PublicProfile(ctx context.Context, uid string) (*domain.PublicProfile, error) {
	if p, ok := c.cached(uid); ok {
		return p, nil
	}

	result, err, _ := c.sf.Do(uid, func() (interface{}, error) {
		if p, ok := c.cached(uid); ok {
			return p, nil
		}
		p, err := c.loader.PublicProfile(ctx, uid)
		if err != nil || p == nil {
			return p, err
		}

		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.cache[uid] = cachedProfile{profile: *p, expiresAt: expiresAt}
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.PublicProfile), nil
}

func (c *ProfileCache) cached(uid string) (*domain.PublicProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[uid]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	p := entry.profile
	return &p, true
}

func (c *ProfileCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticProfiles is a lookup backed by an in-memory map (useful for tests/demos).
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]domain.PublicProfile
}

func NewStaticProfiles(profiles map[string]domain.PublicProfile) *StaticProfiles {
	if profiles == nil {
		profiles = make(map[string]domain.PublicProfile)
	}
	return &StaticProfiles{profiles: profiles}
}

// Put adds or replaces a profile.
func (s *StaticProfiles) Put(uid string, p domain.PublicProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[uid] = p
}

func (s *StaticProfiles) PublicProfile(_ context.Context, uid string) (*domain.PublicProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[uid]; ok {
		return &p, nil
	}
	return nil, nil
}
