package memory

import (
	"context"
	"testing"
	"time"

	"testyourself-core/internal/domain"
)

func TestProfileCacheCaches(t *testing.T) {
	loader := &countingLoader{
		StaticProfiles: NewStaticProfiles(map[string]domain.PublicProfile{
			"u1": {DisplayName: "Asha"},
		}),
	}
	cache := NewProfileCache(loader, time.Minute)

	p, err := cache.PublicProfile(context.Background(), "u1")
	if err != nil || p == nil || p.DisplayName != "Asha" {
		t.Fatalf("unexpected profile %+v err=%v", p, err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.PublicProfile(context.Background(), "u1"); err != nil {
		t.Fatalf("get profile 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestProfileCacheDoesNotCacheMissingProfiles(t *testing.T) {
	loader := &countingLoader{StaticProfiles: NewStaticProfiles(nil)}
	cache := NewProfileCache(loader, time.Minute)
	ctx := context.Background()

	p, err := cache.PublicProfile(ctx, "u2")
	if err != nil || p != nil {
		t.Fatalf("expected missing profile, got %+v err=%v", p, err)
	}

	loader.Put("u2", domain.PublicProfile{DisplayName: "Ravi"})
	p, err = cache.PublicProfile(ctx, "u2")
	if err != nil || p == nil || p.DisplayName != "Ravi" {
		t.Fatalf("expected freshly created profile, got %+v err=%v", p, err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected two loads, got %d", loader.calls)
	}
}

func TestProfileCacheExpires(t *testing.T) {
	loader := &countingLoader{
		StaticProfiles: NewStaticProfiles(map[string]domain.PublicProfile{"u1": {DisplayName: "Asha"}}),
	}
	cache := NewProfileCache(loader, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.PublicProfile(context.Background(), "u1")
	now = now.Add(2 * time.Minute)
	_, _ = cache.PublicProfile(context.Background(), "u1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", loader.calls)
	}
}

type countingLoader struct {
	*StaticProfiles
	calls int
}

func (l *countingLoader) PublicProfile(ctx context.Context, uid string) (*domain.PublicProfile, error) {
	l.calls++
	return l.StaticProfiles.PublicProfile(ctx, uid)
}
