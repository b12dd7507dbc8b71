package app

import (
	"sync"

	"testyourself-core/internal/domain"
)

// StandingsFeed fans standings snapshots out to per-bucket subscribers.
type StandingsFeed struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Standings]struct{}
}

func NewStandingsFeed() *StandingsFeed {
	return &StandingsFeed{
		subscribers: make(map[string]map[chan domain.Standings]struct{}),
	}
}

// Subscribe registers a channel for bucket and primes it with initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *StandingsFeed) Subscribe(bucket string, initial domain.Standings) (<-chan domain.Standings, func()) {
	ch := make(chan domain.Standings, 8)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.subscribers[bucket]
	if !ok {
		subs = make(map[chan domain.Standings]struct{})
		f.subscribers[bucket] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[bucket]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, bucket)
		}
	}
	return ch, cancel
}

// Watched reports whether anyone is subscribed to bucket.
func (f *StandingsFeed) Watched(bucket string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[bucket]) > 0
}

// Publish delivers standings to the bucket's subscribers without blocking.
// A slow subscriber loses its oldest pending snapshot.
func (f *StandingsFeed) Publish(standings domain.Standings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[standings.Bucket] {
		select {
		case ch <- standings:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- standings
		}
	}
}
