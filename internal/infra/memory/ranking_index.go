package memory

import (
	"context"
	"sort"
	"sync"

	"testyourself-core/internal/domain"
)

// RankingIndex is an in-process app.RankingIndex.
type RankingIndex struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*domain.RankedEntry
}

func NewRankingIndex() *RankingIndex {
	return &RankingIndex{buckets: make(map[string]map[string]*domain.RankedEntry)}
}

func (r *RankingIndex) Record(_ context.Context, bucket, uid string, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.buckets[bucket]
	if !ok {
		entries = make(map[string]*domain.RankedEntry)
		r.buckets[bucket] = entries
	}
	entry, ok := entries[uid]
	if !ok {
		entry = &domain.RankedEntry{UID: uid, Score: score}
		entries[uid] = entry
	}
	if score > entry.Score {
		entry.Score = score
	}
	entry.Total++
	return nil
}

// Top orders by score desc, then uid.
func (r *RankingIndex) Top(_ context.Context, bucket string, n int) ([]domain.RankedEntry, error) {
	r.mu.RLock()
	entries := make([]domain.RankedEntry, 0, len(r.buckets[bucket]))
	for _, e := range r.buckets[bucket] {
		entries = append(entries, *e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UID < entries[j].UID
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
