package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"testyourself-core/internal/domain"
)

const (
	LeaderboardCollection = "leaderboard_entries"

	DefaultStandingsDepth = 10
)

// EntryID is the document id of uid's entry in bucket.
func EntryID(bucket, uid string) string {
	return bucket + "/" + uid
}

// LeaderboardService fans quiz results out into ranking buckets.
type LeaderboardService struct {
	docs     DocumentStore
	writer   *BatchWriter
	profiles ProfileLookup
	ranking  RankingIndex
	feed     *StandingsFeed
	depth    int
	now      func() time.Time
	logger   *log.Logger
	locks    userLocks
}

func NewLeaderboardService(docs DocumentStore, writer *BatchWriter, profiles ProfileLookup, ranking RankingIndex, feed *StandingsFeed, logger *log.Logger) *LeaderboardService {
	return &LeaderboardService{
		docs:     docs,
		writer:   writer,
		profiles: profiles,
		ranking:  ranking,
		feed:     feed,
		depth:    DefaultStandingsDepth,
		now:      time.Now,
		logger:   componentLogger(logger, "leaderboard"),
	}
}

// WithDepth sets how many entries live standings carry.
func (s *LeaderboardService) WithDepth(depth int) *LeaderboardService {
	if depth > 0 {
		s.depth = depth
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *LeaderboardService) WithClock(now func() time.Time) *LeaderboardService {
	s.now = now
	return s
}

// OnQuizResult max-merges the result into every derived bucket. All bucket
// entries for the result are written in one batch.
func (s *LeaderboardService) OnQuizResult(ctx context.Context, result domain.QuizResult) error {
	if result.UID == "" {
		return domain.ErrInvalidResult
	}

	profile, err := s.profiles.PublicProfile(ctx, result.UID)
	if err != nil {
		return fmt.Errorf("lookup profile %s: %w", result.UID, err)
	}
	if profile == nil {
		p := domain.PlaceholderProfile()
		profile = &p
	}

	buckets := domain.Buckets(result)
	if err := s.mergeEntries(ctx, result, *profile, buckets); err != nil {
		return err
	}

	for _, bucket := range buckets {
		if s.ranking == nil {
			break
		}
		if err := s.ranking.Record(ctx, bucket, result.UID, result.Score); err != nil {
			s.logger.Error("ranking index update failed", "bucket", bucket, "uid", result.UID, "err", err)
			continue
		}
		s.publish(ctx, bucket)
	}
	return nil
}

func (s *LeaderboardService) mergeEntries(ctx context.Context, result domain.QuizResult, profile domain.PublicProfile, buckets []string) error {
	unlock := s.locks.lock(result.UID)
	defer unlock()

	now := s.now().UTC()
	ops := make([]WriteOp, 0, len(buckets))
	for _, bucket := range buckets {
		id := EntryID(bucket, result.UID)
		var score, total int
		current, err := s.docs.Get(ctx, LeaderboardCollection, id)
		switch {
		case errors.Is(err, domain.ErrDocumentNotFound):
		case err != nil:
			return fmt.Errorf("load leaderboard entry %s: %w", id, err)
		default:
			score = intField(current.Fields, "score")
			total = intField(current.Fields, "total")
		}
		if result.Score > score {
			score = result.Score
		}
		ops = append(ops, SetOp(LeaderboardCollection, id, map[string]any{
			"bucket":      bucket,
			"uid":         result.UID,
			"displayName": profile.DisplayName,
			"avatar":      optionalStringPtr(profile.Avatar),
			"state":       optionalStringPtr(profile.State),
			"district":    optionalStringPtr(profile.District),
			"score":       score,
			"total":       total + 1,
			"updatedAt":   now,
		}, true))
	}

	if _, err := s.writer.Commit(ctx, ops); err != nil {
		return fmt.Errorf("commit leaderboard entries for %s: %w", result.UID, err)
	}
	return nil
}

// RecordResult runs OnQuizResult and logs failures instead of returning them,
// so scoring flows are never failed by leaderboard maintenance.
func (s *LeaderboardService) RecordResult(ctx context.Context, result domain.QuizResult) {
	if err := s.OnQuizResult(ctx, result); err != nil {
		s.logger.Error("leaderboard update failed", "uid", result.UID, "err", err)
	}
}

// Entry reads uid's merged entry in bucket.
func (s *LeaderboardService) Entry(ctx context.Context, bucket, uid string) (domain.LeaderboardEntry, error) {
	doc, err := s.docs.Get(ctx, LeaderboardCollection, EntryID(bucket, uid))
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}
	entry := domain.LeaderboardEntry{
		UID:         uid,
		DisplayName: stringField(doc.Fields, "displayName"),
		Avatar:      nullableString(doc.Fields, "avatar"),
		State:       nullableString(doc.Fields, "state"),
		District:    nullableString(doc.Fields, "district"),
		Score:       intField(doc.Fields, "score"),
		Total:       intField(doc.Fields, "total"),
		UpdatedAt:   timeField(doc.Fields, "updatedAt"),
	}
	return entry, nil
}

// Standings returns the top n entries of bucket.
func (s *LeaderboardService) Standings(ctx context.Context, bucket string, n int) (domain.Standings, error) {
	if s.ranking == nil {
		return domain.Standings{}, errors.New("ranking index not configured")
	}
	if n <= 0 {
		n = s.depth
	}
	entries, err := s.ranking.Top(ctx, bucket, n)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("standings %s: %w", bucket, err)
	}
	return domain.Standings{Bucket: bucket, Entries: entries, UpdatedAt: s.now().UTC()}, nil
}

// Subscribe streams standings updates for bucket.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context, bucket string) (<-chan domain.Standings, func(), error) {
	initial, err := s.Standings(ctx, bucket, s.depth)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(bucket, initial)
	return ch, cancel, nil
}

func (s *LeaderboardService) publish(ctx context.Context, bucket string) {
	if s.feed == nil || !s.feed.Watched(bucket) {
		return
	}
	standings, err := s.Standings(ctx, bucket, s.depth)
	if err != nil {
		s.logger.Warn("standings refresh failed", "bucket", bucket, "err", err)
		return
	}
	s.feed.Publish(standings)
}

// userLocks serializes read-merge-write cycles per user within this process.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(uid string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[uid]
	if !ok {
		ul = &userLock{}
		l.locks[uid] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, uid)
		}
		l.mu.Unlock()
	}
}
