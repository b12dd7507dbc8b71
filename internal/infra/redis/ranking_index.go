package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"testyourself-core/internal/domain"
)

// RankingIndex mirrors bucket scores into Redis.
// Scores are stored as: ZADD GT leaderboard:{bucket}:scores {score} {uid}
// Attempts are stored as: HINCRBY leaderboard:{bucket}:totals {uid} 1
// Both are atomic on the server, so concurrent results never lose an update.
type RankingIndex struct {
	client *redis.Client
}

func NewRankingIndex(client *redis.Client) *RankingIndex {
	return &RankingIndex{client: client}
}

func (r *RankingIndex) Record(ctx context.Context, bucket, uid string, score int) error {
	scoreKey := r.scoresKey(bucket)
	totalKey := r.totalsKey(bucket)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddArgs(ctx, scoreKey, redis.ZAddArgs{
			GT:      true,
			Members: []redis.Z{{Score: float64(score), Member: uid}},
		})
		pipe.HIncrBy(ctx, totalKey, uid, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record %s in %s: %w", uid, bucket, err)
	}
	return nil
}

func (r *RankingIndex) Top(ctx context.Context, bucket string, n int) ([]domain.RankedEntry, error) {
	if n <= 0 {
		n = 10
	}
	members, err := r.client.ZRevRangeWithScores(ctx, r.scoresKey(bucket), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", bucket, err)
	}
	if len(members) == 0 {
		return []domain.RankedEntry{}, nil
	}

	uids := make([]string, len(members))
	for i, z := range members {
		uids[i], _ = z.Member.(string)
	}
	totals, err := r.client.HMGet(ctx, r.totalsKey(bucket), uids...).Result()
	if err != nil {
		return nil, fmt.Errorf("totals %s: %w", bucket, err)
	}

	entries := make([]domain.RankedEntry, len(members))
	for i, z := range members {
		entries[i] = domain.RankedEntry{
			Rank:  i + 1,
			UID:   uids[i],
			Score: int(z.Score),
			Total: parseTotal(totals[i]),
		}
	}
	return entries, nil
}

func (r *RankingIndex) scoresKey(bucket string) string {
	return "leaderboard:" + bucket + ":scores"
}

func (r *RankingIndex) totalsKey(bucket string) string {
	return "leaderboard:" + bucket + ":totals"
}

func parseTotal(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
