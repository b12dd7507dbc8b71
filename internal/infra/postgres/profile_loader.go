package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"testyourself-core/internal/domain"
)

// ProfileLoader reads public profile snapshots from Postgres.
type ProfileLoader struct {
	pool *pgxpool.Pool
}

func NewProfileLoader(pool *pgxpool.Pool) *ProfileLoader {
	return &ProfileLoader{pool: pool}
}

func (l *ProfileLoader) PublicProfile(ctx context.Context, uid string) (*domain.PublicProfile, error) {
	var p domain.PublicProfile
	err := l.pool.QueryRow(ctx,
		`SELECT display_name, avatar, state, district FROM public_profiles WHERE uid=$1`, uid,
	).Scan(&p.DisplayName, &p.Avatar, &p.State, &p.District)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load profile: %v", domain.ErrStoreUnavailable, err)
	}
	return &p, nil
}
