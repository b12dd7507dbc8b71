package app

import (
	"context"

	"github.com/charmbracelet/log"
	"testyourself-core/internal/domain"
)

// OpKind selects what a WriteOp does to its document.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Document is a stored document with its id.
type Document struct {
	ID     string
	Fields map[string]any
}

// WriteOp is a set (optionally merging top-level fields) or a delete against one document.
type WriteOp struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     map[string]any
	Merge      bool
}

// SetOp builds a set operation.
func SetOp(collection, id string, fields map[string]any, merge bool) WriteOp {
	return WriteOp{Kind: OpSet, Collection: collection, ID: id, Fields: fields, Merge: merge}
}

// DeleteOp builds a delete operation.
func DeleteOp(collection, id string) WriteOp {
	return WriteOp{Kind: OpDelete, Collection: collection, ID: id}
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// BatchCommitter applies a group of operations atomically.
type BatchCommitter interface {
	CommitBatch(ctx context.Context, ops []WriteOp) error
}

// DocumentStore abstracts the keyed document database (memory, Postgres, Mongo).
// Get returns domain.ErrDocumentNotFound on a miss; infrastructure failures wrap
// domain.ErrStoreUnavailable.
type DocumentStore interface {
	BatchCommitter
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)
}

// ProfileLookup resolves a user's public profile snapshot. A missing profile is (nil, nil).
type ProfileLookup interface {
	PublicProfile(ctx context.Context, uid string) (*domain.PublicProfile, error)
}

// RankingIndex mirrors bucket scores for ordered reads.
type RankingIndex interface {
	// Record raises uid's score in bucket to at least score and counts one attempt.
	Record(ctx context.Context, bucket, uid string, score int) error
	Top(ctx context.Context, bucket string, n int) ([]domain.RankedEntry, error)
}

// Authorizer checks the role carried by a caller token.
type Authorizer interface {
	IsAdmin(ctx context.Context, token string) (bool, error)
	// HasRole reports whether token is valid and carries any of roles.
	HasRole(ctx context.Context, token string, roles ...string) (bool, error)
}

func componentLogger(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = log.Default()
	}
	return logger.With("component", name)
}
