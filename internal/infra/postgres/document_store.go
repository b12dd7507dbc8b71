package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// OpenDB connects bun to Postgres.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Collection string         `bun:"collection,pk"`
	ID         string         `bun:"id,pk"`
	Data       map[string]any `bun:"data,type:jsonb"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,default:current_timestamp"`
}

const (
	upsertMergeSQL = `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`
	upsertReplaceSQL = `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	deleteSQL = `DELETE FROM documents WHERE collection = ? AND id = ?`
)

// DocumentStore keeps every collection in one JSONB table keyed by (collection, id).
// Merge writes use the jsonb || operator, which merges top-level keys.
type DocumentStore struct {
	db *bun.DB
}

func NewDocumentStore(db *bun.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (app.Document, error) {
	row := new(documentRow)
	err := s.db.NewSelect().
		Model(row).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return app.Document{}, unavailable("get "+collection+"/"+id, err)
	}
	return app.Document{ID: row.ID, Fields: row.Data}, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := execSet(ctx, s.db, collection, id, fields, merge); err != nil {
		return unavailable("set "+collection+"/"+id, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteSQL, collection, id); err != nil {
		return unavailable("delete "+collection+"/"+id, err)
	}
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, filters []app.Filter, limit int) ([]app.Document, error) {
	containment := make(map[string]any, len(filters))
	for _, f := range filters {
		containment[f.Field] = f.Value
	}
	raw, err := json.Marshal(containment)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	var rows []documentRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("collection = ?", collection).
		Where("data @> ?::jsonb", string(raw)).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable("query "+collection, err)
	}

	docs := make([]app.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, app.Document{ID: row.ID, Fields: row.Data})
	}
	return docs, nil
}

// CommitBatch applies ops inside one transaction.
func (s *DocumentStore) CommitBatch(ctx context.Context, ops []app.WriteOp) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case app.OpSet:
				err = execSet(ctx, tx, op.Collection, op.ID, op.Fields, op.Merge)
			case app.OpDelete:
				_, err = tx.ExecContext(ctx, deleteSQL, op.Collection, op.ID)
			default:
				err = fmt.Errorf("unknown op kind %d", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("commit batch", err)
	}
	return nil
}

func execSet(ctx context.Context, conn bun.IConn, collection, id string, fields map[string]any, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	query := upsertReplaceSQL
	if merge {
		query = upsertMergeSQL
	}
	_, err = conn.ExecContext(ctx, query, collection, id, string(raw))
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: postgres %s: %v", domain.ErrStoreUnavailable, op, err)
}
