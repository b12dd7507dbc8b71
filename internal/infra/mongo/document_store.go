package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// Connect opens and pings a Mongo client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// DocumentStore maps each logical collection to a Mongo collection and
// document ids to _id. Batches run in a transaction, which needs a replica set.
type DocumentStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDocumentStore(client *mongo.Client, database string) *DocumentStore {
	return &DocumentStore{client: client, db: client.Database(database)}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (app.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return app.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return app.Document{}, unavailable("get "+collection+"/"+id, err)
	}
	return toDocument(raw), nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if err := s.set(ctx, collection, id, fields, merge); err != nil {
		return unavailable("set "+collection+"/"+id, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return unavailable("delete "+collection+"/"+id, err)
	}
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, filters []app.Filter, limit int) ([]app.Document, error) {
	filter := bson.D{}
	for _, f := range filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("query "+collection, err)
	}
	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, unavailable("query "+collection, err)
	}
	docs := make([]app.Document, 0, len(rows))
	for _, raw := range rows {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

// CommitBatch applies ops in one multi-document transaction.
func (s *DocumentStore) CommitBatch(ctx context.Context, ops []app.WriteOp) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return unavailable("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case app.OpSet:
				err = s.set(ctx, op.Collection, op.ID, op.Fields, op.Merge)
			case app.OpDelete:
				_, err = s.db.Collection(op.Collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: op.ID}})
			default:
				err = fmt.Errorf("unknown op kind %d", op.Kind)
			}
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", op.Collection, op.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return unavailable("commit batch", err)
	}
	return nil
}

func (s *DocumentStore) set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	coll := s.db.Collection(collection)
	filter := bson.D{{Key: "_id", Value: id}}
	if merge {
		_, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: withoutID(fields)}}, options.UpdateOne().SetUpsert(true))
		return err
	}
	_, err := coll.ReplaceOne(ctx, filter, withoutID(fields), options.Replace().SetUpsert(true))
	return err
}

// withoutID drops _id so a record field named _id cannot rename the document.
func withoutID(fields map[string]any) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}

func toDocument(raw bson.M) app.Document {
	id, _ := raw["_id"].(string)
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalize(v)
	}
	return app.Document{ID: id, Fields: fields}
}

// normalize turns decoded BSON containers into plain maps and slices.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case bson.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: mongo %s: %v", domain.ErrStoreUnavailable, op, err)
}
