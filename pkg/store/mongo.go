package store

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/textmosaic/pkg/errors"
)

// MongoStore keeps records in a MongoDB collection, one document per mosaic.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and ensures the collection's indexes.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}

	s := &MongoStore{client: client, coll: client.Database(database).Collection(collection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "create indexes")
	}
	return nil
}

// Save upserts r by ID, replacing any earlier record and its artifacts.
func (s *MongoStore) Save(ctx context.Context, r Record) error {
	_, err := s.coll.ReplaceOne(ctx, byID(r.ID), r, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "save mosaic %s", r.ID)
	}
	return nil
}

// Get loads one record with its artifacts, or returns ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, id string) (Record, error) {
	var r Record
	err := s.coll.FindOne(ctx, byID(id)).Decode(&r)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeNetwork, err, "load mosaic %s", id)
	}
	return r, nil
}

// List returns up to limit records, newest first, without artifacts.
// A limit of zero or less returns every record.
func (s *MongoStore) List(ctx context.Context, limit int) ([]Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, listOptions(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list mosaics")
	}
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list mosaics")
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// listOptions sorts newest first and leaves artifacts on the server.
func listOptions(limit int) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "artifacts", Value: 0}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

var _ Store = (*MongoStore)(nil)
