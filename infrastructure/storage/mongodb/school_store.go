package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/nosql/domain/school"
)

// Collection is the subset of *mongo.Collection used by SchoolStore.
type Collection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateMany(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// SchoolStore reads and writes school documents.
type SchoolStore struct {
	collection   Collection
	queryTimeout time.Duration
}

// NewSchoolStore creates a store over the client's configured collection.
func NewSchoolStore(client *Client) *SchoolStore {
	return NewSchoolStoreFromCollection(client.Collection(client.config.Collection), client.config.QueryTimeout)
}

// NewSchoolStoreFromCollection creates a store over an existing collection.
func NewSchoolStoreFromCollection(collection Collection, queryTimeout time.Duration) *SchoolStore {
	if queryTimeout <= 0 {
		queryTimeout = DefaultConfig().QueryTimeout
	}
	return &SchoolStore{
		collection:   collection,
		queryTimeout: queryTimeout,
	}
}

// InsertSchool inserts a document built from fields and returns its _id.
func (s *SchoolStore) InsertSchool(ctx context.Context, fields map[string]any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.InsertOne(ctx, insertDocument(fields))
	if err != nil {
		return nil, err
	}
	return result.InsertedID, nil
}

// UpdateTopics sets topics on every school named name and returns the
// number of matched documents.
func (s *SchoolStore) UpdateTopics(ctx context.Context, name string, topics []string) (int64, error) {
	if name == "" {
		return 0, school.ErrInvalidName
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.UpdateMany(ctx, nameFilter(name), setTopics(topics))
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

// List returns every school in the collection.
func (s *SchoolStore) List(ctx context.Context) ([]school.School, error) {
	return s.find(ctx, bson.M{})
}

// SchoolsByTopic returns the schools approaching topic.
func (s *SchoolStore) SchoolsByTopic(ctx context.Context, topic string) ([]school.School, error) {
	return s.find(ctx, bson.M{"topics": topic})
}

func (s *SchoolStore) find(ctx context.Context, filter bson.M) ([]school.School, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	schools := []school.School{}
	if err := cursor.All(ctx, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

// insertDocument copies fields into a BSON document. A nil map inserts an
// empty document, which still receives a generated _id.
func insertDocument(fields map[string]any) bson.M {
	doc := make(bson.M, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

func nameFilter(name string) bson.M {
	return bson.M{"name": name}
}

func setTopics(topics []string) bson.M {
	if topics == nil {
		topics = []string{}
	}
	return bson.M{"$set": bson.M{"topics": topics}}
}

// IsDuplicateKey reports whether err is a duplicate _id insert.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
