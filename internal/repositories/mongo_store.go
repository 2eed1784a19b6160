package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the MongoDB backed Store. Transactions need a replica set.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	posts    *MongoPostRepository
	comments *MongoCommentRepository
	likes    *MongoLikeRepository
	users    *MongoUserRepository
}

// NewMongoStore creates a Store over the given database
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:   client,
		db:       db,
		posts:    NewMongoPostRepository(db),
		comments: NewMongoCommentRepository(db),
		likes:    NewMongoLikeRepository(db),
		users:    NewMongoUserRepository(db),
	}
}

// EnsureIndexes creates the indexes the repositories rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"posts": {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
		},
		"comments": {
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		"likes": {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Posts() PostRepository       { return s.posts }
func (s *MongoStore) Comments() CommentRepository { return s.comments }
func (s *MongoStore) Likes() LikeRepository       { return s.likes }
func (s *MongoStore) Users() UserRepository       { return s.users }

// Transaction runs fn in a session transaction. The driver may call fn more than
// once on transient errors.
func (s *MongoStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
