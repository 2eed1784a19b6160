package repositories

import (
	"context"

	"github.com/anonto42/thunderlink/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike creates a new like in PostgreSQL. The composite primary key turns a
// second like of the same post into ErrDuplicate.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return translatePgError(r.db.WithContext(ctx).Omit(clause.Associations).Create(like).Error)
}

// DeleteLike deletes a like from PostgreSQL
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, postID, userID string) error {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return translatePgError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, translatePgError(err)
	}
	return count > 0, nil
}

// GetLikesByPostID retrieves all likes for a specific post from PostgreSQL
func (r *PostgresLikeRepository) GetLikesByPostID(ctx context.Context, postID string) ([]models.Like, error) {
	likes := make([]models.Like, 0)
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("user_id ASC").
		Find(&likes).Error
	if err != nil {
		return nil, translatePgError(err)
	}
	return likes, nil
}

// DeleteLikesByPostID deletes every like of a post
func (r *PostgresLikeRepository) DeleteLikesByPostID(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{})
	if res.Error != nil {
		return 0, translatePgError(res.Error)
	}
	return res.RowsAffected, nil
}

// MongoLikeRepository implements LikeRepository for MongoDB. Uniqueness relies on
// the {user_id, post_id} index created by MongoStore.EnsureIndexes.
type MongoLikeRepository struct {
	collection *mongo.Collection
}

// NewMongoLikeRepository creates a new MongoLikeRepository
func NewMongoLikeRepository(db *mongo.Database) *MongoLikeRepository {
	return &MongoLikeRepository{collection: db.Collection("likes")}
}

func (r *MongoLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	_, err := r.collection.InsertOne(ctx, like)
	return translateMongoError(err)
}

func (r *MongoLikeRepository) DeleteLike(ctx context.Context, postID, userID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"post_id": postID, "user_id": userID})
	if err != nil {
		return translateMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoLikeRepository) HasUserLikedPost(ctx context.Context, postID, userID string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"post_id": postID, "user_id": userID})
	if err != nil {
		return false, translateMongoError(err)
	}
	return count > 0, nil
}

func (r *MongoLikeRepository) GetLikesByPostID(ctx context.Context, postID string) ([]models.Like, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID}, findOptions)
	if err != nil {
		return nil, translateMongoError(err)
	}
	defer cursor.Close(ctx)

	likes := make([]models.Like, 0)
	if err = cursor.All(ctx, &likes); err != nil {
		return nil, translateMongoError(err)
	}
	return likes, nil
}

func (r *MongoLikeRepository) DeleteLikesByPostID(ctx context.Context, postID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, translateMongoError(err)
	}
	return res.DeletedCount, nil
}
