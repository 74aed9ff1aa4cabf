package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adilet-k/bazarly/internal/listing/domain"
)

const usersCollection = "users"

// UserRepository reads the user store maintained by the account service.
// Only the admin flag is consumed here.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

func (r *UserRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var doc struct {
		IsAdmin bool `bson:"is_admin"`
	}
	opts := options.FindOne().SetProjection(bson.M{"is_admin": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	if err != nil {
		return false, fmt.Errorf("find user %s: %w", userID, err)
	}
	return doc.IsAdmin, nil
}
