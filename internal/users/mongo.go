package users

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName はユーザーを保存するコレクション名です。
const CollectionName = "users"

// MongoStore は MongoDB のコレクションにユーザーを保存します。
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// Insert はユーザーを1件保存し、採番された ID を user に設定します。
func (s *MongoStore) Insert(ctx context.Context, user *User) error {
	if err := validate(user); err != nil {
		return err
	}
	res, err := s.coll.InsertOne(ctx, bson.M{
		"name":     user.Name,
		"email":    user.Email,
		"password": user.PasswordHash,
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
}

// FindByEmail はメールアドレスが一致するユーザーを返します。
func (s *MongoStore) FindByEmail(ctx context.Context, email string, limit int) ([]User, error) {
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "password": 1, "_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	found := make([]User, len(docs))
	for i, d := range docs {
		found[i] = User{
			ID:           d.ID.Hex(),
			Name:         d.Name,
			Email:        d.Email,
			PasswordHash: d.Password,
		}
	}
	return found, nil
}
