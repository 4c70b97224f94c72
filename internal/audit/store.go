package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionName はイベントを保存するコレクション名です。
const CollectionName = "auth_events"

// MongoSink はイベントを MongoDB に保存します。
type MongoSink struct {
	coll *mongo.Collection
}

// NewMongoSink は MongoSink を作成します。
func NewMongoSink(db *mongo.Database) *MongoSink {
	return &MongoSink{coll: db.Collection(CollectionName)}
}

// Save はイベントを1件保存します。同じ ID のイベントは重複保存しません。
func (s *MongoSink) Save(ctx context.Context, event Event) error {
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
