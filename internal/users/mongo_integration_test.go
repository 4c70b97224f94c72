//go:build integration

package users

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return NewMongoStore(client.Database("members_test"))
}

func TestMongoStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := setupMongoStore(t)

	u := &User{Name: "alice", Email: "a@x.com", PasswordHash: "$2a$04$hash"}
	if err := store.Insert(ctx, u); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected ObjectID to be assigned")
	}

	found, err := store.FindByEmail(ctx, "a@x.com", 2)
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 match, got %d", len(found))
	}
	if found[0].ID != u.ID || found[0].PasswordHash != u.PasswordHash || found[0].Name != "alice" {
		t.Fatalf("unexpected user: %#v", found[0])
	}
}

func TestMongoStoreDuplicateEmailsAreKept(t *testing.T) {
	ctx := context.Background()
	store := setupMongoStore(t)

	for i := 0; i < 3; i++ {
		if err := store.Insert(ctx, &User{Name: "bob", Email: "b@x.com", PasswordHash: "h"}); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	found, err := store.FindByEmail(ctx, "b@x.com", 2)
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("limit should cap results at 2, got %d", len(found))
	}
}
