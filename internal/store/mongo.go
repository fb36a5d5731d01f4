package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oznkts/E-menum-V8-sub001/internal/domain"
)

// cartDocument wraps the cart snapshot as a JSON blob. Amounts are decimals
// with custom JSON encoding, so the snapshot is stored opaque instead of as
// nested bson.
type cartDocument struct {
	CartKey   string    `bson:"cart_key"`
	Payload   []byte    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore is the durable cart store, one document per cart key.
type MongoStore struct {
	collection *mongo.Collection
}

// ConnectMongo opens a client and pings it.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client.Database(dbName), nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("carts")}
}

func (s *MongoStore) Save(ctx context.Context, key string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	now := time.Now()
	filter := bson.M{"cart_key": key}
	update := bson.M{
		"$set":         bson.M{"payload": payload, "updated_at": now},
		"$setOnInsert": bson.M{"cart_key": key, "created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, key string) (*domain.Cart, error) {
	var doc cartDocument
	err := s.collection.FindOne(ctx, bson.M{"cart_key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(doc.Payload, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"cart_key": key}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
