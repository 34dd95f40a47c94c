package kv

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoItem struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoBackend implements Backend using one document per key.
type MongoBackend struct {
	col *mongo.Collection
}

func NewMongoBackend(col *mongo.Collection) *MongoBackend {
	return &MongoBackend{col: col}
}

func (m *MongoBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	var it mongoItem
	if err := m.col.FindOne(ctx, bson.M{"_id": key}).Decode(&it); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	return it.Value, true, nil
}

func (m *MongoBackend) SetItem(ctx context.Context, key, value string) error {
	it := mongoItem{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": key}, it, opts)
	return err
}

func (m *MongoBackend) RemoveItem(ctx context.Context, key string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *MongoBackend) Keys(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var it struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&it); err != nil {
			return nil, err
		}
		out = append(out, it.Key)
	}
	return out, cur.Err()
}
