package transcript

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCloseTimeout = 5 * time.Second

// MongoStore persists records in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		collection = "conversation_turns"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (ms *MongoStore) Record(ctx context.Context, rec Record) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := ms.collection.InsertOne(ctx, bson.M{
		"turn_id":    rec.TurnID,
		"session_id": rec.SessionID,
		"utterance":  rec.Utterance,
		"state":      rec.State,
		"reason":     rec.Reason,
		"location":   rec.Location,
		"selected":   rec.Selected,
		"created_at": rec.CreatedAt,
	})
	return err
}

func (ms *MongoStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if ms == nil || ms.collection == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := ms.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Record
	for cursor.Next(ctx) {
		var doc struct {
			TurnID    string    `bson:"turn_id"`
			SessionID string    `bson:"session_id"`
			Utterance string    `bson:"utterance"`
			State     string    `bson:"state"`
			Reason    string    `bson:"reason"`
			Location  string    `bson:"location"`
			Selected  []string  `bson:"selected"`
			CreatedAt time.Time `bson:"created_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, Record(doc))
	}
	return out, cursor.Err()
}

func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
