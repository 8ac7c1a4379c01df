package repository

import (
	"context"

	"github.com/rankboard/rankboard/internal/chat"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements the transcript store on a MongoDB collection. Messages
// are addressed by their "id" field, not by document identity; when
// duplicates exist only the oldest match (timestamp asc) is affected.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// indexes for id lookups and ordered history reads
	col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Append(ctx context.Context, msg *chat.Message) error {
	_, err := m.col.InsertOne(ctx, msg)
	return err
}

func (m *MongoRepo) UpdateText(ctx context.Context, id chat.MessageID, text string) (*chat.Message, error) {
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetReturnDocument(options.After)
	var updated chat.Message
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"text": text}},
		opts,
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id chat.MessageID) error {
	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	err := m.col.FindOneAndDelete(ctx, bson.M{"id": id}, opts).Err()
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func (m *MongoRepo) ListOrdered(ctx context.Context) ([]chat.Message, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []chat.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear drains the collection in batches of at most batchSize documents,
// looping until no documents remain, so arbitrarily large transcripts never
// hit a per-operation size limit.
func (m *MongoRepo) Clear(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	var deleted int64
	for {
		opts := options.Find().
			SetLimit(int64(batchSize)).
			SetProjection(bson.M{"_id": 1})
		cur, err := m.col.Find(ctx, bson.M{}, opts)
		if err != nil {
			return deleted, err
		}
		var page []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.All(ctx, &page); err != nil {
			return deleted, err
		}
		if len(page) == 0 {
			return deleted, nil
		}
		ids := make(bson.A, 0, len(page))
		for _, p := range page {
			ids = append(ids, p.ID)
		}
		res, err := m.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return deleted, err
		}
		deleted += res.DeletedCount
	}
}

func (m *MongoRepo) RepaintColor(ctx context.Context, user, color string) (int64, error) {
	res, err := m.col.UpdateMany(ctx,
		bson.M{"user": user},
		bson.M{"$set": bson.M{"color": color}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
