package repository

import (
	"context"

	"github.com/rankboard/rankboard/internal/board"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	docListA   = "listA"
	docListB   = "listB"
	docHeaders = "headers"
)

type listDoc struct {
	ID    string   `bson:"_id"`
	Items []string `bson:"items"`
}

type headersDoc struct {
	ID      string `bson:"_id"`
	HeaderA string `bson:"headerA"`
	HeaderB string `bson:"headerB"`
}

// MongoRepo persists the board in two collections: "rankingLists" holds one
// document per list keyed listA/listB, "settings" holds the headers record.
type MongoRepo struct {
	lists    *mongo.Collection
	settings *mongo.Collection
}

func NewMongoRepo(lists, settings *mongo.Collection) *MongoRepo {
	return &MongoRepo{lists: lists, settings: settings}
}

func (m *MongoRepo) GetLists(ctx context.Context) (board.RankingLists, error) {
	out := board.RankingLists{ListA: []string{}, ListB: []string{}}
	cur, err := m.lists.Find(ctx, bson.M{"_id": bson.M{"$in": bson.A{docListA, docListB}}})
	if err != nil {
		return out, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d listDoc
		if err := cur.Decode(&d); err != nil {
			return out, err
		}
		switch d.ID {
		case docListA:
			out.ListA = d.Items
		case docListB:
			out.ListB = d.Items
		}
	}
	return out, cur.Err()
}

// SetLists replaces both list documents in one store-level batch so a
// concurrent reader cannot interleave between two independent writes.
func (m *MongoRepo) SetLists(ctx context.Context, lists board.RankingLists) error {
	models := []mongo.WriteModel{
		mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": docListA}).
			SetReplacement(listDoc{ID: docListA, Items: lists.ListA}).
			SetUpsert(true),
		mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": docListB}).
			SetReplacement(listDoc{ID: docListB, Items: lists.ListB}).
			SetUpsert(true),
	}
	_, err := m.lists.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (m *MongoRepo) GetHeaders(ctx context.Context) (*board.Headers, error) {
	var d headersDoc
	err := m.settings.FindOne(ctx, bson.M{"_id": docHeaders}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &board.Headers{HeaderA: d.HeaderA, HeaderB: d.HeaderB}, nil
}

func (m *MongoRepo) SetHeaders(ctx context.Context, h board.Headers) error {
	_, err := m.settings.ReplaceOne(ctx,
		bson.M{"_id": docHeaders},
		headersDoc{ID: docHeaders, HeaderA: h.HeaderA, HeaderB: h.HeaderB},
		options.Replace().SetUpsert(true),
	)
	return err
}
