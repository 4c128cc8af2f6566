package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

func (db *Database) ListEvents(ctx context.Context, fromSeq uint64, limit int64) ([]*types.LedgerEvent, error) {
	filter := bson.M{"_id": bson.M{"$gte": fromSeq}}
	return db.findEvents(ctx, filter, limit)
}

func (db *Database) ListUnpublishedEvents(ctx context.Context, limit int64) ([]*types.LedgerEvent, error) {
	filter := bson.M{"published": false}
	return db.findEvents(ctx, filter, limit)
}

func (db *Database) MarkEventPublished(ctx context.Context, seq uint64) error {
	filter := bson.M{"_id": seq}
	update := bson.M{"$set": bson.M{"published": true}}

	res, err := db.collection(model.LedgerEventsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     fmt.Sprint(seq),
			Message: "event not found",
		}
	}

	return nil
}

func (db *Database) findEvents(ctx context.Context, filter bson.M, limit int64) ([]*types.LedgerEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := db.collection(model.LedgerEventsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.LedgerEventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]*types.LedgerEvent, 0, len(docs))
	for _, doc := range docs {
		ev, err := doc.ToLedgerEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}
