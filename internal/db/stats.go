package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
)

// UpsertLedgerStats updates or inserts the ledger stats snapshot
func (db *Database) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	filter := bson.M{"_id": model.LedgerStatsID}
	update := bson.M{
		"$set": bson.M{
			"total_volume":  stats.TotalVolume,
			"total_fees":    stats.TotalFees,
			"pending_fees":  stats.PendingFees,
			"balance":       stats.Balance,
			"builder_count": stats.BuilderCount,
			"tip_count":     stats.TipCount,
			"event_seq":     stats.EventSeq,
			"last_updated":  stats.LastUpdated,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.LedgerStatsSnapshotCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	var doc model.LedgerStatsDocument
	err := db.collection(model.LedgerStatsSnapshotCollection).
		FindOne(ctx, bson.M{"_id": model.LedgerStatsID}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.LedgerStatsID,
				Message: "ledger stats snapshot not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}
