package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
)

func (db *Database) LoadState(ctx context.Context) (*ledger.State, error) {
	var doc model.LedgerStateDocument
	err := db.collection(model.LedgerStateCollection).
		FindOne(ctx, bson.M{"_id": model.LedgerStateID}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrStateNotFound
		}
		return nil, err
	}

	cursor, err := db.collection(model.BuilderStatsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var builders []*model.BuilderStatsDocument
	if err := cursor.All(ctx, &builders); err != nil {
		return nil, err
	}

	return doc.ToLedgerState(builders)
}

func (db *Database) InitState(ctx context.Context, state *ledger.State) error {
	return db.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		_, err := db.collection(model.LedgerStateCollection).InsertOne(sessCtx, model.FromLedgerState(state))
		if err != nil {
			return asDuplicateKeyError(err, model.LedgerStateID, "ledger state already initialized")
		}

		for addr, stats := range state.Builders {
			entry := &ledger.BuilderEntry{Address: addr, Stats: stats}
			if err := db.saveBuilderStats(sessCtx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit writes the change and runs the transfer in one transaction.
func (db *Database) Commit(ctx context.Context, change *ledger.Change, transfer ledger.TransferFunc) error {
	return db.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := db.saveGlobals(sessCtx, change.Globals); err != nil {
			return err
		}

		if change.Builder != nil {
			if err := db.saveBuilderStats(sessCtx, change.Builder); err != nil {
				return err
			}
		}

		if change.Event != nil {
			_, err := db.collection(model.LedgerEventsCollection).
				InsertOne(sessCtx, model.FromLedgerEvent(change.Event))
			if err != nil {
				return asDuplicateKeyError(err, change.Event.ID,
					fmt.Sprintf("event %d already exists", change.Event.Sequence))
			}
		}

		if transfer != nil {
			return transfer(sessCtx)
		}
		return nil
	})
}

func (db *Database) saveGlobals(ctx context.Context, globals ledger.Globals) error {
	var doc model.LedgerStateDocument
	doc.SetGlobals(globals)

	update := bson.M{
		"$set": bson.M{
			"owner":        doc.Owner,
			"fee_bps":      doc.FeeBps,
			"total_volume": doc.TotalVolume,
			"total_fees":   doc.TotalFees,
			"pending_fees": doc.PendingFees,
			"balance":      doc.Balance,
			"event_seq":    doc.EventSeq,
		},
	}
	res, err := db.collection(model.LedgerStateCollection).
		UpdateOne(ctx, bson.M{"_id": model.LedgerStateID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ledger.ErrStateNotFound
	}

	return nil
}

func (db *Database) saveBuilderStats(ctx context.Context, entry *ledger.BuilderEntry) error {
	doc := model.FromBuilderEntry(entry)
	filter := bson.M{"_id": doc.Address}
	opts := options.Replace().SetUpsert(true)

	_, err := db.collection(model.BuilderStatsCollection).ReplaceOne(ctx, filter, doc, opts)
	return err
}
