package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
)

const (
	LedgerStateCollection         = "ledger_state"
	BuilderStatsCollection        = "builder_stats"
	LedgerEventsCollection        = "ledger_events"
	AccountBalancesCollection     = "account_balances"
	LedgerStatsSnapshotCollection = "ledger_stats_snapshot"

	// mongo error code returned when the collection already exists
	namespaceExistsErrCode = 48
)

type index struct {
	Keys   bson.D
	Unique bool
}

var collections = map[string][]index{
	LedgerStateCollection:  {},
	BuilderStatsCollection: {},
	LedgerEventsCollection: {
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "published", Value: 1}, {Key: "_id", Value: 1}}},
	},
	AccountBalancesCollection:     {},
	LedgerStatsSnapshotCollection: {},
}

// Setup creates every collection and index used by the ledger. Collections
// must exist before they can be written from a multi-document transaction.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to disconnect setup client")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	database := client.Database(cfg.DbName)
	for name, indexes := range collections {
		if err := createCollection(ctx, database, name); err != nil {
			return err
		}
		if err := createIndexes(ctx, database, name, indexes); err != nil {
			return err
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and Indexes created successfully.")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, name string) error {
	err := database.CreateCollection(ctx, name)
	if err != nil {
		var commandErr mongo.CommandError
		if errors.As(err, &commandErr) && commandErr.HasErrorCode(namespaceExistsErrCode) {
			log.Ctx(ctx).Debug().Str("collection", name).Msg("Collection already exists")
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	log.Ctx(ctx).Debug().Str("collection", name).Msg("Collection created")
	return nil
}

func createIndexes(ctx context.Context, database *mongo.Database, collection string, indexes []index) error {
	if len(indexes) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		models = append(models, mongo.IndexModel{
			Keys:    idx.Keys,
			Options: options.Index().SetUnique(idx.Unique),
		})
	}

	if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
	}

	return nil
}
