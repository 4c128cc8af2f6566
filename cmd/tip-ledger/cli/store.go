package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/db/memdb"
	dbmodel "github.com/babylonlabs-io/tip-ledger/internal/db/model"
)

// openStore connects the store selected by ledger.store. The returned
// function releases the connection.
func openStore(ctx context.Context, cfg *config.Config) (db.DbInterface, func(), error) {
	if cfg.Ledger.Store == config.StoreMemory {
		log.Ctx(ctx).Warn().Msg("Using the in-memory store, ledger state is lost on exit")
		return memdb.New(), func() {}, nil
	}

	if err := dbmodel.Setup(ctx, &cfg.Db); err != nil {
		return nil, nil, fmt.Errorf("error while setting up ledger db model: %w", err)
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return nil, nil, fmt.Errorf("error while creating db client: %w", err)
	}

	closeFn := func() {
		if err := dbClient.Close(context.Background()); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("error while closing db client")
		}
	}
	return db.NewDbWithMetrics(dbClient), closeFn, nil
}
