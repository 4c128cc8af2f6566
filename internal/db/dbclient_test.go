//go:build integration

package db_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/testutil"
)

const (
	mongoDatabase   = "test-database"
	mongoReplicaSet = "rs0"

	// this version corresponds to docker tag for mongodb
	// it should be in sync with mongo version used in production
	mongoVersion = "7.0.5"
)

var (
	testDB     *db.Database
	testConfig *config.DbConfig
)

func TestMain(m *testing.M) {
	// first setup container with MongoDb
	dbConfig, cleanup, err := setupMongoContainer()
	if err != nil {
		log.Fatalf("failed to setup mongo container: %v", err)
	}
	testConfig = dbConfig

	// apply migrations
	err = model.Setup(context.Background(), dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to init mongo database: %v", err)
	}

	// using config from container mongo initialize client used in tests
	testDB, err = setupClient(dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to setup client: %v", err)
	}

	// integration tests run on this line
	code := m.Run()
	cleanup()

	os.Exit(code)
}

// setupMongoContainer setups a single node replica set (transactions are not
// available on standalone servers) returning db credentials through config.DbConfig,
// cleanup function that MUST be called in the end to cleanup docker resources and an error if there is any
func setupMongoContainer() (*config.DbConfig, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	suffix, err := testutil.RandomAlphaNum(3)
	if err != nil {
		return nil, nil, err
	}

	// there can be only 1 container with the same name, so we add
	// random string in the end in case there is still old container running
	containerName := "mongo-integration-tests-db-" + suffix
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       containerName,
		Repository: "mongo",
		Tag:        mongoVersion,
		Cmd:        []string{"--replSet", mongoReplicaSet, "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		err := pool.Purge(resource)
		if err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	// get host port (randomly chosen) that is mapped to mongo port inside container
	hostPort := resource.GetPort("27017/tcp")
	address := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", hostPort)

	err = pool.Retry(func() error {
		return initiateReplicaSet(address)
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &config.DbConfig{
		DbName:             mongoDatabase,
		Address:            address,
		MaxPaginationLimit: 10,
	}, cleanup, nil
}

func initiateReplicaSet(address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(address))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx) //nolint:errcheck

	admin := client.Database("admin")
	initiate := bson.D{{Key: "replSetInitiate", Value: bson.M{
		"_id": mongoReplicaSet,
		"members": bson.A{
			bson.M{"_id": 0, "host": "localhost:27017"},
		},
	}}}
	err = admin.RunCommand(ctx, initiate).Err()
	if err != nil {
		// already initiated by a previous attempt
		var commandErr mongo.CommandError
		if !(errors.As(err, &commandErr) && commandErr.Name == "AlreadyInitialized") {
			return err
		}
	}

	var hello struct {
		IsWritablePrimary bool `bson:"isWritablePrimary"`
	}
	if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return err
	}
	if !hello.IsWritablePrimary {
		return errors.New("replica set has no primary yet")
	}

	return nil
}

func setupClient(cfg *config.DbConfig) (*db.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.New(ctx, *cfg)
}

// resetDatabase drops every document of every collection, keeping the
// collections themselves which transactions cannot create
func resetDatabase(t *testing.T) {
	ctx := t.Context()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testConfig.Address))
	require.NoError(t, err)
	defer client.Disconnect(ctx) //nolint:errcheck

	database := client.Database(testConfig.DbName)
	names, err := database.ListCollectionNames(ctx, bson.M{})
	require.NoError(t, err)

	for _, name := range names {
		_, err := database.Collection(name).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
}
