//go:build e2e

package container

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/tip-ledger/testutil"
)

const (
	mongoReplicaSet = "rs0"

	RabbitUser     = "user"
	RabbitPassword = "password"
)

// Manager is a wrapper around all Docker instances, and the Docker API.
// It provides utilities to run and interact with all Docker containers used within e2e testing.
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources map[string]*dockertest.Resource
}

// NewManager creates a new Manager instance and initializes
// all Docker specific utilities. Containers are purged when t finishes.
func NewManager(t *testing.T) (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       NewImageConfig(),
		pool:      pool,
		resources: make(map[string]*dockertest.Resource),
	}
	t.Cleanup(func() {
		require.NoError(t, m.ClearResources())
	})
	return m, nil
}

func (m *Manager) run(name string, opts *dockertest.RunOptions) (*dockertest.Resource, error) {
	suffix, err := testutil.RandomAlphaNum(4)
	if err != nil {
		return nil, err
	}
	opts.Name = name + "-" + suffix

	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, err
	}

	m.resources[name] = resource
	return resource, nil
}

// RunMongoResource starts a single node replica set and returns its
// connection string once a primary is elected.
func (m *Manager) RunMongoResource() (string, error) {
	resource, err := m.run("tip-ledger-e2e-mongo", &dockertest.RunOptions{
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Cmd:        []string{"--replSet", mongoReplicaSet, "--bind_ip_all"},
	})
	if err != nil {
		return "", err
	}

	address := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", resource.GetPort("27017/tcp"))
	if err := m.pool.Retry(func() error {
		return initiateReplicaSet(address)
	}); err != nil {
		return "", err
	}

	return address, nil
}

// RunRabbitMQResource starts RabbitMQ and returns its host:port once it
// accepts connections.
func (m *Manager) RunRabbitMQResource() (string, error) {
	resource, err := m.run("tip-ledger-e2e-rabbitmq", &dockertest.RunOptions{
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + RabbitUser,
			"RABBITMQ_DEFAULT_PASS=" + RabbitPassword,
		},
	})
	if err != nil {
		return "", err
	}

	url := "localhost:" + resource.GetPort("5672/tcp")
	if err := m.pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", RabbitUser, RabbitPassword, url))
		if err != nil {
			return err
		}
		return conn.Close()
	}); err != nil {
		return "", err
	}

	return url, nil
}

// ClearResources removes all outstanding Docker resources created by the Manager.
func (m *Manager) ClearResources() error {
	var errs []error
	for name, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			errs = append(errs, fmt.Errorf("failed to purge %s: %w", name, err))
		}
		delete(m.resources, name)
	}
	return errors.Join(errs...)
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
		"_id":     mongoReplicaSet,
		"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
	}}}
	if err := admin.RunCommand(ctx, initiate).Err(); err != nil {
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
