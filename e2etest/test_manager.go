//go:build e2e

package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/babylonlabs-io/tip-ledger/consumer"
	"github.com/babylonlabs-io/tip-ledger/e2etest/container"
	"github.com/babylonlabs-io/tip-ledger/internal/api"
	"github.com/babylonlabs-io/tip-ledger/internal/bank"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/db/model"
	"github.com/babylonlabs-io/tip-ledger/internal/queue"
	"github.com/babylonlabs-io/tip-ledger/internal/services"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/testutil"
)

var (
	eventuallyWaitTimeOut = 30 * time.Second
	eventuallyPollTime    = 250 * time.Millisecond
)

type TestManager struct {
	Config   *config.Config
	Owner    common.Address
	Rejected common.Address
	DbClient *db.Database
	Service  *services.Service
	APIURL   string

	manager    *container.Manager
	stopServer func()
	deliveries <-chan amqp.Delivery
}

// StartManager starts MongoDB and RabbitMQ containers and a ledger service
// connected to both, serving its API on a local test server.
func StartManager(t *testing.T) *TestManager {
	manager, err := container.NewManager(t)
	require.NoError(t, err)

	mongoAddress, err := manager.RunMongoResource()
	require.NoError(t, err)
	rabbitURL, err := manager.RunRabbitMQResource()
	require.NoError(t, err)

	tm := &TestManager{
		Owner:    testutil.RandomAddress(),
		Rejected: testutil.RandomAddress(),
		manager:  manager,
	}
	tm.Config = DefaultTipLedgerConfig(tm.Owner, tm.Rejected)
	tm.Config.Db.Address = mongoAddress
	tm.Config.Queue.Url = rabbitURL
	require.NoError(t, tm.Config.Validate())

	ctx := context.Background()
	require.NoError(t, model.Setup(ctx, &tm.Config.Db))

	tm.DbClient, err = db.New(ctx, tm.Config.Db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tm.DbClient.Close(context.Background())
	})

	tm.StartService(t, true)
	tm.deliveries = consumeQueue(t, tm.Config.Queue)
	return tm
}

// StartService (re)starts the ledger service on the shared database. Without
// the queue, committed events accumulate in the outbox.
func (tm *TestManager) StartService(t *testing.T, withQueue bool) {
	tm.StopService()

	ctx, cancel := context.WithCancel(context.Background())

	var qm consumer.EventConsumer
	if withQueue {
		queueManager, err := queue.NewQueueManager(tm.Config.Queue, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NoError(t, queueManager.Start())
		qm = queueManager
	}

	rejected, err := tm.Config.Ledger.RejectedAddresses()
	require.NoError(t, err)

	dbClient := db.NewDbWithMetrics(tm.DbClient)
	service := services.NewService(tm.Config, dbClient, qm, nil)
	require.NoError(t, service.InitLedger(ctx, bank.NewStoreBank(dbClient, rejected...)))
	service.StartLedgerSync(ctx)

	server := httptest.NewServer(api.NewHandler(service).Routes())

	tm.Service = service
	tm.APIURL = server.URL
	tm.stopServer = func() {
		server.Close()
		cancel()
		if qm != nil {
			_ = qm.Stop()
		}
	}
	t.Cleanup(tm.StopService)
}

func (tm *TestManager) StopService() {
	if tm.stopServer != nil {
		tm.stopServer()
		tm.stopServer = nil
	}
}

func DefaultTipLedgerConfig(owner, rejected common.Address) *config.Config {
	return &config.Config{
		Db: config.DbConfig{
			DbName:             "tip-ledger-e2e",
			MaxPaginationLimit: 100,
		},
		Ledger: config.LedgerConfig{
			Owner:            owner.Hex(),
			FeeBps:           150,
			Store:            config.StoreMongo,
			RejectRecipients: []string{rejected.Hex()},
			EventBufferSize:  64,
		},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    10 * time.Second,
			IdleTimeout:    10 * time.Second,
			MaxEventsLimit: 100,
		},
		Queue: &config.QueueConfig{
			QueueUser:     container.RabbitUser,
			QueuePassword: container.RabbitPassword,
			QueueType:     config.QueueTypeClassic,
		},
		Metrics: config.MetricsConfig{
			Host: "127.0.0.1",
			Port: 2112,
		},
		Poller: config.PollerConfig{
			OutboxPollingInterval: 500 * time.Millisecond,
			OutboxBatchSize:       50,
			StatsPollingInterval:  time.Second,
		},
	}
}

func consumeQueue(t *testing.T, cfg *config.QueueConfig) <-chan amqp.Delivery {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	ch, err := conn.Channel()
	require.NoError(t, err)

	deliveries, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	require.NoError(t, err)
	return deliveries
}

// NextEvent waits for the next ledger event delivered through the queue.
func (tm *TestManager) NextEvent(t *testing.T) *types.LedgerEvent {
	t.Helper()

	select {
	case msg := <-tm.deliveries:
		var ev types.LedgerEvent
		require.NoError(t, json.Unmarshal(msg.Body, &ev))
		require.Equal(t, ev.ID, msg.MessageId)
		return &ev
	case <-time.After(eventuallyWaitTimeOut):
		t.Fatal("no ledger event received from the queue")
		return nil
	}
}

// Do sends a JSON request to the API as caller and returns the status code
// and decoded body.
func (tm *TestManager) Do(t *testing.T, method, path string, caller *common.Address, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, tm.APIURL+path, reader)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(api.CallerHeader, caller.Hex())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
