//go:build integration

package queue_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/queue"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
	"github.com/babylonlabs-io/tip-ledger/pkg"
	"github.com/babylonlabs-io/tip-ledger/testutil"
)

const (
	rabbitUser     = "user"
	rabbitPassword = "password"
)

func setupRabbitContainer(t *testing.T) *config.QueueConfig {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "rabbitmq",
		Tag:        "3.13-alpine",
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + rabbitUser,
			"RABBITMQ_DEFAULT_PASS=" + rabbitPassword,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pool.Purge(resource))
	})

	url := "localhost:" + resource.GetPort("5672/tcp")
	err = pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", rabbitUser, rabbitPassword, url))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	require.NoError(t, err)

	cfg := &config.QueueConfig{
		QueueUser:     rabbitUser,
		QueuePassword: rabbitPassword,
		Url:           url,
		QueueName:     "ledger_events_" + pkg.RandString(8),
		QueueType:     config.QueueTypeClassic,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestQueueManager(t *testing.T) {
	ctx := t.Context()
	cfg := setupRabbitContainer(t)

	qm, err := queue.NewQueueManager(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, qm.Start())
	t.Cleanup(qm.Shutdown)

	ev := &types.LedgerEvent{
		ID:        "3f0e6a4c-1",
		Sequence:  1,
		Type:      types.EventTipSent,
		Timestamp: 1_700_000_000,
		TipSent: &types.TipSent{
			From:      testutil.RandomAddress(),
			Builder:   testutil.RandomAddress(),
			Amount:    math.NewUint(1_000_000),
			Fee:       math.NewUint(15_000),
			Timestamp: 1_700_000_000,
		},
	}
	require.NoError(t, qm.PushLedgerEvent(ctx, ev))

	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", rabbitUser, rabbitPassword, cfg.Url))
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		var ok bool
		msg, ok, err = ch.Get(cfg.QueueName, true)
		return err == nil && ok
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, ev.ID, msg.MessageId)
	assert.Equal(t, types.EventTipSent.String(), msg.Type)
	assert.Equal(t, "application/json", msg.ContentType)

	var received types.LedgerEvent
	require.NoError(t, json.Unmarshal(msg.Body, &received))
	assert.Equal(t, ev, &received)

	t.Run("reconnects after stop", func(t *testing.T) {
		require.NoError(t, qm.Stop())

		ev2 := *ev
		ev2.ID, ev2.Sequence = "3f0e6a4c-2", 2
		require.NoError(t, qm.PushLedgerEvent(ctx, &ev2))
	})
}
