package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/tip-ledger/consumer"
	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

var _ consumer.EventConsumer = (*QueueManager)(nil)

// QueueManager publishes ledger events to a durable RabbitMQ queue with
// publisher confirms. The connection is re-established lazily after a failure.
type QueueManager struct {
	cfg    *config.QueueConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig, logger *zap.Logger) (*QueueManager, error) {
	if cfg == nil {
		return nil, errors.New("missing queue config")
	}
	if logger == nil {
		return nil, errors.New("missing logger")
	}

	return &QueueManager{
		cfg:    cfg,
		logger: logger.With(zap.String("queue", cfg.QueueName)),
	}, nil
}

func (qm *QueueManager) Start() error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	return qm.ensureChannel()
}

func (qm *QueueManager) PushLedgerEvent(ctx context.Context, ev *types.LedgerEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %d: %w", ev.Sequence, err)
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
	defer cancel()

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if err := qm.ensureChannel(); err != nil {
		return err
	}

	confirmation, err := qm.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",               // default exchange routes by queue name
		qm.cfg.QueueName, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type.String(),
			Timestamp:    time.Unix(ev.Timestamp, 0),
			Body:         body,
		},
	)
	if err != nil {
		qm.resetLocked()
		return fmt.Errorf("failed to publish event %d: %w", ev.Sequence, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm event %d: %w", ev.Sequence, err)
	}
	if !acked {
		return fmt.Errorf("event %d was nacked by the broker", ev.Sequence)
	}

	qm.logger.Debug("published ledger event",
		zap.Uint64("sequence", ev.Sequence),
		zap.String("type", ev.Type.String()),
		zap.String("id", ev.ID),
	)
	return nil
}

func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	var errs []error
	if qm.ch != nil && !qm.ch.IsClosed() {
		errs = append(errs, qm.ch.Close())
	}
	if qm.conn != nil && !qm.conn.IsClosed() {
		errs = append(errs, qm.conn.Close())
	}
	qm.ch, qm.conn = nil, nil

	return errors.Join(errs...)
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	qm.logger.Info("shutting down queue manager")
	if err := qm.Stop(); err != nil {
		qm.logger.Error("failed to stop queue manager", zap.Error(err))
	}
}

// ensureChannel must be called with qm.mu held.
func (qm *QueueManager) ensureChannel() error {
	if qm.ch != nil && !qm.ch.IsClosed() {
		return nil
	}

	if qm.conn == nil || qm.conn.IsClosed() {
		url := fmt.Sprintf("amqp://%s:%s@%s", qm.cfg.QueueUser, qm.cfg.QueuePassword, qm.cfg.Url)
		conn, err := amqp.Dial(url)
		if err != nil {
			return fmt.Errorf("failed to connect to the queue: %w", err)
		}
		qm.conn = conn
		qm.logger.Info("connected to the queue")
	}

	ch, err := qm.conn.Channel()
	if err != nil {
		qm.resetLocked()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		qm.resetLocked()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	_, err = ch.QueueDeclare(
		qm.cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": qm.cfg.QueueType},
	)
	if err != nil {
		_ = ch.Close()
		qm.resetLocked()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	qm.ch = ch
	return nil
}

// resetLocked drops the connection so the next call dials again.
func (qm *QueueManager) resetLocked() {
	if qm.conn != nil && !qm.conn.IsClosed() {
		if err := qm.conn.Close(); err != nil {
			qm.logger.Warn("failed to close queue connection", zap.Error(err))
		}
	}
	qm.ch, qm.conn = nil, nil
}
