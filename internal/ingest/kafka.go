// Package ingest turns an external Kafka topic into scheduler
// submissions: one message becomes one job, keyed by the message key so
// that clients are lazily auto-registered the first time they're seen.
package ingest

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"quanta/internal/config"
	"quanta/internal/scheduler"
)

// MessageHandler processes one message's payload on the job's worker
// goroutine. Returning an error only logs; it never stops the consume
// loop or affects the client's queue.
type MessageHandler func(payload []byte) error

// Consumer reads a Kafka topic and submits each message to the
// scheduler as a job for the client named by the message key. The
// caller-supplied handler runs when that job is actually dispatched,
// not when the message is read off the topic.
type Consumer struct {
	reader  *kafka.Reader
	sched   *scheduler.Scheduler
	logger  *zap.Logger
	handler MessageHandler
}

// NewConsumer builds a Consumer from cfg, dispatching every message's
// payload to handler. A nil handler is replaced with a no-op, matching
// a deployment that only cares about the fairness accounting and not
// the payload itself.
func NewConsumer(cfg *config.KafkaConfig, sched *scheduler.Scheduler, logger *zap.Logger, handler MessageHandler) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handler == nil {
		handler = func([]byte) error { return nil }
	}

	readerCfg := kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	}
	if user := os.Getenv(config.KafkaSASLUser); user != "" {
		readerCfg.Dialer = &kafka.Dialer{
			SASLMechanism: plain.Mechanism{
				Username: user,
				Password: os.Getenv(config.KafkaSASLPassword),
			},
		}
	}

	return &Consumer{
		reader:  kafka.NewReader(readerCfg),
		sched:   sched,
		logger:  logger,
		handler: handler,
	}
}

// Run consumes until ctx is cancelled or the reader is closed. Each
// message becomes one job for the client named by its key, with clients
// auto-registered at default weight on first sight.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("kafka fetch failed", zap.Error(err))
			continue
		}

		if err := c.submitJob(msg.Key, msg.Value); err != nil {
			c.logger.Error("kafka message submission failed",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("kafka commit failed", zap.Error(err))
		}
	}
}

// Close releases the underlying reader's connections.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) submitJob(key, value []byte) error {
	clientID := string(key)
	if clientID == "" {
		clientID = "kafka-anonymous"
	}

	if err := c.sched.RegisterClient(clientID); err != nil && !errors.Is(err, scheduler.ErrAlreadyRegistered) {
		return err
	}

	payload := append([]byte(nil), value...)
	return c.sched.Submit(clientID, func() {
		if err := c.handler(payload); err != nil {
			c.logger.Error("kafka message handler failed",
				zap.String("client_id", clientID), zap.Error(err))
		}
	})
}
