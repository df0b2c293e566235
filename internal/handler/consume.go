package handler

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/pkg/kafka"
)

type auditSink func(ctx context.Context, event kafka.EventAudit) error

// Consumer drains the audit topic and persists entries through the sink.
type Consumer struct {
	sink      auditSink
	log       *zap.Logger
	ready     chan bool
	readyOnce sync.Once
}

func NewConsumer(sink auditSink, log *zap.Logger) *Consumer {
	return &Consumer{
		sink:  sink,
		log:   log.Named("consumer"),
		ready: make(chan bool),
	}
}

// Ready is closed once the first session has been set up.
func (consumer *Consumer) Ready() <-chan bool {
	return consumer.ready
}

// Setup may run again after a rebalance; ready closes only once.
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	consumer.readyOnce.Do(func() { close(consumer.ready) })
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.EventAudit
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("unmarshal audit event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.sink(context.Background(), event); err != nil {
				// left unmarked so the write is retried next session
				consumer.log.Error("persist audit event", zap.Error(err))
				continue
			}

			consumer.log.Debug("audit entry persisted",
				zap.String("value", string(message.Value)),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
