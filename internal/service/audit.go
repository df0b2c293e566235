package service

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/pkg/circuit_breaker"
	"github.com/bookhaven/lending-service/pkg/kafka"
)

// Recorder is the append-only audit sink. Record is best-effort and
// fire-and-forget: a failed write never fails the mutation it describes.
type Recorder interface {
	Record(description, author string, action model.ActionKind)
}

type kafkaRecorder struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
	log      *zap.Logger
}

func NewAuditRecorder(producer sarama.SyncProducer, log *zap.Logger) Recorder {
	return &kafkaRecorder{
		producer: producer,
		cb:       circuit_breaker.NewCircuitBreaker(20, 30*time.Second, 0.5, 5),
		log:      log.Named("audit"),
	}
}

func (r *kafkaRecorder) Record(description, author string, action model.ActionKind) {
	event := kafka.EventAudit{
		Description: description,
		Author:      author,
		Action:      string(action),
		Date:        time.Now().UTC(),
	}
	go func() {
		data, err := json.Marshal(event)
		if err != nil {
			r.log.Error("marshal audit event", zap.Error(err))
			return
		}
		if err := r.cb.Call(func() error {
			msg := &sarama.ProducerMessage{Topic: kafka.AuditTopic, Value: sarama.StringEncoder(data)}
			_, _, err := r.producer.SendMessage(msg)
			return err
		}); err != nil {
			r.log.Warn("audit enqueue", zap.Error(err), zap.String("description", description))
		}
	}()
}
