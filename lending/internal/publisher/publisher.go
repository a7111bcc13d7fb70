package publisher

import (
	"context"
	"strconv"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/model"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
)

type Publisher interface {
	Publish(ctx context.Context, event model.BorrowEvent) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, cb circuit_breaker.CircuitBreaker, topic string, log *zap.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		cb:       cb,
		topic:    topic,
		log:      log.Named("publisher"),
	}
}

// Publish sends the event keyed by book id so events of one book keep their order.
func (p *kafkaPublisher) Publish(_ context.Context, event model.BorrowEvent) error {
	data, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(event.BookID)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_id"), Value: []byte(event.MessageID)},
		},
	}
	return p.cb.Call(func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrap(err, "send message")
		}
		p.log.Debug("published",
			zap.String("message_id", event.MessageID),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

type noop struct{}

func NewNoop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, model.BorrowEvent) error {
	return nil
}
