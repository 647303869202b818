package kafka

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/segyhp/loan-ledger/internal/events"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// batchTimeout bounds how long a synchronous single-message write waits for
// the batch to fill.
const batchTimeout = 10 * time.Millisecond

type Publisher struct {
	writer *kafka.Writer
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes event as JSON, keyed so that events of one entity stay ordered.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	msg, err := newMessage(key, event, time.Now())
	if err != nil {
		return customError.WrapPublishError(err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return customError.WrapPublishError(err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(key string, event any, at time.Time) (kafka.Message, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  at,
	}, nil
}
