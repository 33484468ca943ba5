package service

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/kafka"
)

type EventLog interface {
	BookCreated(book catalog.Book) error
}

type eventLog struct {
	producer sarama.AsyncProducer
	topic    string
	now      func() time.Time
}

// NewEventLog returns a nil *eventLog when producer is nil; publishing on it
// is a no-op.
func NewEventLog(producer sarama.AsyncProducer, topic string, log *zap.Logger) *eventLog {
	if producer == nil {
		return nil
	}
	log = log.Named("events")
	go func() {
		for perr := range producer.Errors() {
			log.Error("produce", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
		}
	}()
	return &eventLog{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

func (l *eventLog) BookCreated(book catalog.Book) error {
	if l == nil {
		return nil
	}
	data, err := json.Marshal(kafka.BookEvent{
		ID:        uuid.NewString(),
		Type:      kafka.EventBookCreated,
		Timestamp: l.now().UTC(),
		Book:      book,
	})
	if err != nil {
		return err
	}
	l.producer.Input() <- &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(book.ISBN),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}
