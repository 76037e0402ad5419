package kafka

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the consumers use.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// BaseConsumer provides common functionality for all Kafka consumers
type BaseConsumer struct {
	Reader messageReader
	Topic  string
}

// NewBaseConsumer creates a consumer group reader for topic.  With no
// brokers or topic the reader is nil and ConsumeMessages returns at once.
func NewBaseConsumer(brokers []string, groupID, topic string) *BaseConsumer {
	if topic == "" || len(brokers) == 0 {
		log.Println("kafka: empty topic or brokers, skipping consumer creation")
		return &BaseConsumer{Topic: topic}
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &BaseConsumer{Reader: reader, Topic: topic}
}

// Close closes the Kafka reader
func (c *BaseConsumer) Close() error {
	if c.Reader == nil {
		return nil
	}
	return c.Reader.Close()
}

// ConsumeMessages reads until ctx is done or the reader is closed, passing
// each value to handler.  Handler errors are logged and the offset moves
// on; a poison message must not stall the partition.
func (c *BaseConsumer) ConsumeMessages(ctx context.Context, handler func(context.Context, []byte) error) {
	if c.Reader == nil {
		return
	}
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Printf("kafka: stopping consumer for %s", c.Topic)
				return
			}
			log.Printf("kafka: error reading from %s: %v", c.Topic, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := handler(ctx, msg.Value); err != nil {
			log.Printf("kafka: error processing message from %s (offset %d): %v", msg.Topic, msg.Offset, err)
		}
	}
}
