package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"numium/config"
	"numium/internal/model"
)

type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(config *config.Config, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(config.Kafka.Broker),
		Topic:        config.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: w, log: log}
}

// EncodeEvent builds the Kafka message for a committed transfer, keyed by sender so events for
// one account stay ordered within a partition.
func EncodeEvent(event model.TransferEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode transfer event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Sender),
		Value: value,
		Time:  event.CommittedAt,
	}, nil
}

func (kp *KafkaPublisher) Publish(ctx context.Context, event model.TransferEvent) error {
	msg, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	kp.log.Debug("published transfer event", zap.String("transfer_id", event.ID), zap.String("topic", kp.writer.Topic))
	return nil
}

func (kp *KafkaPublisher) Close() error {
	return kp.writer.Close()
}

// kafkaReader is the part of *kafka.Reader the request source uses.
type kafkaReader interface {
	Config() kafka.ReaderConfig
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaRequestSource struct {
	reader kafkaReader
	log    *zap.Logger

	// commitMu keeps tracker updates and the commits they produce in the same order.
	commitMu sync.Mutex
	tracker  *offsetTracker
}

func NewKafkaRequestSource(config *config.Config, log *zap.Logger) *KafkaRequestSource {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{config.Kafka.Broker},
		Topic:       config.Kafka.RequestTopic,
		GroupID:     config.Kafka.GroupID,
		StartOffset: kafka.FirstOffset,
	})
	return newKafkaRequestSource(r, log)
}

func newKafkaRequestSource(r kafkaReader, log *zap.Logger) *KafkaRequestSource {
	return &KafkaRequestSource{reader: r, log: log, tracker: newOffsetTracker()}
}

// Receive fetches request messages until ctx is done. Workers may ack in any order; the group
// offset of a partition only advances past messages whose predecessors were all acked.
func (c *KafkaRequestSource) Receive(ctx context.Context, out chan<- Delivery) error {
	c.log.Info("kafka request source started", zap.String("topic", c.reader.Config().Topic))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Warn("kafka fetch failed, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		c.commitMu.Lock()
		c.tracker.fetched(m)
		c.commitMu.Unlock()

		req, decodeErr := DecodeRequest(m.Value)
		msg := m
		d := Delivery{
			Request: req,
			Err:     decodeErr,
			Ack: func(ctx context.Context) error {
				return c.ack(ctx, msg)
			},
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *KafkaRequestSource) ack(ctx context.Context, msg kafka.Message) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	upTo, ok := c.tracker.acked(msg)
	if !ok {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, upTo); err != nil {
		return fmt.Errorf("kafka commit partition %d offset %d: %w", upTo.Partition, upTo.Offset, err)
	}
	return nil
}

func (c *KafkaRequestSource) Close() error {
	return c.reader.Close()
}
