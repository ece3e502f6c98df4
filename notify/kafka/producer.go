// Package kafka publishes password reset tokens to a Kafka topic for an
// out-of-process mailer to deliver.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultTopic receives password reset messages when Config.Topic is empty.
const DefaultTopic = "authcore.password_reset"

// MessageType tags every message so consumers sharing a topic can filter.
const MessageType = "password_reset"

// Message is the JSON payload written to Kafka. Partitioning is by email so
// consecutive resets for one account stay ordered. MessageID is a ULID that
// consumers can use to drop redelivered messages.
type Message struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	MessageID string    `json:"message_id"`
}

// Config holds producer settings.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Notifier is an authcore.Notifier backed by a sarama SyncProducer.
type Notifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

// SaramaConfig returns the producer configuration used by [New]: all
// replicas must acknowledge and retries are idempotent.
func SaramaConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// New dials the brokers and returns a Notifier.
func New(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, SaramaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return NewWithProducer(producer, cfg.Topic, logger), nil
}

// NewWithProducer wraps an existing producer. The Notifier takes ownership
// and closes it in Close.
func NewWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Notifier {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("notify.kafka"),
		now:      time.Now,
	}
}

// SendPasswordReset publishes one message and waits for the broker ack.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	issued := n.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(issued), ulid.DefaultEntropy()).String()
	data, err := json.Marshal(Message{
		Type:      MessageType,
		Email:     email,
		Token:     token,
		IssuedAt:  issued,
		MessageID: id,
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal message: %w", err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(email),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(MessageType)},
			{Key: []byte("message_id"), Value: []byte(id)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: send message: %w", err)
	}

	n.logger.Debug("password reset published",
		zap.String("topic", n.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the underlying producer.
func (n *Notifier) Close() error {
	return n.producer.Close()
}
