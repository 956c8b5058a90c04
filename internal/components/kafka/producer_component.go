package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/consts"
)

// Producer is the event-log surface the controller publishes through.
// At-least-once semantics; consumers dedupe on (task id, updateDateTime).
type Producer interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// ProducerComponent wraps a kafka.Writer configured for key-ordered topics:
// hash balancer over the message key so every event for one task id lands on
// the same partition.
type ProducerComponent struct {
	*core.BaseComponent
	cfg    *Config
	writer *kafka.Writer
}

func NewProducerComponent(cfg *Config) *ProducerComponent {
	return &ProducerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_KAFKA, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

func (pc *ProducerComponent) Start(ctx context.Context) error {
	if err := pc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	transport := &kafka.Transport{DialTimeout: 5 * time.Second}
	if pc.cfg.Username != "" {
		transport.SASL = plain.Mechanism{
			Username: pc.cfg.Username,
			Password: pc.cfg.Password,
		}
	}
	pc.writer = &kafka.Writer{
		Addr:                   kafka.TCP(pc.cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           pc.cfg.BatchTimeout,
		WriteTimeout:           pc.cfg.WriteTimeout,
		Transport:              transport,
	}
	logging.Info(ctx, "kafka producer component started",
		zap.Strings("brokers", pc.cfg.Brokers),
	)
	return nil
}

func (pc *ProducerComponent) Stop(ctx context.Context) error {
	if pc.writer != nil {
		if err := pc.writer.Close(); err != nil {
			logging.Errorf(ctx, "kafka writer close failed: %v", err)
		}
		pc.writer = nil
	}
	return pc.BaseComponent.Stop(ctx)
}

func (pc *ProducerComponent) HealthCheck() error {
	if err := pc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if pc.writer == nil {
		return fmt.Errorf("kafka writer not initialized")
	}
	return nil
}

// Publish JSON-encodes the payload and writes it with the given key,
// retrying transient failures with exponential backoff inside the configured
// write deadline.
func (pc *ProducerComponent) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	if pc.writer == nil {
		return fmt.Errorf("kafka writer not initialized")
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	writeCtx, cancel := context.WithTimeout(ctx, pc.cfg.WriteTimeout)
	defer cancel()
	operation := func() (struct{}, error) {
		return struct{}{}, pc.writer.WriteMessages(writeCtx, msg)
	}
	_, err = backoff.Retry(writeCtx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(pc.cfg.MaxRetries)),
	)
	if err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}
