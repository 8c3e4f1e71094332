// Package events publishes employee.loaded notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/finops-tools/staffload/internal/config"
	"github.com/finops-tools/staffload/internal/loader"
)

const (
	// DefaultTopic is the topic persisted employees are announced on.
	DefaultTopic = "employee.loaded"

	// EventType identifies the message payload.
	EventType = "employee.loaded"

	defaultWriteTimeout = 10 * time.Second
)

// ErrNoBrokers is returned when a publisher is created without brokers.
var ErrNoBrokers = errors.New("at least one kafka broker is required")

// Compile-time interface assertion.
var _ loader.Publisher = (*KafkaPublisher)(nil)

type (
	// Config holds Kafka publisher configuration.
	Config struct {
		Brokers      []string
		Topic        string
		WriteTimeout time.Duration
	}

	// EmployeeLoaded is the JSON payload of an employee.loaded message.
	EmployeeLoaded struct {
		Type         string    `json:"type"`
		RunID        string    `json:"runId,omitempty"`
		UniqueID     string    `json:"uniqueId"`
		SerialNumber int64     `json:"serialNumber"`
		FirstName    string    `json:"firstName"`
		LastName     string    `json:"lastName"`
		JobPosition  string    `json:"jobPosition"`
		LoadedAt     time.Time `json:"loadedAt"`
	}

	// KafkaPublisher writes one message per persisted employee, keyed by unique id.
	KafkaPublisher struct {
		writer *kafka.Writer
		runID  string
		now    func() time.Time
	}
)

// LoadConfig reads KAFKA_BROKERS (comma separated) and KAFKA_TOPIC.
func LoadConfig() *Config {
	return &Config{
		Brokers:      config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "")),
		Topic:        config.GetEnvStr("KAFKA_TOPIC", DefaultTopic),
		WriteTimeout: defaultWriteTimeout,
	}
}

// Enabled reports whether any broker is configured.
func (c *Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewKafkaPublisher creates a publisher for cfg. runID is attached to every message.
func NewKafkaPublisher(cfg *Config, runID string) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, ErrNoBrokers
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
		},
		runID: runID,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Publish sends an employee.loaded message for employee.
func (p *KafkaPublisher) Publish(ctx context.Context, employee *loader.Employee) error {
	value, err := json.Marshal(newEmployeeLoaded(employee, p.runID, p.now()))
	if err != nil {
		return fmt.Errorf("failed to encode employee event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(employee.UniqueID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish employee event: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newEmployeeLoaded(employee *loader.Employee, runID string, at time.Time) *EmployeeLoaded {
	return &EmployeeLoaded{
		Type:         EventType,
		RunID:        runID,
		UniqueID:     employee.UniqueID,
		SerialNumber: employee.SerialNumber,
		FirstName:    employee.FirstName,
		LastName:     employee.LastName,
		JobPosition:  employee.JobPosition,
		LoadedAt:     at,
	}
}
