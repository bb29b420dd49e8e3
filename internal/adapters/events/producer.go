package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/rs/zerolog"
)

// Producer は従業員ライフサイクルイベントを Kafka に配信します。
type Producer struct {
	sp     sarama.SyncProducer
	topic  string
	source string
	log    zerolog.Logger
}

// Config は Producer の設定です。
type Config struct {
	Topic  string
	Source string
}

// NewProducer は Producer を生成します。
func NewProducer(sp sarama.SyncProducer, cfg Config, logger zerolog.Logger) *Producer {
	return &Producer{
		sp:     sp,
		topic:  cfg.Topic,
		source: cfg.Source,
		log:    logger.With().Str("component", "events.Producer").Logger(),
	}
}

// NewSyncProducer はイベント配信用の sarama.SyncProducer を構築します。
func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_3_2_0
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond

	return sarama.NewSyncProducer(brokers, cfg)
}

// Close は内部のプロデューサを閉じます。
func (p *Producer) Close() error {
	if p == nil || p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

type eventPayload struct {
	Kind           string    `json:"kind"`
	EmployeeID     string    `json:"employee_id"`
	Email          string    `json:"email"`
	Department     string    `json:"department"`
	Position       string    `json:"position"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PublishEmployeeEvent はライフサイクルイベントを 1 件送信します。
func (p *Producer) PublishEmployeeEvent(_ context.Context, event employee.Event) error {
	if p == nil || p.sp == nil {
		return errors.New("events: sync producer is not initialized")
	}
	if event.Employee == nil {
		return errors.New("events: event employee is required")
	}

	body, err := json.Marshal(eventPayload{
		Kind:           string(event.Kind),
		EmployeeID:     event.Employee.ID,
		Email:          event.Employee.Email,
		Department:     event.Employee.Department,
		Position:       event.Employee.Position,
		ProfilePicture: event.Employee.ProfilePicture,
		OccurredAt:     event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}

	messageID := uuid.NewString()
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Employee.ID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message-id"), Value: []byte(messageID)},
			{Key: []byte("event-kind"), Value: []byte(event.Kind)},
			{Key: []byte("source"), Value: []byte(p.source)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("events: send %s: %w", event.Kind, err)
	}

	p.log.Debug().
		Str("message_id", messageID).
		Str("kind", string(event.Kind)).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("published employee event")
	return nil
}
