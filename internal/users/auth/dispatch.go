// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	platformkafka "github.com/taibuivan/bazaar/internal/platform/kafka"
)

// MessageWriter is the subset of [kafka.Writer] the dispatcher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// codeRequested is the payload of the registration code event.
type codeRequested struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// # Kafka Dispatcher

// KafkaCodeDispatcher publishes codes for the notification service to deliver.
type KafkaCodeDispatcher struct {
	writer MessageWriter
	topic  string
}

// NewKafkaCodeDispatcher creates a dispatcher publishing to topic.
func NewKafkaCodeDispatcher(writer MessageWriter, topic string) *KafkaCodeDispatcher {
	return &KafkaCodeDispatcher{writer: writer, topic: topic}
}

// Dispatch publishes one event keyed by the recipient email.
func (dispatcher *KafkaCodeDispatcher) Dispatch(context context.Context, code Code) error {
	event, err := platformkafka.NewEvent(CodeEventType, code.Email, codeRequested{
		Email:     code.Email,
		Code:      code.Value,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		return err
	}

	message, err := event.Message(dispatcher.topic)
	if err != nil {
		return err
	}

	if err := dispatcher.writer.WriteMessages(context, message); err != nil {
		return fmt.Errorf("kafka_register_code_publish_failed: %w", err)
	}
	return nil
}

// # Log Dispatcher

// LogCodeDispatcher records that a code was issued without delivering it.
// It backs local development where no broker is configured.
type LogCodeDispatcher struct {
	logger *slog.Logger
}

// NewLogCodeDispatcher creates a dispatcher writing to logger.
func NewLogCodeDispatcher(logger *slog.Logger) *LogCodeDispatcher {
	return &LogCodeDispatcher{logger: logger}
}

// Dispatch logs the recipient and expiry. The code value is never logged.
func (dispatcher *LogCodeDispatcher) Dispatch(context context.Context, code Code) error {
	dispatcher.logger.InfoContext(context, "register_code_issued",
		slog.String("email", code.Email),
		slog.Time("expires_at", code.ExpiresAt),
	)
	return nil
}
