// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformkafka "github.com/taibuivan/bazaar/internal/platform/kafka"
	"github.com/taibuivan/bazaar/internal/users/auth"
)

type captureWriter struct {
	messages []kafka.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func sampleCode() auth.Code {
	return auth.Code{
		Email:     testEmail,
		Value:     "042317",
		TTL:       testCodeTTL,
		ExpiresAt: time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
	}
}

func TestKafkaCodeDispatcher_Dispatch(t *testing.T) {
	writer := &captureWriter{}
	dispatcher := auth.NewKafkaCodeDispatcher(writer, "auth.registration-codes")

	require.NoError(t, dispatcher.Dispatch(context.Background(), sampleCode()))
	require.Len(t, writer.messages, 1)

	message := writer.messages[0]
	assert.Equal(t, "auth.registration-codes", message.Topic)
	assert.Equal(t, testEmail, string(message.Key))

	var event platformkafka.Event
	require.NoError(t, json.Unmarshal(message.Value, &event))
	assert.Equal(t, auth.CodeEventType, event.EventType)
	assert.Equal(t, testEmail, event.AggregateID)
	assert.NotEmpty(t, event.EventID)

	var data struct {
		Email     string    `json:"email"`
		Code      string    `json:"code"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "042317", data.Code)
	assert.Equal(t, sampleCode().ExpiresAt, data.ExpiresAt)
}

func TestKafkaCodeDispatcher_WriteError(t *testing.T) {
	cause := errors.New("leader not available")
	dispatcher := auth.NewKafkaCodeDispatcher(&captureWriter{err: cause}, "auth.registration-codes")

	err := dispatcher.Dispatch(context.Background(), sampleCode())
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "kafka_register_code_publish_failed")
}

func TestLogCodeDispatcher_NeverLogsCode(t *testing.T) {
	var buffer bytes.Buffer
	dispatcher := auth.NewLogCodeDispatcher(slog.New(slog.NewJSONHandler(&buffer, nil)))

	require.NoError(t, dispatcher.Dispatch(context.Background(), sampleCode()))

	assert.Contains(t, buffer.String(), "register_code_issued")
	assert.Contains(t, buffer.String(), testEmail)
	assert.NotContains(t, buffer.String(), "042317")
}
