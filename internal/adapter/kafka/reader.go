package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

// AlertMessage is an alert read back from the topic with its position.
type AlertMessage struct {
	Alert     domain.AlertRecord
	Headers   map[string]string
	Partition int
	Offset    int64
	Time      time.Time
}

// Reader consumes the alert topic. Downstream tooling uses it to follow
// alerts as they are stored.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer for the alert topic. An empty groupID reads
// partition 0 without committing offsets.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// ReadAlert blocks until the next alert arrives or ctx is done.
func (r *Reader) ReadAlert(ctx context.Context) (AlertMessage, error) {
	msg, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return AlertMessage{}, err
	}
	return mapMessageToAlert(msg)
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToAlert(msg kafkago.Message) (AlertMessage, error) {
	var alert domain.AlertRecord
	if err := json.Unmarshal(msg.Value, &alert); err != nil {
		return AlertMessage{}, fmt.Errorf("decode alert at offset %d: %w", msg.Offset, err)
	}
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return AlertMessage{
		Alert:     alert,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Time:      msg.Time,
	}, nil
}
