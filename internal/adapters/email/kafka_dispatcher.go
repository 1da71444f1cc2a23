package email

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// mailRequest is the payload consumed by the intranet mail relay.
type mailRequest struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Template string    `json:"template"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

// KafkaDispatcher hands rendered messages to the mail relay topic. A nil error
// means the broker acknowledged the write.
type KafkaDispatcher struct {
	writer   messageWriter
	renderer *Renderer
	from     string
	nowFn    func() time.Time
}

func NewKafkaDispatcher(brokers []string, topic string, renderer *Renderer, from string) (*KafkaDispatcher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka email dispatcher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka email dispatcher requires a topic")
	}
	return newKafkaDispatcher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}, renderer, from), nil
}

func newKafkaDispatcher(writer messageWriter, renderer *Renderer, from string) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer:   writer,
		renderer: renderer,
		from:     from,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (d *KafkaDispatcher) Send(ctx context.Context, msg ports.EmailMessage) error {
	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return err
	}
	now := d.nowFn()
	payload, err := json.Marshal(mailRequest{
		From:     d.from,
		To:       msg.To,
		Template: string(msg.Template),
		Subject:  rendered.Subject,
		Body:     rendered.Body,
		QueuedAt: now,
	})
	if err != nil {
		return err
	}
	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: payload,
		Time:  now,
	}); err != nil {
		return fmt.Errorf("write email message: %w", err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
