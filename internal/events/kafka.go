package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func LoadKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:      envutil.CSV("KAFKA_BROKERS"),
		ClientID:     envutil.String("KAFKA_CLIENT_ID", "techwave-backend"),
		BatchTimeout: envutil.Duration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),
		WriteTimeout: envutil.Duration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
	}
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// messageWriter is the slice of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to its own topic keyed by the aggregate, so all
// events of one order land on one partition in order.
type KafkaPublisher struct {
	log        *logger.Logger
	writer     messageWriter
	clientID   string
	propagator propagation.TextMapPropagator
}

func NewKafkaPublisher(log *logger.Logger, cfg KafkaConfig) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka publisher: KAFKA_BROKERS is empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(log, w, cfg.ClientID), nil
}

func newKafkaPublisher(log *logger.Logger, w messageWriter, clientID string) *KafkaPublisher {
	return &KafkaPublisher{
		log:        log.With("publisher", "KafkaPublisher"),
		writer:     w,
		clientID:   clientID,
		propagator: otel.GetTextMapPropagator(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *commerce.OutboxEvent) error {
	msg := kafka.Message{
		Topic: ev.Topic,
		Key:   []byte(ev.Key),
		Value: []byte(ev.Payload),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID.String())},
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
		},
		Time: ev.CreatedAt,
	}
	if p.clientID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "producer", Value: []byte(p.clientID)})
	}
	p.propagator.Inject(ctx, HeaderCarrier{Headers: &msg.Headers})
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// HeaderCarrier adapts kafka message headers to the otel propagation API.
type HeaderCarrier struct {
	Headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = HeaderCarrier{}

func (c HeaderCarrier) Get(key string) string {
	for _, h := range *c.Headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if strings.EqualFold(h.Key, key) {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		out = append(out, h.Key)
	}
	return out
}
