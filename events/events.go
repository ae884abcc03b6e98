package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	UserCreatedEventType = "users:create"
	UserDeletedEventType = "users:delete"
)

var failedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marquee_failed_events",
	Help: "The number of user events that could not be published",
}, []string{"event_type"})

type Config struct {
	Brokers  []string `envconfig:"KAFKA_BROKERS"`
	Topic    string   `envconfig:"KAFKA_TOPIC" default:"marquee-users"`
	ClientID string   `envconfig:"KAFKA_CLIENT_ID" default:"marquee"`
}

type UserEvent struct {
	Type    string    `json:"type"`
	Email   string    `json:"email"`
	Name    string    `json:"name,omitempty"`
	IsAdmin bool      `json:"isAdmin"`
	Time    time.Time `json:"time"`
}

// Notifier announces account lifecycle changes to other mflix services.
type Notifier interface {
	NotifyUserCreated(ctx context.Context, email, name string, isAdmin bool) error
	NotifyUserDeleted(ctx context.Context, email string) error
	Close() error
}

var _ Notifier = &KafkaNotifier{}

type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Entry
}

func NewKafkaNotifier(config *Config) (*KafkaNotifier, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = config.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create kafka producer")
	}
	return NewKafkaNotifierWithProducer(producer, config.Topic), nil
}

func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		logger:   log.WithFields(log.Fields{"component": "events", "topic": topic}),
	}
}

func (k *KafkaNotifier) NotifyUserCreated(ctx context.Context, email, name string, isAdmin bool) error {
	return k.send(&UserEvent{Type: UserCreatedEventType, Email: email, Name: name, IsAdmin: isAdmin, Time: time.Now().UTC()})
}

func (k *KafkaNotifier) NotifyUserDeleted(ctx context.Context, email string) error {
	return k.send(&UserEvent{Type: UserDeletedEventType, Email: email, Time: time.Now().UTC()})
}

func (k *KafkaNotifier) send(event *UserEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		failedEvents.WithLabelValues(event.Type).Inc()
		return errors.Wrap(err, "unable to encode event")
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.Email),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_type"), Value: []byte(event.Type)},
		},
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		failedEvents.WithLabelValues(event.Type).Inc()
		k.logger.WithError(err).WithField("event_type", event.Type).Error("unable to publish event")
		return errors.Wrapf(err, "unable to publish %s event", event.Type)
	}
	k.logger.WithFields(log.Fields{"event_type": event.Type, "partition": partition, "offset": offset}).Debug("event published")
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}

// NoopNotifier is used when no brokers are configured.
type NoopNotifier struct{}

var _ Notifier = NoopNotifier{}

func (NoopNotifier) NotifyUserCreated(ctx context.Context, email, name string, isAdmin bool) error {
	return nil
}

func (NoopNotifier) NotifyUserDeleted(ctx context.Context, email string) error { return nil }

func (NoopNotifier) Close() error { return nil }

// NewNotifier returns a kafka notifier, or a no-op one when config has no
// brokers.
func NewNotifier(config *Config) (Notifier, error) {
	if len(config.Brokers) == 0 {
		return NoopNotifier{}, nil
	}
	return NewKafkaNotifier(config)
}
