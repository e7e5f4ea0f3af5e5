package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/domain"
	"github.com/vladislavdragonenkov/booking/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/booking/internal/service/notification"
)

// notificationTransport — куда outbox worker публикует уведомления.
type notificationTransport struct {
	publisher    domain.OutboxPublisher
	dlqPublisher domain.OutboxPublisher
	producer     *kafka.Producer
	consumer     *kafka.Consumer
}

// initNotificationTransport подключает Kafka, если заданы брокеры.
// Без Kafka или при ошибке подключения уведомления доставляются прямо во inbox.
func initNotificationTransport(cfg Config, inbox *notification.Inbox, logger *log.Entry) *notificationTransport {
	fallback := &notificationTransport{publisher: inbox}
	if !cfg.KafkaEnabled() {
		return fallback
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:  cfg.KafkaBrokers,
		ClientID: "booking-service",
	}, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return fallback
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

	transport := &notificationTransport{
		publisher:    kafka.NewOutboxPublisher(producer, cfg.NotificationTopic),
		dlqPublisher: kafka.NewOutboxPublisher(producer, cfg.DLQTopic),
		producer:     producer,
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaConsumerGroup,
		Topics:   []string{cfg.NotificationTopic},
		DLQTopic: cfg.DLQTopic,
	}, kafka.NewNotificationHandler(inbox.Deliver), producer, logger.WithField("component", "kafka-consumer"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, notifications will not reach the inbox")
		return transport
	}
	transport.consumer = consumer
	return transport
}

func (t *notificationTransport) start(ctx context.Context, logger *log.Entry) {
	if t == nil || t.consumer == nil {
		return
	}
	if err := t.consumer.Start(ctx); err != nil {
		logger.WithError(err).Warn("failed to start kafka consumer")
	}
}

// close останавливает consumer и закрывает producer.
func (t *notificationTransport) close(logger *log.Entry) {
	if t == nil {
		return
	}
	if t.consumer != nil {
		if err := t.consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop kafka consumer")
		}
	}
	closeKafkaProducer(t.producer, logger)
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
