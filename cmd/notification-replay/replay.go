package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/booking/internal/messaging/kafka"
)

// replayMessage — уведомление, готовое к повторной публикации.
type replayMessage struct {
	topic     string
	key       string
	value     []byte
	recipient string
}

// consumerDLQRecord пишет consumer уведомлений после исчерпания повторов.
type consumerDLQRecord struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

// outboxDLQRecord пишет outbox worker, когда брокер не принял уведомление.
type outboxDLQRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

type partitionStats struct {
	processed int
	replayed  int
	skipped   int
	filtered  int
}

func (s *partitionStats) add(other partitionStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
	s.filtered += other.filtered
}

func runReplay(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, producer replayProducer) error {
	if client == nil || consumer == nil {
		return fmt.Errorf("kafka client and consumer are required")
	}
	if cfg.execute && producer == nil {
		return fmt.Errorf("producer is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var total partitionStats
	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}

		stats, err := processPartition(ctx, consumer, client, producer, cfg, partition, cfg.limit-total.processed)
		if err != nil {
			return err
		}
		total.add(stats)
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}

	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
		"filtered":  total.filtered,
	}).Info("notification replay finished")

	return nil
}

func processPartition(
	ctx context.Context,
	consumer partitionConsumerSource,
	client offsetClient,
	producer replayProducer,
	cfg config,
	partition int32,
	limit int,
) (partitionStats, error) {
	var stats partitionStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if cfg.fromNewest {
		startOffset = max(newest-int64(limit), oldest)
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case err := <-pc.Errors():
			if err != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return stats, nil
			}
			idleTimer.Reset(cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}
			stats.processed++

			fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}
			replay, ok, err := extractReplayMessage(msg, cfg.targetTopic)
			switch {
			case err != nil:
				stats.skipped++
				log.WithError(err).WithFields(fields).Warn("skip undecodable dlq message")
			case !ok:
				stats.skipped++
			case cfg.recipient != "" && replay.recipient != cfg.recipient:
				stats.filtered++
			case cfg.execute:
				if err := publishReplay(producer, replay); err != nil {
					return stats, fmt.Errorf("publish replay message: %w", err)
				}
				stats.replayed++
			default:
				fields["target_topic"] = replay.topic
				fields["recipient_id"] = replay.recipient
				log.WithFields(fields).Info("notification replay candidate")
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

func publishReplay(producer replayProducer, msg replayMessage) error {
	if producer == nil {
		return fmt.Errorf("producer is nil")
	}

	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Timestamp: time.Now().UTC(),
	})
	return err
}

// extractReplayMessage восстанавливает исходный конверт уведомления из записи DLQ.
// Возвращает ok=false для записей, которые не похожи ни на один формат DLQ.
func extractReplayMessage(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, bool, error) {
	var (
		topic = defaultTopic
		key   string
		value []byte
	)

	var consumerRecord consumerDLQRecord
	if err := json.Unmarshal(msg.Value, &consumerRecord); err == nil && consumerRecord.OriginalValue != "" {
		if t := strings.TrimSpace(consumerRecord.OriginalTopic); t != "" {
			topic = t
		}
		key = consumerRecord.OriginalKey
		value = []byte(consumerRecord.OriginalValue)
	} else {
		var envelope kafka.Envelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
			return replayMessage{}, false, nil
		}

		var record outboxDLQRecord
		if err := json.Unmarshal(envelope.Payload, &record); err != nil {
			return replayMessage{}, false, fmt.Errorf("decode outbox dlq record: %w", err)
		}
		if len(record.Payload) == 0 {
			return replayMessage{}, false, fmt.Errorf("outbox dlq record %s has no notification payload", envelope.ID)
		}

		replay := kafka.Envelope{
			ID:            firstNonEmpty(record.OutboxID, envelope.ID),
			AggregateType: firstNonEmpty(record.AggregateType, envelope.AggregateType),
			AggregateID:   firstNonEmpty(record.AggregateID, envelope.AggregateID),
			EventType:     kafka.EventType(firstNonEmpty(record.EventType, string(envelope.EventType))),
			Payload:       record.Payload,
			PublishedAt:   time.Now().UTC(),
		}
		encoded, err := json.Marshal(replay)
		if err != nil {
			return replayMessage{}, false, fmt.Errorf("encode replay envelope: %w", err)
		}
		value = encoded
	}

	notification, err := kafka.ParseNotification(&sarama.ConsumerMessage{Value: value})
	if err != nil {
		return replayMessage{}, false, err
	}
	if notification.RecipientID == "" {
		return replayMessage{}, false, fmt.Errorf("notification for reservation %s has no recipient", notification.ReservationID)
	}

	return replayMessage{
		topic:     topic,
		key:       firstNonEmpty(key, notification.RecipientID),
		value:     value,
		recipient: notification.RecipientID,
	}, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
