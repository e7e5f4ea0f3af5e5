package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/booking/internal/messaging/kafka"
)

func TestExtractReplayMessage_ConsumerDLQPayload(t *testing.T) {
	replay, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: consumerDLQValue("alice")}, "fallback")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testTargetTopic, replay.topic)
	require.Equal(t, "alice", replay.key)
	require.Equal(t, "alice", replay.recipient)

	notification, err := kafka.ParseNotification(&sarama.ConsumerMessage{Value: replay.value})
	require.NoError(t, err)
	require.Equal(t, "r-1", notification.ReservationID)
}

func TestExtractReplayMessage_OutboxDLQPayload(t *testing.T) {
	value := []byte(`{
		"id":"dlq-1",
		"aggregate_type":"notification_dlq",
		"aggregate_id":"bob",
		"event_type":"notification.dlq",
		"payload":{
			"outbox_id":"evt-7",
			"aggregate_type":"notification",
			"aggregate_id":"bob",
			"event_type":"reservation.cancel",
			"payload":{"recipient_id":"bob","reservation_id":"r-7","action":"cancel"},
			"publish_error":"broker down"
		}
	}`)

	replay, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: value}, testTargetTopic)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testTargetTopic, replay.topic)
	require.Equal(t, "bob", replay.key)
	require.Equal(t, "bob", replay.recipient)

	var envelope kafka.Envelope
	require.NoError(t, json.Unmarshal(replay.value, &envelope))
	require.Equal(t, "evt-7", envelope.ID)
	require.Equal(t, kafka.EventType("reservation.cancel"), envelope.EventType)
	require.Equal(t, "notification", envelope.AggregateType)
}

func TestExtractReplayMessage_OutboxInvalidNestedPayload(t *testing.T) {
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"id":"x","payload":"not-an-object"}`)}, testTargetTopic)
	require.Error(t, err)
	require.False(t, ok)

	_, ok, err = extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"id":"x","payload":{"outbox_id":"evt-1"}}`)}, testTargetTopic)
	require.ErrorContains(t, err, "no notification payload")
	require.False(t, ok)
}

func TestExtractReplayMessage_RequiresRecipient(t *testing.T) {
	value := []byte(`{"original_topic":"booking.notifications","original_value":"{\"id\":\"evt-1\",\"payload\":{\"reservation_id\":\"r-1\"}}"}`)

	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: value}, testTargetTopic)
	require.ErrorContains(t, err, "has no recipient")
	require.False(t, ok)
}

func TestExtractReplayMessage_UnknownPayload(t *testing.T) {
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"foo":"bar"}`)}, testTargetTopic)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`not-json`)}, testTargetTopic)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	require.Empty(t, firstNonEmpty("", " "))
}

func TestPublishReplay(t *testing.T) {
	if err := publishReplay(nil, replayMessage{}); err == nil {
		t.Fatal("expected error for nil producer")
	}

	producer := &stubReplayProducer{}
	err := publishReplay(producer, replayMessage{topic: testTargetTopic, key: "alice", value: []byte(`{"x":1}`)})
	if err != nil {
		t.Fatalf("publishReplay failed: %v", err)
	}
	if producer.calls != 1 {
		t.Fatalf("unexpected producer calls: %d", producer.calls)
	}
	if producer.lastMsg == nil || producer.lastMsg.Topic != testTargetTopic {
		t.Fatalf("unexpected last message: %+v", producer.lastMsg)
	}

	producer.sendErr = errors.New("send failed")
	if err := publishReplay(producer, replayMessage{topic: testTargetTopic, key: "alice", value: []byte(`{"x":1}`)}); err == nil {
		t.Fatal("expected publishReplay error")
	}
}

func TestProcessPartition_DryRun(t *testing.T) {
	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 2}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: consumerDLQValue("alice")}}),
		},
	}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.processed != 1 || stats.replayed != 1 || stats.skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 0 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestProcessPartition_Execute(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: consumerDLQValue("alice")}}),
		},
	}
	producer := &stubReplayProducer{}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, execute: true, idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.replayed != 1 || producer.calls != 1 {
		t.Fatalf("expected one replayed message, got stats=%+v calls=%d", stats, producer.calls)
	}
	if string(producer.lastMsg.Key.(sarama.StringEncoder)) != "alice" {
		t.Fatalf("unexpected key: %v", producer.lastMsg.Key)
	}
}

func TestProcessPartition_RecipientFilter(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				{Partition: 0, Offset: 0, Value: consumerDLQValue("alice")},
				{Partition: 0, Offset: 1, Value: consumerDLQValue("bob")},
				{Partition: 0, Offset: 2, Value: consumerDLQValue("alice")},
			}),
		},
	}
	producer := &stubReplayProducer{}
	cfg := config{
		sourceTopic: testSourceTopic,
		targetTopic: testTargetTopic,
		recipient:   "bob",
		execute:     true,
		idleTimeout: 20 * time.Millisecond,
	}

	stats, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 10)
	require.NoError(t, err)
	require.Equal(t, partitionStats{processed: 3, replayed: 1, filtered: 2}, stats)
	require.Equal(t, 1, producer.calls)
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, execute: true, idleTimeout: 20 * time.Millisecond}

	clientOffsetErr := &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	if _, err := processPartition(context.Background(), &stubPartitionConsumerSource{}, clientOffsetErr, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumerErr := &stubPartitionConsumerSource{consumeErr: errors.New("consume")}
	if _, err := processPartition(context.Background(), consumerErr, client, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	close(pcWithErr.errors)
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}
	if _, err := processPartition(context.Background(), consumer, client, &stubReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected consumer error branch")
	}
	close(pcWithErr.messages)

	pcBadPayload := closedPartitionConsumer([]*sarama.ConsumerMessage{{
		Partition: 0,
		Offset:    0,
		Value:     []byte(`{"id":"x","payload":"not-an-object"}`),
	}})
	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcBadPayload}}
	stats, err := processPartition(context.Background(), consumer, client, &stubReplayProducer{}, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected bad-payload error: %v", err)
	}
	if stats.skipped != 1 {
		t.Fatalf("expected skipped=1, got %+v", stats)
	}

	pcOK := closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: consumerDLQValue("alice")}})
	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcOK}}
	producer := &stubReplayProducer{sendErr: errors.New("send fail")}
	if _, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 1); err == nil {
		t.Fatal("expected producer send error")
	}
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}

	idleConsumer := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idleConsumer}}
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, idleTimeout: 10 * time.Millisecond}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}
	close(idleConsumer.messages)
	close(idleConsumer.errors)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	canceledPC := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	canceledConsumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: canceledPC}}
	if _, err := processPartition(ctx, canceledConsumer, client, nil, cfg, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	close(canceledPC.messages)
	close(canceledPC.errors)
}

func TestRunReplay(t *testing.T) {
	cfg := config{sourceTopic: testSourceTopic, targetTopic: testTargetTopic, limit: 1, idleTimeout: 20 * time.Millisecond}

	if err := runReplay(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			2: {oldest: 0, newest: 2},
		},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: consumerDLQValue("alice")}}),
			2: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 2, Offset: 0, Value: consumerDLQValue("bob")}}),
		},
	}

	if err := runReplay(context.Background(), cfg, client, consumer, nil); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}
	if len(consumer.calls) != 1 {
		t.Fatalf("expected one partition due limit=1, got calls=%d", len(consumer.calls))
	}
	if consumer.calls[0].partition != 0 {
		t.Fatalf("expected first sorted partition=0, got %d", consumer.calls[0].partition)
	}

	executeCfg := cfg
	executeCfg.execute = true
	if err := runReplay(context.Background(), executeCfg, client, consumer, nil); err == nil {
		t.Fatal("expected execute mode to require producer")
	}

	emptyClient := &stubOffsetClient{partitions: nil}
	if err := runReplay(context.Background(), cfg, emptyClient, consumer, nil); err != nil {
		t.Fatalf("expected nil error for empty partitions, got %v", err)
	}
}
