// Package eventbus mirrors committed game events onto Kafka for downstream
// consumers (analytics pipelines, audit tooling) that want to tail the
// stream rather than poll storage. It publishes the batches that
// internal/eventmirror hands it after a fan-out broadcast; turns taken by
// the background bot scheduler are not broadcast, so their events are not
// published and the topic is not a full copy of the Postgres event log. Adapted from
// internal/fraud/kafka_producer.go's KafkaAlertProducer — same sarama
// config shape, stats tracking, and sync/async split — repurposed from
// fraud alerts to table events.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"gametable/internal/fivehundred"
)

// PublisherConfig holds Kafka producer configuration.
type PublisherConfig struct {
	Brokers        []string
	Topic          string
	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	RequiredAcks   sarama.RequiredAcks
	AsyncMode      bool
}

// Publisher mirrors committed table events onto Kafka, keyed by table id so
// a single partition carries one table's events in commit order.
type Publisher struct {
	producer sarama.SyncProducer
	async    sarama.AsyncProducer
	topic    string
	mu       sync.RWMutex
	closed   bool
	stats    *PublisherStats
}

// PublisherStats tracks publish volume and recent failures.
type PublisherStats struct {
	EventsSent      int64
	EventsFailed    int64
	BytesSent       int64
	LastPublishedAt time.Time
	Errors          []PublishError
}

// PublishError records one failed publish attempt for observability.
type PublishError struct {
	Time    time.Time
	Error   error
	TableID string
}

// eventMessage is the wire shape published to Kafka: the table id plus the
// event's own envelope (see fivehundred.EncodeEvent).
type eventMessage struct {
	TableID  string                    `json:"table_id"`
	GameName string                    `json:"game_name"`
	Event    fivehundred.EventEnvelope `json:"event"`
}

// NewPublisher creates a Kafka-backed Publisher.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = config.MaxRetries
	saramaConfig.Producer.Retry.Backoff = config.RetryBackoff
	saramaConfig.Producer.Flush.Frequency = config.FlushFrequency
	saramaConfig.Producer.Flush.Messages = config.FlushMessages
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks

	if config.RequiredAcks == sarama.WaitForAll {
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Net.MaxOpenRequests = 1
	}

	var producer sarama.SyncProducer
	var async sarama.AsyncProducer
	var err error

	if config.AsyncMode {
		async, err = sarama.NewAsyncProducer(config.Brokers, saramaConfig)
		if err != nil {
			return nil, fmt.Errorf("create async kafka producer: %w", err)
		}
	} else {
		producer, err = sarama.NewSyncProducer(config.Brokers, saramaConfig)
		if err != nil {
			return nil, fmt.Errorf("create sync kafka producer: %w", err)
		}
	}

	p := &Publisher{producer: producer, async: async, topic: config.Topic, stats: &PublisherStats{}}
	if async != nil {
		go p.handleErrors()
	}
	return p, nil
}

func (p *Publisher) handleErrors() {
	for err := range p.async.Errors() {
		p.mu.Lock()
		p.stats.EventsFailed++
		p.stats.Errors = append(p.stats.Errors, PublishError{Time: time.Now(), Error: err})
		if len(p.stats.Errors) > 100 {
			p.stats.Errors = p.stats.Errors[len(p.stats.Errors)-100:]
		}
		p.mu.Unlock()
	}
}

// PublishBatch mirrors every event produced by one committed game action
// onto Kafka, in order, keyed by tableID.
func (p *Publisher) PublishBatch(ctx context.Context, tableID string, gameName fivehundred.GameName, events []fivehundred.Event) error {
	for _, e := range events {
		if err := p.publishOne(tableID, gameName, e); err != nil {
			return fmt.Errorf("publish event %d for table %s: %w", e.SeqNumber(), tableID, err)
		}
	}
	return nil
}

func (p *Publisher) publishOne(tableID string, gameName fivehundred.GameName, e fivehundred.Event) error {
	env, err := fivehundred.EncodeEvent(e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(eventMessage{TableID: tableID, GameName: string(gameName), Event: env})
	if err != nil {
		return fmt.Errorf("marshal event message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(tableID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(env.Type)},
			{Key: []byte("game_name"), Value: []byte(gameName)},
		},
		Timestamp: time.Now(),
	}

	if p.async != nil {
		p.async.Input() <- msg
		p.recordSent(len(data))
		return nil
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.recordFailed(tableID, err)
		return err
	}
	p.recordSent(len(data))
	return nil
}

func (p *Publisher) recordSent(bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.EventsSent++
	p.stats.BytesSent += int64(bytes)
	p.stats.LastPublishedAt = time.Now()
}

func (p *Publisher) recordFailed(tableID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.EventsFailed++
	p.stats.Errors = append(p.stats.Errors, PublishError{Time: time.Now(), Error: err, TableID: tableID})
}

// Stats returns a snapshot of publish volume and recent failures.
func (p *Publisher) Stats() PublisherStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.stats
}

// Close shuts the producer down gracefully.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.producer != nil {
		err = p.producer.Close()
	}
	if p.async != nil {
		if asyncErr := p.async.Close(); err == nil {
			err = asyncErr
		}
	}
	return err
}

// EnsureTopic creates the events topic if it doesn't already exist.
func EnsureTopic(brokers []string, topic string, partitions int32, replicationFactor int16) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_0_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	if err != nil {
		return fmt.Errorf("create cluster admin: %w", err)
	}
	defer admin.Close()

	err = admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}, false)
	if err != nil {
		if topicErr, ok := err.(*sarama.TopicError); ok && topicErr.Err == sarama.ErrTopicAlreadyExists {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
