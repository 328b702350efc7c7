package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultProducerRetryMax = 5

// ProducerOptions задаёт необязательные параметры Kafka producer.
type ProducerOptions struct {
	Logger   *log.Entry
	RetryMax int
}

// ProducerOption настраивает Producer.
type ProducerOption func(*ProducerOptions)

// WithProducerLogger задаёт logger producer.
func WithProducerLogger(logger *log.Entry) ProducerOption {
	return func(opts *ProducerOptions) {
		opts.Logger = logger
	}
}

// WithProducerRetryMax задаёт число повторов отправки сообщения.
func WithProducerRetryMax(retryMax int) ProducerOption {
	return func(opts *ProducerOptions) {
		opts.RetryMax = retryMax
	}
}

// Producer публикует события заказов через синхронный Kafka producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer подключает идемпотентный sync producer к заданным брокерам.
func NewProducer(brokers []string, options ...ProducerOption) (*Producer, error) {
	opts := ProducerOptions{RetryMax: defaultProducerRetryMax}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = defaultProducerRetryMax
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = opts.RetryMax
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	// Идемпотентный producer требует не более одного in-flight запроса.
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{producer: producer, logger: logger}, nil
}

// Publish сериализует payload в JSON и отправляет его в topic под ключом key.
func (p *Producer) Publish(topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now().UTC(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("kafka send failed")
		return fmt.Errorf("send kafka message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("kafka message sent")

	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
