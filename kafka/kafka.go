package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"constserv/metrics"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// 전역 정규표현식 컴파일 (성능 최적화)
var topicSanitizeRegex = regexp.MustCompile("[^a-zA-Z0-9._-]")

// KafkaPublisher is a struct for publishing messages to Kafka.
type KafkaPublisher struct {
	client  *kgo.Client
	log     *zap.Logger
	timeout time.Duration
}

// NewKafkaPublisher creates a new Kafka publisher client.
func NewKafkaPublisher(brokers []string, log *zap.Logger) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{client: client, log: log, timeout: 5 * time.Second}, nil
}

// Publish sends a message to a Kafka topic and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(topic string, data map[string]interface{}) error {
	start := time.Now()
	sanitizedTopic := SanitizeTopic(topic)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data for Kafka: %w", err)
	}

	record := &kgo.Record{Topic: sanitizedTopic, Value: payload}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		status := "failed"
		if ctx.Err() != nil {
			status = "timeout"
		}
		metrics.RecordKafkaPublish(sanitizedTopic, status, time.Since(start).Seconds())
		p.log.Warn("Failed to produce message to Kafka", zap.String("topic", sanitizedTopic), zap.Error(err))
		return fmt.Errorf("failed to produce to %s: %w", sanitizedTopic, err)
	}

	metrics.RecordKafkaPublish(sanitizedTopic, "success", time.Since(start).Seconds())
	return nil
}

// Close flushes buffered records and closes the Kafka client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.log.Warn("Failed to flush Kafka client", zap.Error(err))
	}
	p.client.Close()
}

// SanitizeTopic prepares a topic name to be compliant with Kafka's naming rules.
func SanitizeTopic(topic string) string {
	topic = strings.TrimPrefix(topic, "/")
	topic = strings.ReplaceAll(topic, "/", ".")

	// Kafka topics can only contain letters, numbers, periods, underscores, and dashes.
	topic = topicSanitizeRegex.ReplaceAllString(topic, "")

	// Add a prefix to avoid potential conflicts with internal topics.
	if !strings.HasPrefix(topic, "cs.") {
		topic = "cs." + topic
	}

	return topic
}
