package mq

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// TopicProducer 按 topic 复用 writer 的生产者，是 outbox 中继的
// broker 出口。
type TopicProducer struct {
	brokers []string
	writers map[string]*kafka.Writer
}

func NewTopicProducer(brokers []string, topics ...string) *TopicProducer {
	writers := make(map[string]*kafka.Writer, len(topics))
	for _, t := range topics {
		writers[t] = NewWriter(brokers, t)
	}
	return &TopicProducer{brokers: brokers, writers: writers}
}

func (p *TopicProducer) Produce(ctx context.Context, topic, key string, payload []byte) error {
	w, ok := p.writers[topic]
	if !ok {
		return errors.Errorf("no writer for topic %s", topic)
	}
	return Produce(ctx, w, []byte(key), payload)
}

func (p *TopicProducer) Close() error {
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
