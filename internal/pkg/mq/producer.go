package mq

import (
	"context"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// NewWriter 创建一个指定 topic 的 writer。按消息 key 做 hash 分区，
// 同一个 bookingId 的消息落在同一分区，保证单个 booking 内有序。
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Produce 发送一条带链路上下文的消息。
func Produce(ctx context.Context, writer *kafka.Writer, key, value []byte) error {
	msg := kafka.Message{Key: key, Value: value}
	InjectTraceContext(ctx, &msg.Headers)
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "produce to %s", writer.Topic)
	}
	return nil
}
