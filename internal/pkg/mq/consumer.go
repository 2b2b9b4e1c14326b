package mq

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler 处理一条消息。返回错误表示本条消息处理失败，消费循环会
// 原地退避重试；broker 语义是 at-least-once，handler 必须幂等。
type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer 监听单个 topic 并把消息交给 Handler 的长期任务。
type Consumer struct {
	reader      *kafka.Reader
	handler     Handler
	log         zerolog.Logger
	maxAttempts int
	backoff     time.Duration

	wg sync.WaitGroup
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:      reader,
		handler:     handler,
		log:         log.With().Str("topic", topic).Str("group", groupID).Logger(),
		maxAttempts: 5,
		backoff:     time.Second,
	}
}

// Start 启动消费循环。处理成功才提交 offset；失败的消息在本进程内
// 退避重试 maxAttempts 次，仍失败则跳过并记错误日志（没有死信队列，
// 依赖告警人工介入）。
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.log.Info().Msg("consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info().Msg("consumer shutting down")
					return
				}
				c.log.Error().Err(err).Msg("fetch message failed, retrying")
				time.Sleep(time.Second)
				continue
			}

			c.process(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Error().Err(err).Msg("commit offset failed")
			}
		}
	}()
}

func (c *Consumer) process(parentCtx context.Context, msg kafka.Message) {
	ctx := ExtractTraceContext(parentCtx, msg.Headers)

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, msg); err == nil {
			return
		}
		if parentCtx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).
			Int("attempt", attempt).
			Int64("offset", msg.Offset).
			Msg("handler failed")
		time.Sleep(c.backoff * time.Duration(attempt))
	}
	c.log.Error().Err(err).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("message dropped after retries exhausted")
}

// Stop 关闭 reader 并等待消费循环退出。
func (c *Consumer) Stop() error {
	err := c.reader.Close()
	c.wg.Wait()
	return err
}
