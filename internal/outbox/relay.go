package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ticketblitz/internal/pkg/metrics"
)

// Producer 把一条消息发往指定 topic。生产实现走 kafka writer。
type Producer interface {
	Produce(ctx context.Context, topic, key string, payload []byte) error
}

// Source 中继读取待发批次和回写发布状态的端口。
type Source interface {
	PendingBatch(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []uint64) error
}

// Relay 轮询 outbox 表，把 PENDING 消息发往 broker 后标记 PUBLISHED。
// 发送成功但标记失败会导致重复投递，这正是 at-least-once 的预期行为，
// 消费端自行去重。
type Relay struct {
	repo      Source
	producer  Producer
	interval  time.Duration
	batchSize int
	log       zerolog.Logger

	wg sync.WaitGroup
}

func NewRelay(repo Source, producer Producer, interval time.Duration, batchSize int, log zerolog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		repo:      repo,
		producer:  producer,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "outbox-relay").Logger(),
	}
}

// Start 启动中继循环，ctx 取消后退出。
func (r *Relay) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.log.Info().Msg("outbox relay started")
		for {
			select {
			case <-ctx.Done():
				r.log.Info().Msg("outbox relay stopped")
				return
			case <-ticker.C:
				if err := r.Drain(ctx); err != nil && ctx.Err() == nil {
					r.log.Error().Err(err).Msg("relay pass failed")
				}
			}
		}
	}()
}

// Drain 执行一轮中继：逐条发送并标记。单条失败即中断本轮，
// 下一轮从失败处继续，保持表内顺序。
func (r *Relay) Drain(ctx context.Context) error {
	msgs, err := r.repo.PendingBatch(ctx, r.batchSize)
	if err != nil {
		return err
	}

	published := make([]uint64, 0, len(msgs))
	for _, m := range msgs {
		if err := r.producer.Produce(ctx, m.Topic, m.Key, m.Payload); err != nil {
			if markErr := r.repo.MarkPublished(ctx, published); markErr != nil {
				r.log.Error().Err(markErr).Msg("mark published failed")
			}
			return err
		}
		metrics.OutboxPublished.WithLabelValues(m.Topic).Inc()
		published = append(published, m.ID)
	}
	return r.repo.MarkPublished(ctx, published)
}

// Stop 等待中继循环退出。调用前需先取消传给 Start 的 ctx。
func (r *Relay) Stop() {
	r.wg.Wait()
}
