package payment

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"ticketblitz/internal/pkg/mq"
	"ticketblitz/internal/saga"
)

// NewConsumer 订阅 booking.created 并驱动支付处理。
// 反序列化失败的消息直接丢弃，重试它不会有不同结果。
func NewConsumer(brokers []string, groupID string, svc *Service, log zerolog.Logger) *mq.Consumer {
	handler := func(ctx context.Context, msg kafka.Message) error {
		var evt saga.BookingCreated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Error().Err(err).
				Int64("offset", msg.Offset).
				Msg("unmarshal booking.created failed, skipping")
			return nil
		}
		return svc.HandleBookingCreated(ctx, evt)
	}
	return mq.NewConsumer(brokers, saga.TopicBookingCreated, groupID, handler, log)
}
