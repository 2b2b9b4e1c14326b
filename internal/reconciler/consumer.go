package reconciler

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"ticketblitz/internal/pkg/mq"
	"ticketblitz/internal/saga"
)

// NewConsumer 订阅 payment.updated 并驱动对账。
func NewConsumer(brokers []string, groupID string, svc *Service, log zerolog.Logger) *mq.Consumer {
	handler := func(ctx context.Context, msg kafka.Message) error {
		var evt saga.PaymentUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Error().Err(err).
				Int64("offset", msg.Offset).
				Msg("unmarshal payment.updated failed, skipping")
			return nil
		}
		return svc.HandlePaymentUpdated(ctx, evt)
	}
	return mq.NewConsumer(brokers, saga.TopicPaymentUpdated, groupID, handler, log)
}
