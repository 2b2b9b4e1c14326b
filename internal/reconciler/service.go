// Package reconciler 消费支付结果，把预订推进到终态，失败时对库存
// 做补偿性释放。它是 saga 的收口：预订状态只在这里被修改。
package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketblitz/internal/booking"
	"ticketblitz/internal/clients"
	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/metrics"
	"ticketblitz/internal/saga"
)

// BookingStore 预订状态机需要的持久化操作子集。
type BookingStore interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetForUpdateTx(tx *gorm.DB, id uint64) (*booking.Booking, error)
	UpdateStatusTx(tx *gorm.DB, id uint64, status booking.Status) error
}

type Service struct {
	bookings       BookingStore
	inventory      clients.Inventory
	releaseRetries int
	releaseBackoff time.Duration
	log            zerolog.Logger
}

func NewService(
	bookings BookingStore,
	inventory clients.Inventory,
	releaseRetries int,
	releaseBackoff time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		bookings:       bookings,
		inventory:      inventory,
		releaseRetries: releaseRetries,
		releaseBackoff: releaseBackoff,
		log:            log.With().Str("component", "reconciler").Logger(),
	}
}

// HandlePaymentUpdated 对一条支付结果做对账。状态写在一个本地事务里，
// 终态短路保证重复投递不产生第二次变更、也不触发第二次补偿。
func (s *Service) HandlePaymentUpdated(ctx context.Context, evt saga.PaymentUpdated) error {
	logger := s.log.With().Uint64("booking_id", evt.BookingID).Str("status", evt.Status).Logger()

	var (
		b         *booking.Booking
		cancelled bool
	)
	err := s.bookings.Transact(ctx, func(tx *gorm.DB) error {
		var err error
		b, err = s.bookings.GetForUpdateTx(tx, evt.BookingID)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return nil
		}

		switch evt.Status {
		case saga.PaymentStatusSuccess:
			if err := s.bookings.UpdateStatusTx(tx, b.ID, booking.StatusConfirmed); err != nil {
				return err
			}
			metrics.BookingFinalized.WithLabelValues(string(booking.StatusConfirmed)).Inc()
			logger.Info().Msg("booking confirmed")
		case saga.PaymentStatusFailed:
			if err := s.bookings.UpdateStatusTx(tx, b.ID, booking.StatusCancelled); err != nil {
				return err
			}
			cancelled = true
			metrics.BookingFinalized.WithLabelValues(string(booking.StatusCancelled)).Inc()
			logger.Warn().Msg("payment failed, booking cancelled")
		default:
			logger.Error().Msg("unknown payment status, dropping message")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 消息先于预订可见性到达的缝隙：按原始行为丢弃不重试
			logger.Warn().Msg("booking not found for payment update, dropping")
			return nil
		}
		return apperr.Wrap(err, apperr.CodeInternal, "reconcile booking")
	}

	if cancelled {
		s.compensate(ctx, b, evt.AuthToken)
	}
	return nil
}

// compensate 回补库存。有界重试后仍失败只能记日志和指标，
// 不回传给消费层：预订已经 CANCELLED，重投整条消息会被终态短路，
// 不会再走到这里。
func (s *Service) compensate(ctx context.Context, b *booking.Booking, authToken string) {
	var err error
	for attempt := 1; attempt <= s.releaseRetries; attempt++ {
		err = s.inventory.Release(ctx, b.EventID, b.TicketCount, authToken)
		if err == nil {
			s.log.Info().
				Uint64("booking_id", b.ID).
				Uint64("event_id", b.EventID).
				Int("count", b.TicketCount).
				Msg("compensating release applied")
			return
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(s.releaseBackoff * time.Duration(attempt))
	}
	metrics.CompensationFailures.Inc()
	s.log.Error().Err(err).
		Uint64("booking_id", b.ID).
		Uint64("event_id", b.EventID).
		Int("count", b.TicketCount).
		Msg("CRITICAL: compensating release failed, inventory under-released")
}
