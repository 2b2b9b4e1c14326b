package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/breaker"
	"ticketblitz/internal/pkg/metrics"
	"ticketblitz/internal/saga"
)

// Store 支付记录持久化端口，由 gorm 仓储实现。
type Store interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	ExistsByBookingID(ctx context.Context, bookingID uint64) (bool, error)
	CreateTx(tx *gorm.DB, p *Payment) error
}

// Enqueuer 在调用方事务里追加一条待发消息。
type Enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, topic, key string, payload []byte) error
}

// Service 支付网关适配层。熔断器只包渠道调用本身，不包整个
// handler；落库和发消息永远执行。
type Service struct {
	repo      Store
	outbox    Enqueuer
	processor ChargeProcessor
	breaker   *breaker.Breaker
	log       zerolog.Logger
}

func NewService(repo Store, outboxRepo Enqueuer, processor ChargeProcessor, brk *breaker.Breaker, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		outbox:    outboxRepo,
		processor: processor,
		breaker:   brk,
		log:       log.With().Str("component", "payment").Logger(),
	}
}

// HandleBookingCreated 处理一条 BookingCreated。broker 是 at-least-once，
// 幂等靠 bookingId 唯一约束：已有支付记录直接确认返回。
// 返回 nil 表示消息可以提交；返回错误让消费层按失败处理。
func (s *Service) HandleBookingCreated(ctx context.Context, evt saga.BookingCreated) error {
	logger := s.log.With().Uint64("booking_id", evt.BookingID).Logger()

	exists, err := s.repo.ExistsByBookingID(ctx, evt.BookingID)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "idempotency check")
	}
	if exists {
		metrics.PaymentsProcessed.WithLabelValues("duplicate").Inc()
		logger.Warn().Msg("duplicate booking.created ignored")
		return nil
	}

	// 金额非法的消息是脏数据，不回执也不重试
	if !evt.Amount.IsPositive() {
		logger.Error().Str("amount", evt.Amount.String()).Msg("invalid amount, dropping message")
		return nil
	}

	status := saga.PaymentStatusFailed
	transactionID := ""
	var fallbackErr error

	var result *ChargeResult
	chargeErr := s.breaker.Execute(ctx, func(ctx context.Context) error {
		res, err := s.processor.Charge(ctx, ChargeRequest{
			BookingID: evt.BookingID,
			UserID:    evt.UserID,
			Amount:    evt.Amount,
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	metrics.BreakerState.Set(float64(s.breaker.State()))

	switch {
	case errors.Is(chargeErr, breaker.ErrOpen):
		// 熔断打开：不碰渠道，立刻记 FAILED 并发失败回执，
		// 同时向消费层报失败以触发基础设施级的退避
		transactionID = "CIRCUIT_OPEN_" + uuid.NewString()
		fallbackErr = apperr.New(apperr.CodeDownstreamUnavailable, "payment provider circuit open")
		metrics.PaymentsProcessed.WithLabelValues("fallback").Inc()
		logger.Warn().Msg("breaker open, recording failed payment without provider call")
	case chargeErr != nil:
		transactionID = "PROVIDER_ERROR_" + uuid.NewString()
		metrics.PaymentsProcessed.WithLabelValues("failed").Inc()
		logger.Error().Err(chargeErr).Msg("provider call failed")
	case result.Paid:
		status = saga.PaymentStatusSuccess
		transactionID = result.TransactionID
		metrics.PaymentsProcessed.WithLabelValues("success").Inc()
		logger.Info().Str("transaction_id", transactionID).Msg("charge succeeded")
	default:
		transactionID = result.TransactionID
		metrics.PaymentsProcessed.WithLabelValues("failed").Inc()
		logger.Warn().
			Str("transaction_id", transactionID).
			Str("failure_code", result.FailureCode).
			Msg("charge declined")
	}

	p := &Payment{
		BookingID:             evt.BookingID,
		UserID:                evt.UserID,
		Amount:                evt.Amount,
		Status:                status,
		ExternalTransactionID: transactionID,
	}
	err = s.repo.Transact(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, p); err != nil {
			return err
		}
		payload, err := json.Marshal(saga.PaymentUpdated{
			BookingID:     evt.BookingID,
			UserID:        evt.UserID,
			Status:        status,
			TransactionID: transactionID,
			AuthToken:     evt.AuthToken,
		})
		if err != nil {
			return err
		}
		key := strconv.FormatUint(evt.BookingID, 10)
		return s.outbox.Enqueue(ctx, tx, saga.TopicPaymentUpdated, key, payload)
	})
	if err != nil {
		if IsDuplicateKey(err) {
			// 并发的重复投递赢了插入竞争，当作幂等命中
			metrics.PaymentsProcessed.WithLabelValues("duplicate").Inc()
			logger.Warn().Msg("concurrent duplicate insert, treated as processed")
			return nil
		}
		return apperr.Wrap(err, apperr.CodeInternal, "persist payment")
	}

	return fallbackErr
}
