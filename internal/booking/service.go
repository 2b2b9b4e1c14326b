package booking

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ticketblitz/internal/clients"
	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/metrics"
	"ticketblitz/internal/saga"
)

// Store 预订持久化端口，由 gorm 仓储实现。
type Store interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	CreateTx(tx *gorm.DB, b *Booking) error
	GetByID(ctx context.Context, id uint64) (*Booking, error)
}

// Enqueuer 在调用方事务里追加一条待发消息。
type Enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, topic, key string, payload []byte) error
}

// Service 预订编排。同步段负责校验和库存预留，之后只在本地事务里
// 落 PENDING 预订加 outbox 行，支付流程全部异步。
type Service struct {
	repo          Store
	outbox        Enqueuer
	users         clients.UserDirectory
	inventory     clients.Inventory
	customerEmail string
	log           zerolog.Logger
}

func NewService(
	repo Store,
	outboxRepo Enqueuer,
	users clients.UserDirectory,
	inventory clients.Inventory,
	customerEmail string,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:          repo,
		outbox:        outboxRepo,
		users:         users,
		inventory:     inventory,
		customerEmail: customerEmail,
		log:           log.With().Str("component", "booking").Logger(),
	}
}

// BookTicket 编排一次预订。预留成功前的任何失败都不留痕；
// 预留成功后预订和 BookingCreated 在同一事务里落库。
func (s *Service) BookTicket(ctx context.Context, userID, eventID uint64, ticketCount int, authToken string) (*Booking, error) {
	if userID == 0 || eventID == 0 {
		return nil, apperr.New(apperr.CodeValidation, "userId and eventId are required")
	}
	if ticketCount < 1 {
		return nil, apperr.Newf(apperr.CodeValidation, "ticketCount must be >= 1, got %d", ticketCount)
	}

	// 用户校验和事件读取互不依赖，并发发出后一起等
	var (
		userValid bool
		event     *clients.EventInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		valid, err := s.users.ValidateUser(gctx, userID, authToken)
		userValid = valid
		return err
	})
	g.Go(func() error {
		info, err := s.inventory.GetEvent(gctx, eventID, authToken)
		event = info
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !userValid {
		return nil, apperr.Newf(apperr.CodeInvalidUser, "user %d not found", userID)
	}

	reserved, err := s.inventory.Reserve(ctx, eventID, ticketCount, authToken)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, apperr.Newf(apperr.CodeInsufficientInventory, "event %d sold out", eventID)
	}

	// 价格快照：之后的改价不影响这笔预订
	total := event.Price.Mul(decimal.NewFromInt(int64(ticketCount)))

	b := &Booking{
		UserID:      userID,
		EventID:     eventID,
		TicketCount: ticketCount,
		TotalPrice:  total,
		Status:      StatusPending,
	}
	err = s.repo.Transact(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, b); err != nil {
			return err
		}
		payload, err := json.Marshal(saga.BookingCreated{
			BookingID: b.ID,
			UserID:    b.UserID,
			Amount:    b.TotalPrice,
			Email:     s.customerEmail,
			AuthToken: authToken,
		})
		if err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, saga.TopicBookingCreated, bookingKey(b.ID), payload)
	})
	if err != nil {
		// 预订没落库但库存已经扣掉，尽力当场回补；失败则留给人工,
		// 这一笔不会有支付流程来补偿它
		s.log.Error().Err(err).Uint64("event_id", eventID).Msg("persist booking failed, releasing reservation")
		if relErr := s.inventory.Release(ctx, eventID, ticketCount, authToken); relErr != nil {
			s.log.Error().Err(relErr).Uint64("event_id", eventID).Int("count", ticketCount).
				Msg("CRITICAL: failed to release reservation after persist failure")
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "persist booking")
	}

	metrics.BookingsCreated.Inc()
	s.log.Info().
		Uint64("booking_id", b.ID).
		Uint64("user_id", userID).
		Uint64("event_id", eventID).
		Str("total", total.String()).
		Msg("booking created, awaiting payment")
	return b, nil
}

// GetBooking 普通读。调用方通过轮询它观察 saga 的最终结果。
func (s *Service) GetBooking(ctx context.Context, id uint64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "booking %d not found", id)
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "get booking")
	}
	return b, nil
}

func bookingKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}
