package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/metrics"
	"ticketblitz/internal/pkg/rowlock"
)

// Store 事件行的持久化端口，由 gorm 仓储实现。
type Store interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uint64) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	Reserve(ctx context.Context, id uint64, count int) (bool, error)
	Release(ctx context.Context, id uint64, count int) (available, total int, err error)
}

// Service 库存账本。每行的串行化点是进程内行锁管理器：
// 先限时拿行锁，再进数据库临界区，锁内不做任何网络调用。
type Service struct {
	repo     Store
	cache    Cache
	locks    *rowlock.Manager
	lockWait time.Duration
	log      zerolog.Logger
}

func NewService(repo Store, cache Cache, locks *rowlock.Manager, lockWait time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		locks:    locks,
		lockWait: lockWait,
		log:      log.With().Str("component", "inventory").Logger(),
	}
}

// Reserve 扣减余票。返回 false 表示售罄（业务结果）；锁等待超时返回
// LOCK_TIMEOUT（可重试故障），两者严格区分。
func (s *Service) Reserve(ctx context.Context, eventID uint64, count int) (bool, error) {
	if count < 1 {
		return false, apperr.Newf(apperr.CodeValidation, "ticket count must be >= 1, got %d", count)
	}

	start := time.Now()
	if err := s.locks.Acquire(ctx, eventID, s.lockWait); err != nil {
		if errors.Is(err, rowlock.ErrTimeout) {
			metrics.ReservationAttempts.WithLabelValues("lock_timeout").Inc()
			return false, apperr.Wrap(err, apperr.CodeLockTimeout, "inventory row contended")
		}
		return false, err
	}
	defer s.locks.Release(eventID)

	reserved, err := s.repo.Reserve(ctx, eventID, count)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.Newf(apperr.CodeNotFound, "event %d not found", eventID)
		}
		metrics.ReservationAttempts.WithLabelValues("error").Inc()
		return false, apperr.Wrap(err, apperr.CodeInternal, "reserve tickets")
	}
	metrics.ReserveLatency.Observe(time.Since(start).Seconds())

	if !reserved {
		metrics.ReservationAttempts.WithLabelValues("sold_out").Inc()
		s.log.Info().Uint64("event_id", eventID).Int("count", count).Msg("reservation rejected, sold out")
		return false, nil
	}

	s.cache.Evict(ctx, eventID)
	metrics.ReservationAttempts.WithLabelValues("reserved").Inc()
	s.log.Info().Uint64("event_id", eventID).Int("count", count).Msg("tickets reserved")
	return true, nil
}

// Release 补偿性回补余票。不夹断到 total：对账消息可能比预订先到达的
// 极端情况下宁可多记，也不丢补偿；超出时记日志供人工核对。
func (s *Service) Release(ctx context.Context, eventID uint64, count int) error {
	if count < 1 {
		return apperr.Newf(apperr.CodeValidation, "ticket count must be >= 1, got %d", count)
	}

	if err := s.locks.Acquire(ctx, eventID, s.lockWait); err != nil {
		if errors.Is(err, rowlock.ErrTimeout) {
			return apperr.Wrap(err, apperr.CodeLockTimeout, "inventory row contended")
		}
		return err
	}
	defer s.locks.Release(eventID)

	available, total, err := s.repo.Release(ctx, eventID, count)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "event %d not found", eventID)
		}
		return apperr.Wrap(err, apperr.CodeInternal, "release tickets")
	}

	s.cache.Evict(ctx, eventID)
	metrics.ReleaseTotal.Inc()
	if available > total {
		s.log.Warn().
			Uint64("event_id", eventID).
			Int("available", available).
			Int("total", total).
			Msg("release pushed availability above total")
	}
	s.log.Info().Uint64("event_id", eventID).Int("count", count).Msg("tickets released")
	return nil
}

// GetByID 走缓存的读路径。
func (s *Service) GetByID(ctx context.Context, eventID uint64) (*Event, error) {
	if e, ok := s.cache.Get(ctx, eventID); ok {
		return e, nil
	}
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "event %d not found", eventID)
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "get event")
	}
	s.cache.Set(ctx, e)
	return e, nil
}

// Create 管理侧建档，余票初始等于总票数。
func (s *Service) Create(ctx context.Context, e *Event) error {
	if e.TotalTickets < 0 || e.Price.IsNegative() || e.Title == "" {
		return apperr.New(apperr.CodeValidation, "title, non-negative price and totalTickets required")
	}
	e.AvailableTickets = e.TotalTickets
	if err := s.repo.Create(ctx, e); err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "create event")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "list events")
	}
	return out, nil
}
