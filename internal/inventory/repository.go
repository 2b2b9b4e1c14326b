package inventory

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo 事件行的 gorm 仓储。reserve/release 的临界区在这里：
// 事务内 FOR UPDATE 读、内存判断、写回，同一个事务提交。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Event{})
}

func (r *Repo) Create(ctx context.Context, e *Event) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return errors.Wrap(err, "create event")
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Event, error) {
	var e Event
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) List(ctx context.Context) ([]Event, error) {
	var out []Event
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	return out, nil
}

// Reserve 在一个事务里锁行、校验余量、扣减。余量不足返回 (false, nil)，
// 这是正常业务结果而不是错误。
func (r *Repo) Reserve(ctx context.Context, id uint64, count int) (bool, error) {
	reserved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		if e.AvailableTickets < count {
			return nil
		}
		e.AvailableTickets -= count
		if err := tx.Save(&e).Error; err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

// Release 补偿路径，同样的锁规则，只做加法。返回加完后的余量和总量，
// 上层用来发现超出 total 的异常。
func (r *Repo) Release(ctx context.Context, id uint64, count int) (available, total int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		e.AvailableTickets += count
		if err := tx.Save(&e).Error; err != nil {
			return err
		}
		available, total = e.AvailableTickets, e.TotalTickets
		return nil
	})
	return available, total, err
}
