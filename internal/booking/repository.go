package booking

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Booking{})
}

// Transact 在一个本地事务里执行 fn。预订行和 outbox 行的原子写、
// 对账时的读改写都走这里。
func (r *Repo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *Repo) CreateTx(tx *gorm.DB, b *Booking) error {
	if err := tx.Create(b).Error; err != nil {
		return errors.Wrap(err, "create booking")
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Booking, error) {
	var b Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetForUpdateTx 持锁读，供对账路径在事务里做终态短路判断。
func (r *Repo) GetForUpdateTx(tx *gorm.DB, id uint64) (*Booking, error) {
	var b Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) UpdateStatusTx(tx *gorm.DB, id uint64, to Status) error {
	err := tx.Model(&Booking{}).Where("id = ?", id).Update("status", to).Error
	return errors.Wrap(err, "update booking status")
}
