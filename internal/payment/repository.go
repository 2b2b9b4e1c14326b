package payment

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Payment{})
}

func (r *Repo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *Repo) ExistsByBookingID(ctx context.Context, bookingID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Payment{}).
		Where("booking_id = ?", bookingID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count payments")
	}
	return count > 0, nil
}

func (r *Repo) CreateTx(tx *gorm.DB, p *Payment) error {
	if err := tx.Create(p).Error; err != nil {
		return errors.Wrap(err, "create payment")
	}
	return nil
}

// IsDuplicateKey 识别 bookingId 唯一约束冲突。两条同样的消息并发
// 通过了存在性检查时，数据库约束是最后一道幂等防线。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "1062")
}
