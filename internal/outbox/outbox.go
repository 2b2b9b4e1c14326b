// Package outbox 实现事务性发件箱：出站消息和业务行在同一个本地事务
// 里落库，再由中继异步发到 broker。避免“先提交后发消息”在两步之间
// 崩溃时把 PENDING 预订悬死。
package outbox

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	StatusPending   = "PENDING"
	StatusPublished = "PUBLISHED"
)

// Message 一条待发或已发的出站消息。Key 是 broker 分区键。
type Message struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Topic       string `gorm:"size:64;not null"`
	Key         string `gorm:"size:64;not null"`
	Payload     []byte `gorm:"type:mediumblob;not null"`
	Status      string `gorm:"size:16;not null;default:PENDING;index"`
	CreatedAt   time.Time
	PublishedAt *time.Time
}

func (Message) TableName() string { return "outbox" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Message{})
}

// Enqueue 在调用方的事务 tx 里插入一条出站消息。必须和业务写同事务。
func (r *Repo) Enqueue(ctx context.Context, tx *gorm.DB, topic, key string, payload []byte) error {
	msg := &Message{Topic: topic, Key: key, Payload: payload, Status: StatusPending}
	if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrap(err, "enqueue outbox message")
	}
	return nil
}

// PendingBatch 取一批待发消息，按写入顺序。
func (r *Repo) PendingBatch(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "load pending outbox")
	}
	return msgs, nil
}

// MarkPublished 把已发出的消息标记完成。
func (r *Repo) MarkPublished(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": StatusPublished, "published_at": &now}).Error
	return errors.Wrap(err, "mark outbox published")
}
