package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 预订状态。流转单向：PENDING 是唯一非终态，
// CONFIRMED / CANCELLED 进入后不再变化。
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Booking 一笔预订。TotalPrice 是下单时刻的价格快照乘以票数，
// 之后改价不回溯。预订从不删除，留作审计。
type Booking struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"index;not null" json:"userId"`
	EventID     uint64          `gorm:"index;not null" json:"eventId"`
	TicketCount int             `gorm:"not null" json:"ticketCount"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Status      Status          `gorm:"size:16;index;not null" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (Booking) TableName() string { return "bookings" }

// Terminal 报告预订是否已到终态。
func (b *Booking) Terminal() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCancelled
}
