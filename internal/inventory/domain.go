package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event 库存账本里的一行：一场演出的票务余量。
// AvailableTickets 只会被持锁的 reserve/release 修改。
type Event struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	TotalTickets     int             `gorm:"not null" json:"totalTickets"`
	AvailableTickets int             `gorm:"not null" json:"availableTickets"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Event) TableName() string { return "events" }
