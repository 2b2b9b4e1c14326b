package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment 单笔预订的支付结果。BookingID 唯一约束是幂等的落点：
// 同一预订永远只会有一行，写成功后不再修改。
type Payment struct {
	ID                    uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID             uint64          `gorm:"uniqueIndex;not null" json:"bookingId"`
	UserID                uint64          `gorm:"index;not null" json:"userId"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status                string          `gorm:"size:16;not null" json:"status"`
	ExternalTransactionID string          `gorm:"size:128" json:"externalTransactionId"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func (Payment) TableName() string { return "payments" }
