// Package saga 定义跨服务的事件契约。消息体里带上金额和透传 token，
// 消费方不需要回调 orchestrator 再查一次。
package saga

import "github.com/shopspring/decimal"

const (
	// TopicBookingCreated 订单落库后由 outbox 中继发布，payment 消费
	TopicBookingCreated = "booking.created"
	// TopicPaymentUpdated 支付结果落库后发布，reconciler 消费
	TopicPaymentUpdated = "payment.updated"
)

const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// BookingCreated 预订已持久化为 PENDING，等待扣款。
type BookingCreated struct {
	BookingID uint64          `json:"bookingId"`
	UserID    uint64          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Email     string          `json:"email"`
	AuthToken string          `json:"authToken"`
}

// PaymentUpdated 支付有了终态结果，booking 状态待对账。
type PaymentUpdated struct {
	BookingID     uint64 `json:"bookingId"`
	UserID        uint64 `json:"userId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	AuthToken     string `json:"authToken"`
}
