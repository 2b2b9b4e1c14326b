package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ChargeRequest 一次扣款请求。金额是主单位（元/铢），渠道内部换算。
type ChargeRequest struct {
	BookingID uint64
	UserID    uint64
	Amount    decimal.Decimal
}

// ChargeResult 渠道返回的结果。Paid=false 是正常的拒付，
// 渠道异常走 error 返回。
type ChargeResult struct {
	TransactionID  string
	Paid           bool
	FailureCode    string
	FailureMessage string
}

// ChargeProcessor 外部支付渠道的抽象。对 saga 来说它是黑盒：
// 成功、拒付、异常三种结果。
type ChargeProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// OmiseProcessor 走 Omise 测试环境的实现，固定用测试卡。
type OmiseProcessor struct {
	client   *omise.Client
	currency string
}

func NewOmiseProcessor(publicKey, secretKey, currency string) (*OmiseProcessor, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, errors.Wrap(err, "init omise client")
	}
	client.SetDebug(false)
	return &OmiseProcessor{client: client, currency: currency}, nil
}

func (p *OmiseProcessor) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	// Omise 金额用最小货币单位
	minor := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	token := &omise.Token{}
	err := p.client.Do(token, &operations.CreateToken{
		Name:            "TICKETBLITZ TEST",
		Number:          "4242424242424242",
		ExpirationMonth: time.December,
		ExpirationYear:  time.Now().Year() + 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create card token")
	}

	charge := &omise.Charge{}
	err = p.client.Do(charge, &operations.CreateCharge{
		Amount:      minor,
		Currency:    p.currency,
		Card:        token.ID,
		Description: fmt.Sprintf("ticketblitz booking %d", req.BookingID),
		Metadata: map[string]any{
			"booking_id": req.BookingID,
			"user_id":    req.UserID,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create charge")
	}

	result := &ChargeResult{
		TransactionID: charge.ID,
		Paid:          string(charge.Status) == "successful",
	}
	if charge.FailureCode != nil {
		result.FailureCode = *charge.FailureCode
	}
	if charge.FailureMessage != nil {
		result.FailureMessage = *charge.FailureMessage
	}
	return result, nil
}
