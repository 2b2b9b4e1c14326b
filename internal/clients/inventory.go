package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/ginutil"
	"ticketblitz/internal/pkg/httpclient"
)

// EventInfo 预订编排需要的事件元数据子集。
type EventInfo struct {
	ID               uint64          `json:"id"`
	Price            decimal.Decimal `json:"price"`
	AvailableTickets int             `json:"availableTickets"`
}

// Inventory 库存账本协作方：读、预留、补偿性释放。
type Inventory interface {
	GetEvent(ctx context.Context, eventID uint64, authToken string) (*EventInfo, error)
	Reserve(ctx context.Context, eventID uint64, count int, authToken string) (bool, error)
	Release(ctx context.Context, eventID uint64, count int, authToken string) error
}

type InventoryHTTPClient struct {
	http    *httpclient.Client
	baseURL string
}

func NewInventoryHTTPClient(http *httpclient.Client, baseURL string) *InventoryHTTPClient {
	return &InventoryHTTPClient{http: http, baseURL: baseURL}
}

func (c *InventoryHTTPClient) GetEvent(ctx context.Context, eventID uint64, authToken string) (*EventInfo, error) {
	url := fmt.Sprintf("%s/events/%d", c.baseURL, eventID)
	var info EventInfo
	if err := c.http.DoJSON(ctx, http.MethodGet, url, authToken, &info); err != nil {
		return nil, translate(err, "fetch event")
	}
	return &info, nil
}

func (c *InventoryHTTPClient) Reserve(ctx context.Context, eventID uint64, count int, authToken string) (bool, error) {
	url := fmt.Sprintf("%s/inventory/%d/reserve?count=%d", c.baseURL, eventID, count)
	var out struct {
		Reserved bool `json:"reserved"`
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, url, authToken, &out); err != nil {
		return false, translate(err, "reserve tickets")
	}
	return out.Reserved, nil
}

func (c *InventoryHTTPClient) Release(ctx context.Context, eventID uint64, count int, authToken string) error {
	url := fmt.Sprintf("%s/inventory/%d/release?count=%d", c.baseURL, eventID, count)
	if err := c.http.DoJSON(ctx, http.MethodPut, url, authToken, nil); err != nil {
		return translate(err, "release tickets")
	}
	return nil
}

// translate 把下游的错误包还原成带码错误。锁超时那类可重试故障
// 对编排方统一表现为 DOWNSTREAM_UNAVAILABLE。
func translate(err error, op string) error {
	statusErr, ok := asStatus(err)
	if !ok {
		return apperr.Wrap(err, apperr.CodeDownstreamUnavailable, op+": inventory unreachable")
	}

	var body ginutil.ErrorBody
	if jsonErr := json.Unmarshal(statusErr.Body, &body); jsonErr == nil && body.Code != "" {
		switch body.Code {
		case apperr.CodeNotFound:
			return apperr.New(apperr.CodeNotFound, body.Message)
		case apperr.CodeValidation:
			return apperr.New(apperr.CodeValidation, body.Message)
		case apperr.CodeLockTimeout, apperr.CodeDownstreamUnavailable:
			return apperr.New(apperr.CodeDownstreamUnavailable, body.Message)
		}
	}
	if statusErr.StatusCode == http.StatusNotFound {
		return apperr.New(apperr.CodeNotFound, op+": not found")
	}
	return apperr.Wrap(err, apperr.CodeDownstreamUnavailable, op+": inventory error")
}

func asStatus(err error) (*httpclient.StatusError, bool) {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
