// Package clients 封装对协作方服务的同步 HTTP 调用，
// 把传输层错误翻译成统一的错误码。
package clients

import (
	"context"
	"fmt"
	"net/http"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/httpclient"
)

// UserDirectory 用户目录协作方，只用来确认用户存在。
type UserDirectory interface {
	ValidateUser(ctx context.Context, userID uint64, authToken string) (bool, error)
}

type UserHTTPClient struct {
	http    *httpclient.Client
	baseURL string
}

func NewUserHTTPClient(http *httpclient.Client, baseURL string) *UserHTTPClient {
	return &UserHTTPClient{http: http, baseURL: baseURL}
}

func (c *UserHTTPClient) ValidateUser(ctx context.Context, userID uint64, authToken string) (bool, error) {
	url := fmt.Sprintf("%s/users/%d/validate", c.baseURL, userID)
	var valid bool
	err := c.http.DoJSON(ctx, http.MethodGet, url, authToken, &valid)
	if err != nil {
		if statusErr, ok := asStatus(err); ok && statusErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, apperr.Wrap(err, apperr.CodeDownstreamUnavailable, "user directory unreachable")
	}
	return valid, nil
}
