package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client 是带链路追踪和调用方超时的 HTTP 客户端，服务间同步调用都走它。
type Client struct {
	tracer  trace.Tracer
	http    *http.Client
	timeout time.Duration
}

// StatusError 表示下游返回了非 2xx。Body 留给调用方解析错误包。
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned status %d", e.StatusCode)
}

// New 创建客户端。timeout 是单次请求的调用方超时，调用传入的 ctx
// 先到期则以 ctx 为准。
func New(tracer trace.Tracer, timeout time.Duration) *Client {
	return &Client{
		tracer: tracer,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		timeout: timeout,
	}
}

// DoJSON 发起一次 JSON 请求。out 为 nil 时丢弃响应体；authToken 非空时
// 透传到 Authorization 头。
func (c *Client) DoJSON(ctx context.Context, method, rawURL, authToken string, out any) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	spanName := fmt.Sprintf("call-%s", parsed.Host)
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}
	req.Header.Set("Accept", "application/json")

	span.SetAttributes(
		attribute.String("http.url", rawURL),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: body}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
