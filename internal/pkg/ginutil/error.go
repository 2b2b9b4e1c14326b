package ginutil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketblitz/internal/pkg/apperr"
)

// ErrorBody 统一的错误响应包，客户端按 code 分流。
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// HTTPStatus 把错误码映射到状态码。锁竞争映射成 503，提示调用方重试。
func HTTPStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidUser:
		return http.StatusUnprocessableEntity
	case apperr.CodeInsufficientInventory:
		return http.StatusConflict
	case apperr.CodeLockTimeout, apperr.CodeDownstreamUnavailable:
		return http.StatusServiceUnavailable
	case apperr.CodePaymentDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error 按错误码写出响应。非 apperr 错误一律按 INTERNAL 处理，
// 不把内部细节漏给客户端。
func Error(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		c.JSON(HTTPStatus(e.Code), ErrorBody{Code: e.Code, Message: e.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorBody{Code: apperr.CodeInternal, Message: "internal error"})
}
