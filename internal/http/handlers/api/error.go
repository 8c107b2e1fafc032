package api

import (
	"errors"

	"github.com/teranga-pos/payments/internal/http/response"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

func respondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		requestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// mappedHandlerError maps a service sentinel to an API error response.
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "payment request invalid"},
	{target: service.ErrIdempotencyInFlight, code: response.CodeConflict, msg: "a payment with this idempotency key is still being created"},
	{target: service.ErrProviderNotConfigured, code: response.CodeBadRequest, msg: "payment provider not configured for this tenant"},
	{target: service.ErrProviderConfigInvalid, code: response.CodeBadRequest, msg: "payment provider configuration invalid"},
	{target: service.ErrDrawerNotOpen, code: response.CodeBadRequest, msg: "no open cash drawer session for this cashier"},
}

var paymentRefundErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, msg: "refund request invalid"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, msg: "payment not found"},
	{target: service.ErrRefundNotAllowed, code: response.CodeBadRequest, msg: "payment status does not allow a refund"},
	{target: service.ErrRefundExceedsAmount, code: response.CodeBadRequest, msg: "refund exceeds the refundable amount"},
	{target: service.ErrRefundManualRequired, code: response.CodeUnprocessable, msg: "provider cannot refund automatically, process the refund manually"},
	{target: service.ErrProviderNotConfigured, code: response.CodeBadRequest, msg: "payment provider not configured for this tenant"},
	{target: service.ErrProviderConfigInvalid, code: response.CodeBadRequest, msg: "payment provider configuration invalid"},
}

var drawerErrorRules = []mappedHandlerError{
	{target: service.ErrDrawerInvalid, code: response.CodeBadRequest, msg: "drawer request invalid"},
	{target: service.ErrDrawerAlreadyOpen, code: response.CodeConflict, msg: "this cashier already has an open drawer session"},
	{target: service.ErrDrawerNotOpen, code: response.CodeBadRequest, msg: "no open drawer session for this cashier"},
}
