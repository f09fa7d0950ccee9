package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
)

// writeError maps payment errors onto HTTP responses. The error is also
// attached to the gin context so the request log carries it.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *payments.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": map[string]string{ve.Field: ve.Message},
		})
	case errors.Is(err, payments.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, payments.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, payments.ErrUpstreamAuth):
		c.JSON(http.StatusInternalServerError, upstreamBody("mpesa_auth_failed", err))
	case errors.Is(err, payments.ErrUpstreamRequest):
		c.JSON(http.StatusInternalServerError, upstreamBody("stk_push_failed", err))
	case errors.Is(err, payments.ErrDuplicateKey):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "duplicate_transaction", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// upstreamBody passes the provider payload through for operators.
func upstreamBody(code string, err error) gin.H {
	body := gin.H{"error": code, "detail": err.Error()}
	var mErr *mpesa.Error
	if errors.As(err, &mErr) {
		if mErr.StatusCode != 0 {
			body["status_code"] = mErr.StatusCode
		}
		if mErr.Payload != nil {
			body["provider"] = mErr.Payload
		}
	}
	return body
}
