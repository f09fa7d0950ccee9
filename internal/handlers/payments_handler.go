package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
	"github.com/imrishuroy/abc-church-payments/internal/transactions"
	"github.com/imrishuroy/abc-church-payments/internal/validation"
	"github.com/rs/zerolog"
)

// PaymentInitiator starts an STK push.
type PaymentInitiator interface {
	Initiate(ctx context.Context, in payments.InitiateInput) (*payments.Initiation, error)
}

// CallbackReconciler applies provider callbacks.
type CallbackReconciler interface {
	HandleCallback(ctx context.Context, raw []byte, querySecret string) (payments.Outcome, error)
}

// StatusReader answers polling clients.
type StatusReader interface {
	Query(ctx context.Context, checkoutRequestID string) (*payments.Status, error)
}

// TransactionLister backs the admin listing.
type TransactionLister interface {
	ListAll(ctx context.Context) ([]transactions.PaymentIntent, error)
}

// HandlerConfig groups dependencies for the payment routes.
type HandlerConfig struct {
	Initiator    PaymentInitiator
	Reconciler   CallbackReconciler
	Status       StatusReader
	Transactions TransactionLister
	// AdminAccounts guards the admin listing; the route is not registered
	// when empty.
	AdminAccounts gin.Accounts
	Validator     *validatorv10.Validate
}

// RegisterPaymentRoutes registers the M-Pesa routes on r.
func RegisterPaymentRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := cfg.Validator
	if v == nil {
		v = validation.New()
	}

	api := r.Group("/api/mpesa")
	api.POST("/stkpush", stkPush(cfg.Initiator, v))
	api.POST("/callback", callback(cfg.Reconciler))
	api.POST("/query", query(cfg.Status, v))

	if len(cfg.AdminAccounts) > 0 {
		admin := r.Group("/api/admin", gin.BasicAuth(cfg.AdminAccounts))
		admin.GET("/mpesa/transactions", listTransactions(cfg.Transactions))
	}
}

func stkPush(initiator PaymentInitiator, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.StkPushRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		res, err := initiator.Initiate(c.Request.Context(), payments.InitiateInput{
			Phone:       req.Phone,
			Amount:      req.Amount,
			HouseholdID: req.HouseholdID.Ptr(),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res.Ack)
	}
}

func callback(rec CallbackReconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw, err := c.GetRawData()
		if err != nil {
			writeError(c, err)
			return
		}

		outcome, err := rec.HandleCallback(ctx, raw, c.Query("secret"))
		if err != nil {
			if errors.Is(err, payments.ErrForbidden) {
				zerolog.Ctx(ctx).Warn().Str("client_ip", c.ClientIP()).Msg("mpesa callback rejected: secret mismatch")
			}
			writeError(c, err)
			return
		}
		zerolog.Ctx(ctx).Debug().Str("outcome", string(outcome)).Msg("mpesa callback acknowledged")
		c.JSON(http.StatusOK, gin.H{"result": "ok"})
	}
}

func query(status StatusReader, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.StatusQueryRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		st, err := status.Query(c.Request.Context(), req.CheckoutRequestID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func listTransactions(store TransactionLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := store.ListAll(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
