package payments

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
	"github.com/imrishuroy/abc-church-payments/internal/transactions"
	"github.com/rs/zerolog"
)

// CallbackPath is where Daraja delivers STK results.
const CallbackPath = "/api/mpesa/callback"

// TokenSource supplies Daraja bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Pusher submits STK push requests.
type Pusher interface {
	StkPush(ctx context.Context, token string, req mpesa.PushRequest) (*mpesa.PushResponse, error)
}

// CallbackURL joins the public base URL with CallbackPath and appends the
// shared secret as the "secret" query parameter.
func CallbackURL(base, secret string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + CallbackPath)
	if err != nil {
		return "", fmt.Errorf("parse callback base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("callback base url must be absolute http(s), got %q", base)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InitiatorConfig carries the paybill settings used to sign each push.
type InitiatorConfig struct {
	ShortCode        string
	Passkey          string
	CallbackURL      string // already carries ?secret=
	AccountReference string
	TransactionDesc  string
	Timeout          time.Duration
}

// InitiateInput is a validated push request from the client.
type InitiateInput struct {
	Phone       string
	Amount      float64
	HouseholdID *string
}

// Initiation is the outcome of a successful push: the stored PENDING intent
// and the raw provider acknowledgment.
type Initiation struct {
	Intent transactions.PaymentIntent
	Ack    mpesa.PushResponse
}

// Initiator sends STK pushes and records them as PENDING transactions.
type Initiator struct {
	cfg      InitiatorConfig
	tokens   TokenSource
	pusher   Pusher
	store    transactions.Store
	observer Observer
	nowFunc  func() time.Time
}

// NewInitiator wires an Initiator. observer may be nil.
func NewInitiator(cfg InitiatorConfig, tokens TokenSource, pusher Pusher, store transactions.Store, observer Observer) *Initiator {
	return &Initiator{
		cfg:      cfg,
		tokens:   tokens,
		pusher:   pusher,
		store:    store,
		observer: observer,
		nowFunc:  time.Now,
	}
}

// Initiate validates the input, pushes the payment prompt to the payer's phone
// and stores a PENDING intent keyed by the returned CheckoutRequestID. Nothing
// is stored when the push fails.
func (i *Initiator) Initiate(ctx context.Context, in InitiateInput) (*Initiation, error) {
	if strings.TrimSpace(in.Phone) == "" {
		return nil, invalid("phone", "phone is required")
	}
	phone, err := mpesa.NormalizePhone(in.Phone)
	if err != nil {
		return nil, invalid("phone", err.Error())
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, invalid("amount", "amount must be a positive number")
	}
	if in.Amount > mpesa.MaxAmount {
		return nil, invalid("amount", fmt.Sprintf("amount must be at most %d", mpesa.MaxAmount))
	}
	// M-Pesa only takes whole shillings
	amount := int64(math.Trunc(in.Amount))
	if amount < 1 {
		return nil, invalid("amount", "amount must be at least 1")
	}
	household := in.HouseholdID
	if household != nil && strings.TrimSpace(*household) == "" {
		household = nil
	}

	if i.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
	}
	log := zerolog.Ctx(ctx)

	token, err := i.tokens.Token(ctx)
	if err != nil {
		log.Error().Err(err).Msg("mpesa access token fetch failed")
		return nil, upstream(ErrUpstreamAuth, err)
	}

	now := i.nowFunc()
	ts := mpesa.Timestamp(now)
	req := mpesa.NewPayBillRequest(
		i.cfg.ShortCode,
		mpesa.Password(i.cfg.ShortCode, i.cfg.Passkey, ts),
		ts,
		phone,
		amount,
		i.cfg.CallbackURL,
		i.cfg.AccountReference,
		i.cfg.TransactionDesc,
	)

	ack, err := i.pusher.StkPush(ctx, token, req)
	if err != nil {
		log.Error().Err(err).Str("phone", phone).Int64("amount", amount).Msg("stk push failed")
		return nil, upstream(ErrUpstreamRequest, err)
	}

	intent := transactions.PaymentIntent{
		CheckoutRequestID: ack.CheckoutRequestID,
		MerchantRequestID: ack.MerchantRequestID,
		Amount:            float64(amount),
		PhoneNumber:       phone,
		HouseholdID:       household,
		Status:            transactions.StatusPending,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	// the push has already gone out, so a failed write here leaves a prompt
	// on the phone that no record will ever match
	if err := i.store.Create(ctx, intent); err != nil {
		log.Error().Err(err).Str("checkout_request_id", ack.CheckoutRequestID).Msg("failed to record pushed transaction")
		return nil, fmt.Errorf("record transaction %s: %w", ack.CheckoutRequestID, err)
	}

	if i.observer != nil {
		i.observer.Initiated(ctx, intent.Amount)
	}
	log.Info().
		Str("checkout_request_id", intent.CheckoutRequestID).
		Str("merchant_request_id", intent.MerchantRequestID).
		Int64("amount", amount).
		Msg("stk push accepted")

	return &Initiation{Intent: intent, Ack: *ack}, nil
}
