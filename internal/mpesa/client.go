package mpesa

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	tokenPath = "/oauth/v1/generate"
	pushPath  = "/mpesa/stkpush/v1/processrequest"

	// refresh this long before Daraja says the token expires
	tokenExpiryMargin = 60 * time.Second
)

// Client talks to the Daraja API. It supplies access tokens (cached until
// shortly before expiry) and submits STK push requests.
type Client struct {
	http           *resty.Client
	consumerKey    string
	consumerSecret string
	nowFunc        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient returns a Client for baseURL. Every call is bounded by timeout.
func NewClient(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:           httpClient,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		nowFunc:        time.Now,
	}
}

// Token returns a bearer token, fetching a new one when the cached token is
// missing or about to expire.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	var (
		ok     tokenResponse
		failed map[string]any
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.consumerKey, c.consumerSecret).
		SetQueryParam("grant_type", "client_credentials").
		SetResult(&ok).
		SetError(&failed).
		Get(tokenPath)
	if err != nil {
		return "", &Error{Kind: ErrAuth, Err: err}
	}
	if resp.IsError() || ok.AccessToken == "" {
		return "", &Error{Kind: ErrAuth, StatusCode: resp.StatusCode(), Payload: failed}
	}

	ttl := 3599 * time.Second
	if secs, err := ok.ExpiresIn.Int64(); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = ok.AccessToken
	c.expiresAt = now.Add(ttl - tokenExpiryMargin)
	return c.token, nil
}

// invalidate drops the cached token so the next Token call refetches.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// StkPush submits the push. A response whose ResponseCode is not "0" is
// treated as a failure even on HTTP 200.
func (c *Client) StkPush(ctx context.Context, token string, req PushRequest) (*PushResponse, error) {
	var (
		ok     PushResponse
		failed map[string]any
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&ok).
		SetError(&failed).
		Post(pushPath)
	if err != nil {
		return nil, &Error{Kind: ErrRequest, Err: err}
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnauthorized {
			c.invalidate()
		}
		return nil, &Error{Kind: ErrRequest, StatusCode: resp.StatusCode(), Payload: failed}
	}
	if ok.ResponseCode != "0" || ok.CheckoutRequestID == "" {
		return nil, &Error{
			Kind:       ErrRequest,
			StatusCode: resp.StatusCode(),
			Payload: map[string]any{
				"MerchantRequestID":   ok.MerchantRequestID,
				"CheckoutRequestID":   ok.CheckoutRequestID,
				"ResponseCode":        ok.ResponseCode,
				"ResponseDescription": ok.ResponseDescription,
				"CustomerMessage":     ok.CustomerMessage,
			},
		}
	}
	return &ok, nil
}
