package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedCallback is returned by ParseCallback for bodies without a
// usable stkCallback.
var ErrMalformedCallback = errors.New("malformed stk callback")

// CallbackEnvelope is the body Daraja posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback is the result of one push.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        json.Number       `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem values are json.Number for numbers and string otherwise.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// ParseCallback decodes a raw callback body, keeping numbers exact.
func ParseCallback(raw []byte) (*StkCallback, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env CallbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, 0, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	code, err := strconv.Atoi(cb.ResultCode.String())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ResultCode %q", ErrMalformedCallback, cb.ResultCode)
	}
	return &cb, code, nil
}

// lookup returns the named metadata value. ok is false when the item is absent.
func (cb *StkCallback) lookup(name string) (any, bool) {
	if cb.CallbackMetadata == nil {
		return nil, false
	}
	for _, it := range cb.CallbackMetadata.Item {
		if it.Name == name {
			return it.Value, it.Value != nil
		}
	}
	return nil, false
}

func (cb *StkCallback) metaString(name string) string {
	v, ok := cb.lookup(name)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func (cb *StkCallback) metaFloat(name string) (float64, bool) {
	v, ok := cb.lookup(name)
	if !ok {
		return 0, false
	}
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = val
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
