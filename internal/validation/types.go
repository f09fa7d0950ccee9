package validation

// StkPushRequest is the payload for POST /api/mpesa/stkpush
type StkPushRequest struct {
	Phone       string       `json:"phone" validate:"required,mpesa_phone"`      // local (07..) or 254.. form
	Amount      float64      `json:"amount" validate:"required,gt=0,lte=250000"` // whole shillings, fractions are dropped
	HouseholdID *HouseholdID `json:"householdId,omitempty"`                      // optional, string or number
}

// StatusQueryRequest is the payload for POST /api/mpesa/query
type StatusQueryRequest struct {
	CheckoutRequestID string `json:"checkoutRequestId" validate:"required"`
}
