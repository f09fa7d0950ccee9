package transactions

import "time"

// Transaction statuses
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// PaymentIntent is one STK push as stored in the transactions DynamoDB table.
type PaymentIntent struct {
	CheckoutRequestID  string    `dynamodbav:"checkout_request_id" json:"checkoutRequestId"` // PK
	MerchantRequestID  string    `dynamodbav:"merchant_request_id" json:"merchantRequestId"`
	Amount             float64   `dynamodbav:"amount" json:"amount"`
	PhoneNumber        string    `dynamodbav:"phone_number" json:"phoneNumber"`
	HouseholdID        *string   `dynamodbav:"household_id,omitempty" json:"householdId"`
	Status             string    `dynamodbav:"status" json:"status"` // PENDING | COMPLETED | FAILED | CANCELLED
	ResultCode         *int      `dynamodbav:"result_code,omitempty" json:"resultCode,omitempty"`
	ResultDesc         string    `dynamodbav:"result_desc,omitempty" json:"resultDesc,omitempty"`
	MpesaReceiptNumber string    `dynamodbav:"mpesa_receipt_number,omitempty" json:"mpesaReceiptNumber,omitempty"`
	TransactionDate    string    `dynamodbav:"transaction_date,omitempty" json:"transactionDate,omitempty"` // YYYYMMDDHHmmss as sent by M-Pesa
	CreatedAt          time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// IsFinal reports whether the intent has left PENDING.
func (p PaymentIntent) IsFinal() bool {
	return p.Status != StatusPending
}
