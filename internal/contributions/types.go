package contributions

import "time"

// SourceMpesa marks contributions booked from a completed M-Pesa payment.
const SourceMpesa = "mpesa"

// Contribution is one household contribution entry in the ledger table.
type Contribution struct {
	ContributionID string    `dynamodbav:"contribution_id" json:"contributionId"` // PK, checkout request id for M-Pesa
	HouseholdID    string    `dynamodbav:"household_id" json:"householdId"`
	Regular        float64   `dynamodbav:"regular" json:"regular"`
	Capital        float64   `dynamodbav:"capital" json:"capital"`
	ReceiptNumber  string    `dynamodbav:"receipt_number,omitempty" json:"receiptNumber,omitempty"`
	Date           string    `dynamodbav:"date" json:"date"` // YYYY-MM-DD
	PhoneNumber    string    `dynamodbav:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Source         string    `dynamodbav:"source" json:"source"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"`
}
