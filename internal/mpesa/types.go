package mpesa

import "encoding/json"

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	// MaxAmount is the largest single STK push Daraja accepts, in shillings.
	MaxAmount = 250000

	transactionTypePayBill = "CustomerPayBillOnline"
)

// BaseURL maps an environment selector to the Daraja host.
func BaseURL(env string) string {
	if env == EnvProduction {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// PushRequest is the body of POST /mpesa/stkpush/v1/processrequest.
type PushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// NewPayBillRequest fills the fields that are fixed for a paybill STK push.
func NewPayBillRequest(shortcode, password, timestamp, phone string, amount int64, callbackURL, accountRef, desc string) PushRequest {
	return PushRequest{
		BusinessShortCode: shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionTypePayBill,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            shortcode,
		PhoneNumber:       phone,
		CallBackURL:       callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}
}

// PushResponse is the synchronous acknowledgment Daraja returns for a push.
type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"` // Daraja sends a quoted number
}
