package payment

import "encoding/json"

// Izipay web service answer statuses
const (
	izipayStatusSuccess = "SUCCESS"
)

// Izipay order statuses of a V4/Payment answer
const (
	izipayOrderStatusPaid          = "PAID"
	izipayOrderStatusUnpaid        = "UNPAID"
	izipayOrderStatusRunning       = "RUNNING"
	izipayOrderStatusPartiallyPaid = "PARTIALLY_PAID"
	izipayOrderStatusAbandoned     = "ABANDONED"
)

// Signature parameters posted with kr-answer
const (
	izipayHashAlgorithm   = "sha256_hmac"
	izipayHashKeyPassword = "password"
	izipayHashKeyHMAC     = "sha256_hmac"
	izipayAnswerType      = "V4/Payment"
)

// izipayCreatePaymentRequest is the body of Charge/CreatePayment
type izipayCreatePaymentRequest struct {
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	OrderID      string            `json:"orderId"`
	Customer     izipayCustomer    `json:"customer"`
	IPNTargetURL string            `json:"ipnTargetUrl,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type izipayCustomer struct {
	Email          string               `json:"email"`
	Reference      string               `json:"reference,omitempty"`
	BillingDetails izipayBillingDetails `json:"billingDetails"`
}

type izipayBillingDetails struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// izipayResponse is the envelope of every REST V4 answer
type izipayResponse struct {
	WebService string          `json:"webService"`
	Version    string          `json:"version"`
	Status     string          `json:"status"`
	Mode       string          `json:"mode"`
	Answer     json.RawMessage `json:"answer"`
}

type izipayFormTokenAnswer struct {
	FormToken string `json:"formToken"`
}

type izipayErrorAnswer struct {
	ErrorCode            string `json:"errorCode"`
	ErrorMessage         string `json:"errorMessage"`
	DetailedErrorCode    string `json:"detailedErrorCode"`
	DetailedErrorMessage string `json:"detailedErrorMessage"`
}

// izipayPayment is the V4/Payment object carried by kr-answer
type izipayPayment struct {
	ShopID       string              `json:"shopId"`
	OrderCycle   string              `json:"orderCycle"`
	OrderStatus  string              `json:"orderStatus"`
	ServerDate   string              `json:"serverDate"`
	OrderDetails izipayOrderDetails  `json:"orderDetails"`
	Transactions []izipayTransaction `json:"transactions"`
	Type         string              `json:"_type"`
}

type izipayOrderDetails struct {
	OrderTotalAmount int64  `json:"orderTotalAmount"`
	OrderCurrency    string `json:"orderCurrency"`
	Mode             string `json:"mode"`
	OrderID          string `json:"orderId"`
}

type izipayTransaction struct {
	UUID              string `json:"uuid"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	PaymentMethodType string `json:"paymentMethodType"`
	Status            string `json:"status"`
	DetailedStatus    string `json:"detailedStatus"`
	CreationDate      string `json:"creationDate"`
}
