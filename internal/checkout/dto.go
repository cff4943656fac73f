package checkout

import (
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

// Fulfillment types accepted from callers.
const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

// Payment methods accepted from callers.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

const (
	CardCredit = "credit"
	CardDebit  = "debit"
)

// Redirect targets handed back to the storefront.
const (
	RedirectProfile = "/profile"
	RedirectCart    = "/cart"
	RedirectOrders  = "/orders"
)

const paymentWarning = "Order placed, but payment could not be recorded. Please contact support."

// PlaceOrderRequest is what the customer chose at checkout.
type PlaceOrderRequest struct {
	Type          string       `json:"type" validate:"required,oneof=pickup delivery"`
	PaymentMethod string       `json:"paymentMethod" validate:"required,oneof=cash card"`
	Card          *CardDetails `json:"card,omitempty"`
}

// CardDetails are collected for card orders. They are validated but never sent upstream.
type CardDetails struct {
	Number string `json:"cardNumber"`
	Name   string `json:"cardName"`
	Expiry string `json:"expiryDate"`
	CVV    string `json:"cvv"`
	Type   string `json:"cardType"`
}

// Result is the outcome of a placed order.
type Result struct {
	OrderID         string            `json:"orderId"`
	Order           livedatanow.Order `json:"order"`
	PaymentRecorded bool              `json:"paymentRecorded"`
	Warning         string            `json:"warning,omitempty"`
	Redirect        string            `json:"redirect"`
}
