package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// CollectRequest asks the processor to pull funds from a customer's mobile
// wallet (STK-push style).
type CollectRequest struct {
	Reference   string // our payment reference; echoed back in the webhook
	Amount      decimal.Decimal
	Currency    string
	PhoneNumber string // canonical international form, e.g. +254712345678
	Country     string
	Provider    string // MPESA, MTN, ...
	Description string
	CallbackURL string
}

// CollectResponse is the processor's synchronous acknowledgement; the final
// outcome arrives later on the webhook.
type CollectResponse struct {
	ExternalReference string
	Status            string
	RedirectURL       string
	Instructions      string
}

// PayoutRequest pushes funds out to a withdrawal destination.
type PayoutRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Method      string // crypto, mobile_money, bank
	Destination string // phone, address or account per method
	Description string
	CallbackURL string
}

type PayoutResponse struct {
	ExternalReference string
	Status            string
	TransactionHash   string
}

// Provider is the external payment processor.
type Provider interface {
	Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error)
	Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error)
}
