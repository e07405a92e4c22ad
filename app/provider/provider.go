package provider

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUpstreamAuth      = errors.New("upstream authentication failed")
	ErrUpstreamRejected  = errors.New("upstream rejected payment request")
	ErrMalformedCallback = errors.New("malformed provider callback")
)

const (
	OutcomeSuccess int32 = 1
	OutcomeFailure int32 = 2
	OutcomePending int32 = 3
)

type InitiateInput struct {
	Phone       string
	Amount      decimal.Decimal
	AccountRef  string
	Description string
}

type InitiateOutput struct {
	CheckoutRef     string
	CustomerMessage string
	CheckoutURL     *string
}

// ConfirmationEvent is the normalized outcome of a payment attempt, produced
// by either the callback or the status-query path. Raw provider payload
// shapes never leave this package.
type ConfirmationEvent struct {
	CheckoutRef string
	Outcome     int32

	ResultCode string
	ResultDesc string
	ReceiptID  *string

	Amount      decimal.Decimal
	PayerPhone  string
	CompletedAt time.Time
}

type Gateway interface {
	Code() int32
	Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error)
	ParseCallback(payload []byte, signature string) (*ConfirmationEvent, error)
	QueryStatus(ctx context.Context, checkoutRef string) (*ConfirmationEvent, error)
}
