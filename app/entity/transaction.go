package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   int32 = 1
	TransactionStatusCompleted int32 = 10
	TransactionStatusFailed    int32 = 20
)

const (
	FulfillmentNone      int32 = 0
	FulfillmentFulfilled int32 = 10
	FulfillmentNoStock   int32 = 20
)

const (
	NotifyNone   int32 = 0
	NotifySent   int32 = 10
	NotifyFailed int32 = 20
)

// Transaction is one payment attempt, keyed by the gateway-issued checkout
// reference. Rows are never deleted; terminal status is written exactly once.
type Transaction struct {
	ID uint64

	CheckoutRef string
	Provider    int32

	TenantID  uint64
	PackageID uint64
	RouterID  *uint64

	Phone  string
	Amount decimal.Decimal

	Status     int32
	ResultCode *string
	ResultDesc *string
	ReceiptID  *string

	VoucherCode       *string
	FulfillmentStatus int32
	NotifyStatus      int32

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func TransactionTerminal(status int32) bool {
	return status == TransactionStatusCompleted || status == TransactionStatusFailed
}
