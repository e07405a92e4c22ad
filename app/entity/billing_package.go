package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingPackage is the hotspot plan a customer purchases. Provisioning of
// packages is owned by the admin panel; this service only reads them.
type BillingPackage struct {
	ID       uint64
	TenantID uint64

	Name          string
	Price         decimal.Decimal
	ValidityHours int32

	CreatedAt time.Time
	UpdatedAt time.Time
}
