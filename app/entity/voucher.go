package entity

import "time"

const (
	VoucherStatusAvailable int32 = 1
	VoucherStatusAssigned  int32 = 10
	VoucherStatusExpired   int32 = 20
)

// Voucher is a pre-provisioned hotspot access credential. A nil RouterID
// means the voucher is valid on any router of the tenant (wildcard scope).
type Voucher struct {
	ID uint64

	Code     string
	Username string
	Password string

	TenantID  uint64
	PackageID uint64
	RouterID  *uint64

	Status        int32
	ClaimToken    *string
	AssignedPhone *string
	AssignedAt    *time.Time

	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
