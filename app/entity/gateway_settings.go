package entity

import "time"

const (
	GatewayDaraja   int32 = 1
	GatewayPaystack int32 = 2
)

// GatewaySettings holds one tenant's payment gateway credentials. Loaded per
// request by tenant id so that credential edits in the admin panel take effect
// without a restart.
type GatewaySettings struct {
	ID       uint64
	TenantID uint64

	Provider int32
	Active   bool

	DarajaShortcode      string
	DarajaPasskey        string
	DarajaConsumerKey    string
	DarajaConsumerSecret string

	PaystackSecretKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}
