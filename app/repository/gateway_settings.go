package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

var ErrGatewayNotConfigured = errors.New("gateway not configured for tenant")

type GatewaySettingsRepository struct {
	db DBTX
}

func NewGatewaySettingsRepository(db DBTX) *GatewaySettingsRepository {
	return &GatewaySettingsRepository{db: db}
}

func (r *GatewaySettingsRepository) FindByTenant(ctx context.Context, tenantID uint64) (*entity.GatewaySettings, error) {
	query := `
		SELECT id, tenant_id, provider, active,
			daraja_shortcode, daraja_passkey, daraja_consumer_key, daraja_consumer_secret,
			paystack_secret_key,
			created_at, updated_at
		FROM gateway_settings
		WHERE tenant_id = ? AND active = 1
		LIMIT 1
	`

	settings := &entity.GatewaySettings{}
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&settings.ID,
		&settings.TenantID,
		&settings.Provider,
		&settings.Active,
		&settings.DarajaShortcode,
		&settings.DarajaPasskey,
		&settings.DarajaConsumerKey,
		&settings.DarajaConsumerSecret,
		&settings.PaystackSecretKey,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrGatewayNotConfigured
	}
	if err != nil {
		return nil, err
	}

	return settings, nil
}
