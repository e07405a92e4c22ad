package repository

import (
	"context"
	"database/sql"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

type BillingPackageRepository struct {
	db DBTX
}

func NewBillingPackageRepository(db DBTX) *BillingPackageRepository {
	return &BillingPackageRepository{db: db}
}

func (r *BillingPackageRepository) FindByID(ctx context.Context, tenantID, packageID uint64) (*entity.BillingPackage, error) {
	query := `
		SELECT id, tenant_id, name, price, validity_hours, created_at, updated_at
		FROM packages
		WHERE id = ? AND tenant_id = ?
	`

	pkg := &entity.BillingPackage{}
	err := r.db.QueryRowContext(ctx, query, packageID, tenantID).Scan(
		&pkg.ID,
		&pkg.TenantID,
		&pkg.Name,
		&pkg.Price,
		&pkg.ValidityHours,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return pkg, nil
}
