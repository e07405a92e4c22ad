package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

var (
	ErrNoVoucherAvailable = errors.New("no voucher available")
	ErrVoucherNotFound    = errors.New("voucher not found")
)

type VoucherRepository struct {
	db DBTX
}

func NewVoucherRepository(db DBTX) *VoucherRepository {
	return &VoucherRepository{db: db}
}

const voucherColumns = `id, code, username, password, tenant_id, package_id, router_id,
		status, claim_token, assigned_phone, assigned_at,
		expires_at, created_at, updated_at`

// ClaimOne atomically assigns one available voucher for the package/tenant,
// preferring an exact router match over a wildcard row, oldest first. The
// claim is a single UPDATE stamping a fresh claim token, so two concurrent
// callers can never be handed the same row; the claimed voucher is then read
// back by its token.
func (r *VoucherRepository) ClaimOne(ctx context.Context, tenantID, packageID uint64, routerID *uint64, phone string, now time.Time) (*entity.Voucher, error) {
	claimToken := uuid.NewString()

	query := `
		UPDATE vouchers
		SET status = ?, claim_token = ?, assigned_phone = ?, assigned_at = ?, updated_at = ?
		WHERE status = ? AND tenant_id = ? AND package_id = ?
		  AND (router_id <=> ? OR router_id IS NULL)
		ORDER BY router_id IS NULL ASC, created_at ASC
		LIMIT 1
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.VoucherStatusAssigned,
		claimToken,
		phone,
		now,
		now,
		entity.VoucherStatusAvailable,
		tenantID,
		packageID,
		nullableUint64Value(routerID),
	)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoVoucherAvailable
	}

	return r.findByClaimToken(ctx, claimToken)
}

func (r *VoucherRepository) findByClaimToken(ctx context.Context, claimToken string) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE claim_token = ? LIMIT 1`

	voucher := &entity.Voucher{}
	if err := scanVoucher(r.db.QueryRowContext(ctx, query, claimToken), voucher); err == sql.ErrNoRows {
		return nil, ErrVoucherNotFound
	} else if err != nil {
		return nil, err
	}

	return voucher, nil
}

func (r *VoucherRepository) FindByCode(ctx context.Context, tenantID uint64, code string) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE tenant_id = ? AND code = ? LIMIT 1`

	voucher := &entity.Voucher{}
	if err := scanVoucher(r.db.QueryRowContext(ctx, query, tenantID, code), voucher); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return voucher, nil
}

func (r *VoucherRepository) CountAvailable(ctx context.Context, tenantID, packageID uint64) (int64, error) {
	query := `SELECT COUNT(*) FROM vouchers WHERE tenant_id = ? AND package_id = ? AND status = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID, packageID, entity.VoucherStatusAvailable).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkExpiredBatch invalidates assigned vouchers whose validity window has
// lapsed. Purely time-based housekeeping, never driven by payment state.
func (r *VoucherRepository) MarkExpiredBatch(ctx context.Context, now time.Time, limit int32) (int64, error) {
	query := `
		UPDATE vouchers
		SET status = ?, updated_at = ?
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
		LIMIT ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.VoucherStatusExpired,
		now,
		entity.VoucherStatusAssigned,
		now,
		limit,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func scanVoucher(scan rowScanner, voucher *entity.Voucher) error {
	var routerID sql.NullInt64
	var claimToken sql.NullString
	var assignedPhone sql.NullString
	var assignedAt sql.NullTime
	var expiresAt sql.NullTime

	err := scan.Scan(
		&voucher.ID,
		&voucher.Code,
		&voucher.Username,
		&voucher.Password,
		&voucher.TenantID,
		&voucher.PackageID,
		&routerID,
		&voucher.Status,
		&claimToken,
		&assignedPhone,
		&assignedAt,
		&expiresAt,
		&voucher.CreatedAt,
		&voucher.UpdatedAt,
	)
	if err != nil {
		return err
	}

	voucher.RouterID = uint64PtrFromNull(routerID)
	voucher.ClaimToken = stringPtrFromNull(claimToken)
	voucher.AssignedPhone = stringPtrFromNull(assignedPhone)
	voucher.AssignedAt = timePtrFromNull(assignedAt)
	voucher.ExpiresAt = timePtrFromNull(expiresAt)

	return nil
}
