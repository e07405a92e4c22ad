package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
)

// TerminalOutcome carries the provider result recorded alongside a
// pending -> terminal status transition.
type TerminalOutcome struct {
	ResultCode  string
	ResultDesc  string
	ReceiptID   *string
	CompletedAt time.Time
}

type TransactionFilter struct {
	TenantID          uint64
	Phone             string
	HasStatus         bool
	Status            int32
	FulfillmentStatus int32
	Limit             int32
	Offset            int32
}

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, checkout_ref, provider, tenant_id, package_id, router_id,
		phone, amount, status, result_code, result_desc, receipt_id,
		voucher_code, fulfillment_status, notify_status,
		created_at, updated_at, completed_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			checkout_ref, provider, tenant_id, package_id, router_id,
			phone, amount, status, result_code, result_desc, receipt_id,
			voucher_code, fulfillment_status, notify_status,
			created_at, updated_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.CheckoutRef,
		tx.Provider,
		tx.TenantID,
		tx.PackageID,
		nullableUint64Value(tx.RouterID),
		tx.Phone,
		tx.Amount,
		tx.Status,
		nullableStringValue(tx.ResultCode),
		nullableStringValue(tx.ResultDesc),
		nullableStringValue(tx.ReceiptID),
		nullableStringValue(tx.VoucherCode),
		tx.FulfillmentStatus,
		tx.NotifyStatus,
		tx.CreatedAt,
		tx.UpdatedAt,
		nullableTimeValue(tx.CompletedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = uint64(id)
	return nil
}

func (r *TransactionRepository) FindByCheckoutRef(ctx context.Context, checkoutRef string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE checkout_ref = ? LIMIT 1`

	tx := &entity.Transaction{}
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, checkoutRef), tx); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return tx, nil
}

// MarkCompleted transitions the transaction to completed only if it is still
// pending. The single conditional UPDATE is the synchronization point between
// the callback and poll paths; the returned bool reports whether this call
// performed the transition.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, checkoutRef string, outcome TerminalOutcome) (bool, error) {
	return r.markTerminal(ctx, checkoutRef, entity.TransactionStatusCompleted, outcome)
}

// MarkFailed is the failure-side counterpart of MarkCompleted with the same
// atomicity guarantee.
func (r *TransactionRepository) MarkFailed(ctx context.Context, checkoutRef string, outcome TerminalOutcome) (bool, error) {
	return r.markTerminal(ctx, checkoutRef, entity.TransactionStatusFailed, outcome)
}

func (r *TransactionRepository) markTerminal(ctx context.Context, checkoutRef string, status int32, outcome TerminalOutcome) (bool, error) {
	query := `
		UPDATE transactions
		SET status = ?, result_code = ?, result_desc = ?, receipt_id = ?, completed_at = ?, updated_at = ?
		WHERE checkout_ref = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		status,
		outcome.ResultCode,
		outcome.ResultDesc,
		nullableStringValue(outcome.ReceiptID),
		outcome.CompletedAt,
		outcome.CompletedAt,
		checkoutRef,
		entity.TransactionStatusPending,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// AttachVoucher records the allocated voucher on a completed transaction.
// Guarded on voucher_code IS NULL, so a retried fulfillment can never replace
// an already attached voucher.
func (r *TransactionRepository) AttachVoucher(ctx context.Context, checkoutRef, voucherCode string, now time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET voucher_code = ?, fulfillment_status = ?, updated_at = ?
		WHERE checkout_ref = ? AND status = ? AND voucher_code IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		voucherCode,
		entity.FulfillmentFulfilled,
		now,
		checkoutRef,
		entity.TransactionStatusCompleted,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *TransactionRepository) SetFulfillmentStatus(ctx context.Context, checkoutRef string, status int32, now time.Time) error {
	query := `UPDATE transactions SET fulfillment_status = ?, updated_at = ? WHERE checkout_ref = ?`

	result, err := r.db.ExecContext(ctx, query, status, now, checkoutRef)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) SetNotifyStatus(ctx context.Context, checkoutRef string, status int32, now time.Time) error {
	query := `UPDATE transactions SET notify_status = ?, updated_at = ? WHERE checkout_ref = ?`

	result, err := r.db.ExecContext(ctx, query, status, now, checkoutRef)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// FindLatestCompletedByPhone backs the voucher-lookup fallback for customers
// whose SMS never arrived.
func (r *TransactionRepository) FindLatestCompletedByPhone(ctx context.Context, tenantID uint64, phone string) (*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = ? AND phone = ? AND status = ? AND voucher_code IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1
	`

	tx := &entity.Transaction{}
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, tenantID, phone, entity.TransactionStatusCompleted), tx); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`

	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.TenantID > 0 {
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if strings.TrimSpace(filter.Phone) != "" {
		conditions = append(conditions, "phone = ?")
		args = append(args, filter.Phone)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.FulfillmentStatus > 0 {
		conditions = append(conditions, "fulfillment_status = ?")
		args = append(args, filter.FulfillmentStatus)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*entity.Transaction, 0)
	for rows.Next() {
		item := &entity.Transaction{}
		if err := scanTransaction(rows, item); err != nil {
			return nil, err
		}
		transactions = append(transactions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(scan rowScanner, tx *entity.Transaction) error {
	var routerID sql.NullInt64
	var resultCode sql.NullString
	var resultDesc sql.NullString
	var receiptID sql.NullString
	var voucherCode sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&tx.ID,
		&tx.CheckoutRef,
		&tx.Provider,
		&tx.TenantID,
		&tx.PackageID,
		&routerID,
		&tx.Phone,
		&tx.Amount,
		&tx.Status,
		&resultCode,
		&resultDesc,
		&receiptID,
		&voucherCode,
		&tx.FulfillmentStatus,
		&tx.NotifyStatus,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return err
	}

	tx.RouterID = uint64PtrFromNull(routerID)
	tx.ResultCode = stringPtrFromNull(resultCode)
	tx.ResultDesc = stringPtrFromNull(resultDesc)
	tx.ReceiptID = stringPtrFromNull(receiptID)
	tx.VoucherCode = stringPtrFromNull(voucherCode)
	tx.CompletedAt = timePtrFromNull(completedAt)

	return nil
}
