package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

const (
	PollStatePending   = "pending"
	PollStateFailed    = "failed"
	PollStateCompleted = "completed"
	PollStateNoStock   = "completed_no_voucher"
)

type PollResult struct {
	State       string
	Message     string
	Transaction *entity.Transaction
	Voucher     *entity.Voucher
	PackageName string
}

// PollStatus is the client-driven confirmation path. While the stored
// transaction is still pending the provider is re-queried and the answer is
// run through Reconcile, racing any concurrent callback delivery; afterwards
// the stored terminal outcome is authoritative and no provider call is made.
func (s *BillingService) PollStatus(ctx context.Context, checkoutRef string) (*PollResult, error) {
	checkoutRef = strings.TrimSpace(checkoutRef)
	if checkoutRef == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.txRepo.FindByCheckoutRef(ctx, checkoutRef)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: checkout_ref=%s", ErrTransactionNotFound, checkoutRef)
	}

	if tx.Status == entity.TransactionStatusPending {
		gateway, _, err := s.tenantGateway(ctx, tx.TenantID)
		if err != nil {
			return nil, err
		}

		event, err := gateway.QueryStatus(ctx, checkoutRef)
		if err != nil {
			return nil, err
		}

		tx, err = s.Reconcile(ctx, event)
		if err != nil {
			return nil, err
		}
	}

	return s.pollResult(ctx, tx)
}

func (s *BillingService) pollResult(ctx context.Context, tx *entity.Transaction) (*PollResult, error) {
	switch {
	case tx.Status == entity.TransactionStatusPending:
		return &PollResult{
			State:       PollStatePending,
			Message:     "Payment is still being processed. Complete the prompt on your phone and try again.",
			Transaction: tx,
		}, nil

	case tx.Status == entity.TransactionStatusFailed:
		desc := "unknown error"
		if tx.ResultDesc != nil && strings.TrimSpace(*tx.ResultDesc) != "" {
			desc = *tx.ResultDesc
		}
		return &PollResult{
			State:       PollStateFailed,
			Message:     "Payment failed: " + desc,
			Transaction: tx,
		}, nil

	case tx.VoucherCode == nil:
		return &PollResult{
			State:       PollStateNoStock,
			Message:     "Payment received, but no voucher is currently available. Support has been notified.",
			Transaction: tx,
		}, nil

	default:
		voucher, err := s.voucherRepo.FindByCode(ctx, tx.TenantID, *tx.VoucherCode)
		if err != nil {
			return nil, err
		}

		packageName := ""
		if pkg, err := s.packageRepo.FindByID(ctx, tx.TenantID, tx.PackageID); err == nil && pkg != nil {
			packageName = pkg.Name
		}

		return &PollResult{
			State:       PollStateCompleted,
			Message:     "Payment completed. Your voucher is ready.",
			Transaction: tx,
			Voucher:     voucher,
			PackageName: packageName,
		}, nil
	}
}
