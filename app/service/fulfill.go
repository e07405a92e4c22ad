package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
)

// fulfill runs on the winning reconciliation path only: claim one voucher,
// attach it to the completed transaction, then attempt the SMS. A stockout
// leaves the payment completed and flags the row for operator attention.
// A failed SMS never releases the voucher; the customer can recover it via
// the phone lookup endpoint.
func (s *BillingService) fulfill(ctx context.Context, tx *entity.Transaction) {
	logger := s.logger.WithField("checkout_ref", tx.CheckoutRef)

	if tx.VoucherCode != nil {
		return
	}

	now := s.now()
	voucher, err := s.voucherRepo.ClaimOne(ctx, tx.TenantID, tx.PackageID, tx.RouterID, tx.Phone, now)
	if err != nil {
		if errors.Is(err, repository.ErrNoVoucherAvailable) {
			logger.WithField("package_id", tx.PackageID).Warn("Voucher pool empty, payment completed but unfulfilled")
			if err := s.txRepo.SetFulfillmentStatus(ctx, tx.CheckoutRef, entity.FulfillmentNoStock, now); err != nil {
				logger.WithError(err).Error("Record no-stock fulfillment failed")
			}
			return
		}
		logger.WithError(err).Error("Voucher claim failed")
		return
	}

	attached, err := s.txRepo.AttachVoucher(ctx, tx.CheckoutRef, voucher.Code, now)
	if err != nil {
		logger.WithError(err).Error("Attach voucher failed")
		return
	}
	if !attached {
		// Re-entry after a voucher was already attached; the claim guard
		// above makes this unreachable in normal operation.
		logger.WithField("voucher_code", voucher.Code).Warn("Voucher already attached, skipping")
		return
	}

	s.notifyVoucher(ctx, tx, voucher)
}

func (s *BillingService) notifyVoucher(ctx context.Context, tx *entity.Transaction, voucher *entity.Voucher) {
	logger := s.logger.WithField("checkout_ref", tx.CheckoutRef)

	pkg, err := s.packageRepo.FindByID(ctx, tx.TenantID, tx.PackageID)
	if err != nil {
		logger.WithError(err).Error("Load package for notification failed")
	}
	packageName := ""
	if pkg != nil {
		packageName = pkg.Name
	}

	now := s.now()
	if err := s.notifier.Send(ctx, tx.Phone, voucherMessage(voucher, packageName)); err != nil {
		logger.WithError(err).Error("Voucher SMS failed")
		if err := s.txRepo.SetNotifyStatus(ctx, tx.CheckoutRef, entity.NotifyFailed, now); err != nil {
			logger.WithError(err).Error("Record notify failure failed")
		}
		return
	}

	if err := s.txRepo.SetNotifyStatus(ctx, tx.CheckoutRef, entity.NotifySent, now); err != nil {
		logger.WithError(err).Error("Record notify success failed")
	}
}

func voucherMessage(voucher *entity.Voucher, packageName string) string {
	if packageName == "" {
		return fmt.Sprintf("Payment received. WiFi voucher %s, username %s, password %s.",
			voucher.Code, voucher.Username, voucher.Password)
	}
	return fmt.Sprintf("Payment received for %s. WiFi voucher %s, username %s, password %s.",
		packageName, voucher.Code, voucher.Username, voucher.Password)
}
