package service

import "context"

// RunExpireVouchersBatch invalidates assigned vouchers whose validity window
// has lapsed. Time-based housekeeping only; transaction status is never
// touched here, and pending payments are left for the poll path to resolve.
func (s *BillingService) RunExpireVouchersBatch(ctx context.Context) error {
	expired, err := s.voucherRepo.MarkExpiredBatch(ctx, s.now(), s.batchSize())
	if err != nil {
		return err
	}

	if expired > 0 {
		s.logger.WithField("expired", expired).Info("Expired vouchers batch")
	}
	return nil
}
