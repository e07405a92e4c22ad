package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/provider"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
)

// Reconcile settles a confirmation event against the stored transaction.
// It is the single authority for the pending -> completed|failed transition:
// the callback receiver and the poll path both funnel through here, and the
// conditional update in the repository decides which caller wins. The loser
// observes the already-settled row; repeat deliveries are no-ops.
func (s *BillingService) Reconcile(ctx context.Context, event *provider.ConfirmationEvent) (*entity.Transaction, error) {
	tx, err := s.txRepo.FindByCheckoutRef(ctx, event.CheckoutRef)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: checkout_ref=%s", ErrTransactionNotFound, event.CheckoutRef)
	}

	if entity.TransactionTerminal(tx.Status) {
		return tx, nil
	}

	switch event.Outcome {
	case provider.OutcomePending:
		return tx, nil

	case provider.OutcomeSuccess:
		outcome := repository.TerminalOutcome{
			ResultCode:  event.ResultCode,
			ResultDesc:  event.ResultDesc,
			ReceiptID:   event.ReceiptID,
			CompletedAt: event.CompletedAt,
		}
		won, err := s.txRepo.MarkCompleted(ctx, tx.CheckoutRef, outcome)
		if err != nil {
			return nil, err
		}
		if !won {
			// The other path settled the row first; report its outcome.
			return s.reloadTransaction(ctx, tx.CheckoutRef)
		}

		tx, err = s.reloadTransaction(ctx, tx.CheckoutRef)
		if err != nil {
			return nil, err
		}
		s.fulfill(ctx, tx)
		return s.reloadTransaction(ctx, tx.CheckoutRef)

	default:
		// Anything that is not an explicit success is a failure; the provider
		// description is stored verbatim for operator diagnosis.
		outcome := repository.TerminalOutcome{
			ResultCode:  event.ResultCode,
			ResultDesc:  event.ResultDesc,
			ReceiptID:   event.ReceiptID,
			CompletedAt: event.CompletedAt,
		}
		if _, err := s.txRepo.MarkFailed(ctx, tx.CheckoutRef, outcome); err != nil {
			return nil, err
		}
		return s.reloadTransaction(ctx, tx.CheckoutRef)
	}
}

// HandleGatewayCallback processes an asynchronous provider callback. The
// checkout reference is peeked out of the raw payload first so the owning
// tenant's credentials can be loaded for full verification and parsing.
// Errors here reach the log, never the provider: the receiver always acks.
func (s *BillingService) HandleGatewayCallback(ctx context.Context, providerName string, payload []byte, signature string) (*entity.Transaction, error) {
	code, err := parseGatewayCode(providerName)
	if err != nil {
		return nil, err
	}

	checkoutRef, err := provider.PeekCheckoutRef(code, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}

	tx, err := s.txRepo.FindByCheckoutRef(ctx, checkoutRef)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: checkout_ref=%s", ErrTransactionNotFound, checkoutRef)
	}

	gateway, _, err := s.tenantGateway(ctx, tx.TenantID)
	if err != nil {
		return nil, err
	}

	event, err := gateway.ParseCallback(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}
	if event.CheckoutRef != checkoutRef {
		return nil, fmt.Errorf("%w: callback reference mismatch", ErrCallbackRejected)
	}

	return s.Reconcile(ctx, event)
}

func (s *BillingService) reloadTransaction(ctx context.Context, checkoutRef string) (*entity.Transaction, error) {
	tx, err := s.txRepo.FindByCheckoutRef(ctx, checkoutRef)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: checkout_ref=%s", ErrTransactionNotFound, checkoutRef)
	}
	return tx, nil
}

func parseGatewayCode(providerRaw string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(providerRaw)) {
	case "daraja", "mpesa", "1":
		return entity.GatewayDaraja, nil
	case "paystack", "2":
		return entity.GatewayPaystack, nil
	default:
		return 0, ErrGatewayUnsupported
	}
}
