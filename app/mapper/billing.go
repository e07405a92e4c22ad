package mapper

import (
	"time"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/service"
	"github.com/hotspotlabs/ms-go-vouchers/app/types"
)

func InitiateResultToResponse(result *service.InitiateResult) *types.InitiatePaymentResponse {
	return &types.InitiatePaymentResponse{
		Reference:       result.Transaction.CheckoutRef,
		CustomerMessage: result.CustomerMessage,
		CheckoutURL:     result.CheckoutURL,
	}
}

func PollResultToResponse(result *service.PollResult) *types.PollStatusResponse {
	resp := &types.PollStatusResponse{
		Reference:   result.Transaction.CheckoutRef,
		State:       result.State,
		Message:     result.Message,
		PackageName: result.PackageName,
		ReceiptID:   derefString(result.Transaction.ReceiptID),
		Voucher:     VoucherToPayload(result.Voucher),
	}
	return resp
}

func VoucherToPayload(voucher *entity.Voucher) *types.VoucherPayload {
	if voucher == nil {
		return nil
	}
	return &types.VoucherPayload{
		Code:     voucher.Code,
		Username: voucher.Username,
		Password: voucher.Password,
	}
}

func TransactionToPayload(tx *entity.Transaction) *types.TransactionPayload {
	return &types.TransactionPayload{
		ID:                tx.ID,
		Reference:         tx.CheckoutRef,
		Provider:          tx.Provider,
		TenantID:          tx.TenantID,
		PackageID:         tx.PackageID,
		RouterID:          tx.RouterID,
		Phone:             tx.Phone,
		Amount:            tx.Amount.String(),
		Status:            tx.Status,
		ResultCode:        derefString(tx.ResultCode),
		ResultDesc:        derefString(tx.ResultDesc),
		ReceiptID:         derefString(tx.ReceiptID),
		VoucherCode:       derefString(tx.VoucherCode),
		FulfillmentStatus: tx.FulfillmentStatus,
		NotifyStatus:      tx.NotifyStatus,
		CreatedAt:         tx.CreatedAt.UTC().Format(time.RFC3339),
		CompletedAt:       formatTime(tx.CompletedAt),
	}
}

func TransactionsToListResponse(txs []*entity.Transaction) *types.ListTransactionsResponse {
	payloads := make([]*types.TransactionPayload, 0, len(txs))
	for _, tx := range txs {
		payloads = append(payloads, TransactionToPayload(tx))
	}
	return &types.ListTransactionsResponse{Transactions: payloads}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
