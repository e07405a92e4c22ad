package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/hotspotlabs/ms-go-vouchers/app/factory"
	"github.com/hotspotlabs/ms-go-vouchers/app/mapper"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
	"github.com/hotspotlabs/ms-go-vouchers/app/service"
	"github.com/hotspotlabs/ms-go-vouchers/app/types"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) InitiatePayment(ctx echo.Context) error {
	req, err := types.NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.InitiatePayment(ctx.Request().Context(), &service.InitiatePaymentInput{
		TenantID:  req.TenantID,
		PackageID: req.PackageID,
		RouterID:  req.RouterID,
		Phone:     req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPackageNotFound):
			return c.writeError(ctx, http.StatusNotFound, "package not found")
		case errors.Is(err, service.ErrGatewayNotConfigured), errors.Is(err, service.ErrGatewayUnsupported):
			return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Initiate payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.InitiateResultToResponse(result))
}

func (c *BillingController) PollStatus(ctx echo.Context) error {
	req, err := types.NewPollStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.PollStatus(ctx.Request().Context(), req.Reference)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Poll status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.PollResultToResponse(result))
}

// HandleProviderCallback acknowledges every delivery with the same fixed
// body and a 200. Providers retry on anything else, and a retried callback
// for an already-settled transaction would only add noise. Failures are
// logged and left to the poll path or the next retry to resolve.
func (c *BillingController) HandleProviderCallback(ctx echo.Context) error {
	req, err := types.NewGatewayCallbackRequestFromContext(ctx)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn("Provider callback unreadable")
		return ctx.JSON(http.StatusOK, types.NewCallbackAck())
	}
	if err := req.Validate(); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn("Provider callback invalid")
		return ctx.JSON(http.StatusOK, types.NewCallbackAck())
	}

	tx, err := c.billingService.HandleGatewayCallback(ctx.Request().Context(), req.Provider, req.Payload, req.Signature)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("provider", req.Provider).Warn("Provider callback rejected")
		return ctx.JSON(http.StatusOK, types.NewCallbackAck())
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"provider":  req.Provider,
		"reference": tx.CheckoutRef,
		"status":    tx.Status,
	}).Info("Provider callback processed")

	return ctx.JSON(http.StatusOK, types.NewCallbackAck())
}

func (c *BillingController) VoucherLookup(ctx echo.Context) error {
	req, err := types.NewVoucherLookupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	voucher, tx, err := c.billingService.LookupVoucherByPhone(ctx.Request().Context(), req.TenantID, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrVoucherNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "no voucher found for this phone number")
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Voucher lookup failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.VoucherLookupResponse{
		Reference: tx.CheckoutRef,
		Voucher:   mapper.VoucherToPayload(voucher),
	})
}

func (c *BillingController) ListTransactions(ctx echo.Context) error {
	req, err := types.NewListTransactionsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListTransactions(ctx.Request().Context(), repository.TransactionFilter{
		TenantID:          req.TenantID,
		Phone:             req.Phone,
		HasStatus:         req.HasStatus,
		Status:            req.Status,
		FulfillmentStatus: req.FulfillmentStatus,
		Limit:             req.Limit,
		Offset:            req.Offset,
	})
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List transactions failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.TransactionsToListResponse(items))
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
