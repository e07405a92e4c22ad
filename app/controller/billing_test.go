package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/notify"
	"github.com/hotspotlabs/ms-go-vouchers/app/provider"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
	"github.com/hotspotlabs/ms-go-vouchers/app/service"
	"github.com/hotspotlabs/ms-go-vouchers/app/types"
	"github.com/hotspotlabs/ms-go-vouchers/config"
)

type controllerTxRepo struct {
	createFn            func(ctx context.Context, tx *entity.Transaction) error
	findByCheckoutRefFn func(ctx context.Context, checkoutRef string) (*entity.Transaction, error)
	findLatestByPhoneFn func(ctx context.Context, tenantID uint64, phone string) (*entity.Transaction, error)
	listFn              func(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error)
}

func (r *controllerTxRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	if r.createFn != nil {
		return r.createFn(ctx, tx)
	}
	return nil
}

func (r *controllerTxRepo) FindByCheckoutRef(ctx context.Context, checkoutRef string) (*entity.Transaction, error) {
	if r.findByCheckoutRefFn != nil {
		return r.findByCheckoutRefFn(ctx, checkoutRef)
	}
	return nil, nil
}

func (r *controllerTxRepo) MarkCompleted(context.Context, string, repository.TerminalOutcome) (bool, error) {
	return false, nil
}

func (r *controllerTxRepo) MarkFailed(context.Context, string, repository.TerminalOutcome) (bool, error) {
	return false, nil
}

func (r *controllerTxRepo) AttachVoucher(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}

func (r *controllerTxRepo) SetFulfillmentStatus(context.Context, string, int32, time.Time) error {
	return nil
}

func (r *controllerTxRepo) SetNotifyStatus(context.Context, string, int32, time.Time) error {
	return nil
}

func (r *controllerTxRepo) FindLatestCompletedByPhone(ctx context.Context, tenantID uint64, phone string) (*entity.Transaction, error) {
	if r.findLatestByPhoneFn != nil {
		return r.findLatestByPhoneFn(ctx, tenantID, phone)
	}
	return nil, nil
}

func (r *controllerTxRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Transaction{}, nil
}

type controllerVoucherRepo struct {
	findByCodeFn func(ctx context.Context, tenantID uint64, code string) (*entity.Voucher, error)
}

func (r *controllerVoucherRepo) ClaimOne(context.Context, uint64, uint64, *uint64, string, time.Time) (*entity.Voucher, error) {
	return nil, repository.ErrNoVoucherAvailable
}

func (r *controllerVoucherRepo) FindByCode(ctx context.Context, tenantID uint64, code string) (*entity.Voucher, error) {
	if r.findByCodeFn != nil {
		return r.findByCodeFn(ctx, tenantID, code)
	}
	return nil, nil
}

func (r *controllerVoucherRepo) CountAvailable(context.Context, uint64, uint64) (int64, error) {
	return 0, nil
}

func (r *controllerVoucherRepo) MarkExpiredBatch(context.Context, time.Time, int32) (int64, error) {
	return 0, nil
}

type controllerSettingsRepo struct{}

func (r *controllerSettingsRepo) FindByTenant(context.Context, uint64) (*entity.GatewaySettings, error) {
	return &entity.GatewaySettings{TenantID: 1, Provider: entity.GatewayDaraja, Active: true}, nil
}

type controllerPackageRepo struct{}

func (r *controllerPackageRepo) FindByID(context.Context, uint64, uint64) (*entity.BillingPackage, error) {
	return &entity.BillingPackage{ID: 7, TenantID: 1, Name: "Daily Unlimited", Price: decimal.NewFromInt(50)}, nil
}

type controllerGateway struct{}

func (g *controllerGateway) Code() int32 {
	return entity.GatewayDaraja
}

func (g *controllerGateway) Initiate(context.Context, *provider.InitiateInput) (*provider.InitiateOutput, error) {
	return &provider.InitiateOutput{CheckoutRef: "ws_CO_0001", CustomerMessage: "Check your phone"}, nil
}

func (g *controllerGateway) ParseCallback([]byte, string) (*provider.ConfirmationEvent, error) {
	return &provider.ConfirmationEvent{CheckoutRef: "ws_CO_0001", Outcome: provider.OutcomePending}, nil
}

func (g *controllerGateway) QueryStatus(context.Context, string) (*provider.ConfirmationEvent, error) {
	return &provider.ConfirmationEvent{CheckoutRef: "ws_CO_0001", Outcome: provider.OutcomePending}, nil
}

func newControllerForTest(txRepo *controllerTxRepo, voucherRepo *controllerVoucherRepo) *BillingController {
	registry := provider.NewRegistry()
	registry.Register(entity.GatewayDaraja, func(*entity.GatewaySettings) provider.Gateway { return &controllerGateway{} })

	billingService := service.NewBillingService(
		txRepo,
		voucherRepo,
		&controllerSettingsRepo{},
		&controllerPackageRepo{},
		registry,
		notify.NopNotifier{},
		config.JobsConfig{BatchSize: 100},
	)
	return NewBillingController(billingService)
}

func TestInitiatePaymentBadBody(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString("{bad"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.InitiatePayment(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInitiatePaymentSuccess(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"tenant_id":1,"package_id":7,"phone":"254700000001"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.InitiatePayment(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.InitiatePaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Reference != "ws_CO_0001" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestInitiatePaymentMissingPhone(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"tenant_id":1,"package_id":7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.InitiatePayment(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPollStatusNotFound(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments/status/ws_CO_MISSING", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("reference")
	ctx.SetParamValues("ws_CO_MISSING")

	_ = ctrl.PollStatus(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPollStatusPending(t *testing.T) {
	now := time.Now().UTC()
	txRepo := &controllerTxRepo{findByCheckoutRefFn: func(context.Context, string) (*entity.Transaction, error) {
		return &entity.Transaction{
			CheckoutRef: "ws_CO_0001",
			TenantID:    1,
			PackageID:   7,
			Phone:       "254700000001",
			Amount:      decimal.NewFromInt(50),
			Status:      entity.TransactionStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}}
	ctrl := newControllerForTest(txRepo, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments/status/ws_CO_0001", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("reference")
	ctx.SetParamValues("ws_CO_0001")

	_ = ctrl.PollStatus(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.PollStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.State != service.PollStatePending {
		t.Fatalf("unexpected state: %s", payload.State)
	}
	if payload.Message == "" {
		t.Fatal("pending poll must carry a message")
	}
}

func TestProviderCallbackAlwaysAcks(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()

	bodies := []string{
		"not json at all",
		`{}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_UNKNOWN","ResultCode":0}}}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/providers/daraja", bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		ctx := e.NewContext(req, rec)
		ctx.SetParamNames("provider")
		ctx.SetParamValues("daraja")

		if err := ctrl.HandleProviderCallback(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("callback must always ack with 200, got %d for body %q", rec.Code, body)
		}

		var ack types.CallbackAck
		if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
			t.Fatalf("unmarshal ack failed: %v", err)
		}
		if ack.ResultCode != 0 || ack.ResultDesc != "Accepted" {
			t.Fatalf("unexpected ack body: %+v", ack)
		}
	}
}

func TestProviderCallbackUnknownProviderStillAcks(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/providers/flutterwave", bytes.NewBufferString(`{"data":{"reference":"x"}}`))
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("provider")
	ctx.SetParamValues("flutterwave")

	_ = ctrl.HandleProviderCallback(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestVoucherLookupNotFound(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/vouchers/lookup?tenant_id=1&phone=254700000001", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.VoucherLookup(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestVoucherLookupSuccess(t *testing.T) {
	now := time.Now().UTC()
	code := "VOUCH-1"
	txRepo := &controllerTxRepo{findLatestByPhoneFn: func(context.Context, uint64, string) (*entity.Transaction, error) {
		return &entity.Transaction{
			CheckoutRef: "ws_CO_0001",
			TenantID:    1,
			Phone:       "254700000001",
			Status:      entity.TransactionStatusCompleted,
			VoucherCode: &code,
			CompletedAt: &now,
		}, nil
	}}
	voucherRepo := &controllerVoucherRepo{findByCodeFn: func(context.Context, uint64, string) (*entity.Voucher, error) {
		return &entity.Voucher{Code: code, Username: "user1", Password: "pass1", TenantID: 1}, nil
	}}
	ctrl := newControllerForTest(txRepo, voucherRepo)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/vouchers/lookup?tenant_id=1&phone=254700000001", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.VoucherLookup(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.VoucherLookupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Voucher == nil || payload.Voucher.Code != "VOUCH-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestVoucherLookupMissingParams(t *testing.T) {
	ctrl := newControllerForTest(&controllerTxRepo{}, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/vouchers/lookup?phone=254700000001", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.VoucherLookup(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListTransactions(t *testing.T) {
	now := time.Now().UTC()
	txRepo := &controllerTxRepo{listFn: func(context.Context, repository.TransactionFilter) ([]*entity.Transaction, error) {
		return []*entity.Transaction{{
			ID:          1,
			CheckoutRef: "ws_CO_0001",
			Provider:    entity.GatewayDaraja,
			TenantID:    1,
			PackageID:   7,
			Phone:       "254700000001",
			Amount:      decimal.NewFromInt(50),
			Status:      entity.TransactionStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}}, nil
	}}
	ctrl := newControllerForTest(txRepo, &controllerVoucherRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments?tenant_id=1&limit=10", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.ListTransactions(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.ListTransactionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Transactions) != 1 || payload.Transactions[0].Reference != "ws_CO_0001" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
