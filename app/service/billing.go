package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/factory"
	"github.com/hotspotlabs/ms-go-vouchers/app/notify"
	"github.com/hotspotlabs/ms-go-vouchers/app/provider"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
	"github.com/hotspotlabs/ms-go-vouchers/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(500)
)

type transactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByCheckoutRef(ctx context.Context, checkoutRef string) (*entity.Transaction, error)
	MarkCompleted(ctx context.Context, checkoutRef string, outcome repository.TerminalOutcome) (bool, error)
	MarkFailed(ctx context.Context, checkoutRef string, outcome repository.TerminalOutcome) (bool, error)
	AttachVoucher(ctx context.Context, checkoutRef, voucherCode string, now time.Time) (bool, error)
	SetFulfillmentStatus(ctx context.Context, checkoutRef string, status int32, now time.Time) error
	SetNotifyStatus(ctx context.Context, checkoutRef string, status int32, now time.Time) error
	FindLatestCompletedByPhone(ctx context.Context, tenantID uint64, phone string) (*entity.Transaction, error)
	List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error)
}

type voucherRepository interface {
	ClaimOne(ctx context.Context, tenantID, packageID uint64, routerID *uint64, phone string, now time.Time) (*entity.Voucher, error)
	FindByCode(ctx context.Context, tenantID uint64, code string) (*entity.Voucher, error)
	CountAvailable(ctx context.Context, tenantID, packageID uint64) (int64, error)
	MarkExpiredBatch(ctx context.Context, now time.Time, limit int32) (int64, error)
}

type gatewaySettingsRepository interface {
	FindByTenant(ctx context.Context, tenantID uint64) (*entity.GatewaySettings, error)
}

type billingPackageRepository interface {
	FindByID(ctx context.Context, tenantID, packageID uint64) (*entity.BillingPackage, error)
}

type BillingService struct {
	txRepo       transactionRepository
	voucherRepo  voucherRepository
	settingsRepo gatewaySettingsRepository
	packageRepo  billingPackageRepository
	gateways     *provider.Registry
	notifier     notify.Notifier
	jobsCfg      config.JobsConfig
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewBillingService(
	txRepo transactionRepository,
	voucherRepo voucherRepository,
	settingsRepo gatewaySettingsRepository,
	packageRepo billingPackageRepository,
	gateways *provider.Registry,
	notifier notify.Notifier,
	jobsCfg config.JobsConfig,
) *BillingService {
	return &BillingService{
		txRepo:       txRepo,
		voucherRepo:  voucherRepo,
		settingsRepo: settingsRepo,
		packageRepo:  packageRepo,
		gateways:     gateways,
		notifier:     notifier,
		jobsCfg:      jobsCfg,
		logger:       factory.NewModuleLogger("billing-service"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type InitiatePaymentInput struct {
	TenantID  uint64
	PackageID uint64
	RouterID  *uint64
	Phone     string
}

type InitiateResult struct {
	Transaction     *entity.Transaction
	CustomerMessage string
	CheckoutURL     *string
}

// InitiatePayment pushes a payment request upstream and records the pending
// attempt under the gateway-issued checkout reference. Upstream failures are
// surfaced to the caller without touching the store; a retry is a brand-new
// attempt with a fresh reference.
func (s *BillingService) InitiatePayment(ctx context.Context, input *InitiatePaymentInput) (*InitiateResult, error) {
	phone := strings.TrimSpace(input.Phone)
	if phone == "" || input.TenantID == 0 || input.PackageID == 0 {
		return nil, ErrInvalidRequest
	}

	pkg, err := s.packageRepo.FindByID(ctx, input.TenantID, input.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}

	gateway, settings, err := s.tenantGateway(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}

	// Stock is checked up front only to warn operators early; the claim at
	// fulfillment time is what actually decides.
	if available, err := s.voucherRepo.CountAvailable(ctx, input.TenantID, input.PackageID); err == nil && available == 0 {
		s.logger.WithFields(logrus.Fields{
			"tenant_id":  input.TenantID,
			"package_id": input.PackageID,
		}).Warn("Voucher pool empty at initiation")
	}

	output, err := gateway.Initiate(ctx, &provider.InitiateInput{
		Phone:       phone,
		Amount:      pkg.Price,
		AccountRef:  accountReference(pkg),
		Description: pkg.Name,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx := &entity.Transaction{
		CheckoutRef:       output.CheckoutRef,
		Provider:          settings.Provider,
		TenantID:          input.TenantID,
		PackageID:         input.PackageID,
		RouterID:          input.RouterID,
		Phone:             phone,
		Amount:            pkg.Price,
		Status:            entity.TransactionStatusPending,
		FulfillmentStatus: entity.FulfillmentNone,
		NotifyStatus:      entity.NotifyNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	return &InitiateResult{
		Transaction:     tx,
		CustomerMessage: output.CustomerMessage,
		CheckoutURL:     output.CheckoutURL,
	}, nil
}

// LookupVoucherByPhone is the recovery path for customers whose SMS never
// arrived: the most recent completed, fulfilled transaction for the contact.
func (s *BillingService) LookupVoucherByPhone(ctx context.Context, tenantID uint64, phone string) (*entity.Voucher, *entity.Transaction, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || tenantID == 0 {
		return nil, nil, ErrInvalidRequest
	}

	tx, err := s.txRepo.FindLatestCompletedByPhone(ctx, tenantID, phone)
	if err != nil {
		return nil, nil, err
	}
	if tx == nil || tx.VoucherCode == nil {
		return nil, nil, ErrVoucherNotFound
	}

	voucher, err := s.voucherRepo.FindByCode(ctx, tenantID, *tx.VoucherCode)
	if err != nil {
		return nil, nil, err
	}
	if voucher == nil {
		return nil, nil, ErrVoucherNotFound
	}

	return voucher, tx, nil
}

func (s *BillingService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.txRepo.List(ctx, filter)
}

func (s *BillingService) tenantGateway(ctx context.Context, tenantID uint64) (provider.Gateway, *entity.GatewaySettings, error) {
	settings, err := s.settingsRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrGatewayNotConfigured) {
			return nil, nil, ErrGatewayNotConfigured
		}
		return nil, nil, err
	}

	gateway, err := s.gateways.Build(settings)
	if err != nil {
		if errors.Is(err, provider.ErrGatewayNotSupported) {
			return nil, nil, ErrGatewayUnsupported
		}
		return nil, nil, err
	}

	return gateway, settings, nil
}

func (s *BillingService) batchSize() int32 {
	if s.jobsCfg.BatchSize > 0 {
		return s.jobsCfg.BatchSize
	}
	return defaultBatchSize
}

func accountReference(pkg *entity.BillingPackage) string {
	return fmt.Sprintf("PKG%d-%s", pkg.ID, strings.Split(uuid.NewString(), "-")[0])
}
