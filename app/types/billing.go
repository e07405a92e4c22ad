package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type InitiatePaymentRequest struct {
	TenantID  uint64  `json:"tenant_id"`
	PackageID uint64  `json:"package_id"`
	RouterID  *uint64 `json:"router_id,omitempty"`
	Phone     string  `json:"phone"`
}

func NewInitiatePaymentRequestFromContext(ctx echo.Context) (*InitiatePaymentRequest, error) {
	var body InitiatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Phone = strings.TrimSpace(body.Phone)

	return &body, nil
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.TenantID == 0 {
		return errors.New("tenant_id is required")
	}
	if r.PackageID == 0 {
		return errors.New("package_id is required")
	}
	phone := strings.TrimSpace(r.Phone)
	if phone == "" {
		return errors.New("phone is required")
	}
	if len(phone) < 9 {
		return errors.New("phone is too short")
	}
	return nil
}

type PollStatusRequest struct {
	Reference string
}

func NewPollStatusRequestFromContext(ctx echo.Context) (*PollStatusRequest, error) {
	return &PollStatusRequest{Reference: strings.TrimSpace(ctx.Param("reference"))}, nil
}

func (r *PollStatusRequest) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return errors.New("reference is required")
	}
	return nil
}

type VoucherLookupRequest struct {
	TenantID uint64
	Phone    string
}

func NewVoucherLookupRequestFromContext(ctx echo.Context) (*VoucherLookupRequest, error) {
	req := &VoucherLookupRequest{
		Phone: strings.TrimSpace(ctx.QueryParam("phone")),
	}

	if tenantRaw := strings.TrimSpace(ctx.QueryParam("tenant_id")); tenantRaw != "" {
		tenantID, err := strconv.ParseUint(tenantRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.TenantID = tenantID
	}

	return req, nil
}

func (r *VoucherLookupRequest) Validate() error {
	if r.TenantID == 0 {
		return errors.New("tenant_id is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}

type ListTransactionsRequest struct {
	TenantID          uint64
	Phone             string
	HasStatus         bool
	Status            int32
	FulfillmentStatus int32
	Limit             int32
	Offset            int32
}

func NewListTransactionsRequestFromContext(ctx echo.Context) (*ListTransactionsRequest, error) {
	req := &ListTransactionsRequest{
		Phone: strings.TrimSpace(ctx.QueryParam("phone")),
		Limit: 100,
	}

	if tenantRaw := strings.TrimSpace(ctx.QueryParam("tenant_id")); tenantRaw != "" {
		tenantID, err := strconv.ParseUint(tenantRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.TenantID = tenantID
	}

	if statusRaw := strings.TrimSpace(ctx.QueryParam("status")); statusRaw != "" {
		status, err := strconv.ParseInt(statusRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.HasStatus = true
		req.Status = int32(status)
	}

	if fulfillmentRaw := strings.TrimSpace(ctx.QueryParam("fulfillment_status")); fulfillmentRaw != "" {
		fulfillment, err := strconv.ParseInt(fulfillmentRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.FulfillmentStatus = int32(fulfillment)
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListTransactionsRequest) Validate() error {
	if r.TenantID == 0 {
		return errors.New("tenant_id is required")
	}
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

type GatewayCallbackRequest struct {
	Provider  string
	Signature string
	Payload   []byte
}

func NewGatewayCallbackRequestFromContext(ctx echo.Context) (*GatewayCallbackRequest, error) {
	signature := strings.TrimSpace(ctx.Request().Header.Get("X-Paystack-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &GatewayCallbackRequest{
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		Signature: signature,
		Payload:   payload,
	}, nil
}

func (r *GatewayCallbackRequest) Validate() error {
	if strings.TrimSpace(r.Provider) == "" {
		return errors.New("provider is required")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}
