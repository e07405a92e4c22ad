package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/shopspring/decimal"
)

type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	HTTPTimeout time.Duration
}

type PaystackGateway struct {
	cfg    PaystackConfig
	client *http.Client
	now    func() time.Time
}

func NewPaystackGateway(cfg PaystackConfig) *PaystackGateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &PaystackGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func NewPaystackBuilder(baseURL, callbackURL string, timeout time.Duration) Builder {
	return func(settings *entity.GatewaySettings) Gateway {
		return NewPaystackGateway(PaystackConfig{
			SecretKey:   settings.PaystackSecretKey,
			BaseURL:     baseURL,
			CallbackURL: callbackURL,
			HTTPTimeout: timeout,
		})
	}
}

func (g *PaystackGateway) Code() int32 {
	return entity.GatewayPaystack
}

func (g *PaystackGateway) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	reference := "HSP-" + uuid.NewString()

	request := map[string]interface{}{
		"email":        syntheticEmail(input.Phone),
		"amount":       input.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"reference":    reference,
		"currency":     "KES",
		"callback_url": g.cfg.CallbackURL,
		"metadata": map[string]string{
			"account_ref": input.AccountRef,
			"phone":       input.Phone,
		},
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUpstreamAuth, resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUpstreamRejected, resp.StatusCode, string(body))
	}

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if !payload.Status || strings.TrimSpace(payload.Data.Reference) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, payload.Message)
	}

	result := &InitiateOutput{
		CheckoutRef:     payload.Data.Reference,
		CustomerMessage: "Complete the payment on the checkout page to receive your voucher",
	}
	if s := strings.TrimSpace(payload.Data.AuthorizationURL); s != "" {
		result.CheckoutURL = &s
	}

	return result, nil
}

func (g *PaystackGateway) ParseCallback(payload []byte, signature string) (*ConfirmationEvent, error) {
	if !g.verifySignature(payload, signature) {
		return nil, fmt.Errorf("%w: invalid paystack signature", ErrMalformedCallback)
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			ID              int64  `json:"id"`
			Reference       string `json:"reference"`
			Amount          int64  `json:"amount"`
			Status          string `json:"status"`
			GatewayResponse string `json:"gateway_response"`
			PaidAt          string `json:"paid_at"`
			Customer        struct {
				Phone string `json:"phone"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if strings.TrimSpace(event.Event) == "" || strings.TrimSpace(event.Data.Reference) == "" {
		return nil, fmt.Errorf("%w: missing event or reference", ErrMalformedCallback)
	}

	result := &ConfirmationEvent{
		CheckoutRef: event.Data.Reference,
		ResultCode:  event.Data.Status,
		ResultDesc:  event.Data.GatewayResponse,
		Amount:      decimal.NewFromInt(event.Data.Amount).Div(decimal.NewFromInt(100)),
		PayerPhone:  strings.TrimSpace(event.Data.Customer.Phone),
		CompletedAt: g.now(),
	}
	if ts, err := time.Parse(time.RFC3339, event.Data.PaidAt); err == nil {
		result.CompletedAt = ts
	}

	switch event.Event {
	case "charge.success":
		result.Outcome = OutcomeSuccess
		receipt := strconv.FormatInt(event.Data.ID, 10)
		result.ReceiptID = &receipt
	case "charge.failed":
		result.Outcome = OutcomeFailure
	default:
		// Untracked event families (transfers, subscriptions) never settle a
		// checkout; surface them as pending so nothing is mutated.
		result.Outcome = OutcomePending
	}

	return result, nil
}

func (g *PaystackGateway) QueryStatus(ctx context.Context, checkoutRef string) (*ConfirmationEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/transaction/verify/"+url.PathEscape(checkoutRef), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUpstreamAuth, resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("paystack verify failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			ID              int64  `json:"id"`
			Status          string `json:"status"`
			GatewayResponse string `json:"gateway_response"`
			Amount          int64  `json:"amount"`
			PaidAt          string `json:"paid_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	event := &ConfirmationEvent{
		CheckoutRef: checkoutRef,
		ResultCode:  payload.Data.Status,
		ResultDesc:  payload.Data.GatewayResponse,
		Amount:      decimal.NewFromInt(payload.Data.Amount).Div(decimal.NewFromInt(100)),
		CompletedAt: g.now(),
	}
	if ts, err := time.Parse(time.RFC3339, payload.Data.PaidAt); err == nil {
		event.CompletedAt = ts
	}

	switch payload.Data.Status {
	case "success":
		event.Outcome = OutcomeSuccess
		receipt := strconv.FormatInt(payload.Data.ID, 10)
		event.ReceiptID = &receipt
	case "failed", "reversed":
		event.Outcome = OutcomeFailure
	default:
		// pending, ongoing, abandoned: the customer can still complete.
		event.Outcome = OutcomePending
	}

	return event, nil
}

func (g *PaystackGateway) verifySignature(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || strings.TrimSpace(g.cfg.SecretKey) == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(g.cfg.SecretKey))
	_, _ = mac.Write(payload)
	expected := mac.Sum(nil)

	candidate, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(candidate, expected)
}

// Paystack requires a customer email; hotspot buyers only have a phone.
func syntheticEmail(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+") + "@hotspot.customer"
}
