package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/shopspring/decimal"
)

const darajaTimestampLayout = "20060102150405"

// Daraja STK-push result codes. 0 is the only success; 1032 is the customer
// pressing cancel on the SIM prompt.
const (
	darajaResultSuccess    = "0"
	darajaResultUserCancel = "1032"
	darajaErrorInFlight    = "500.001.1001"
)

type DarajaConfig struct {
	Shortcode      string
	Passkey        string
	ConsumerKey    string
	ConsumerSecret string

	BaseURL     string
	CallbackURL string
	HTTPTimeout time.Duration
}

type DarajaGateway struct {
	cfg    DarajaConfig
	client *http.Client
	now    func() time.Time
}

func NewDarajaGateway(cfg DarajaConfig) *DarajaGateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.safaricom.co.ke"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DarajaGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewDarajaBuilder adapts per-tenant credential rows into gateways sharing
// the environment-level base/callback URLs and timeout.
func NewDarajaBuilder(baseURL, callbackURL string, timeout time.Duration) Builder {
	return func(settings *entity.GatewaySettings) Gateway {
		return NewDarajaGateway(DarajaConfig{
			Shortcode:      settings.DarajaShortcode,
			Passkey:        settings.DarajaPasskey,
			ConsumerKey:    settings.DarajaConsumerKey,
			ConsumerSecret: settings.DarajaConsumerSecret,
			BaseURL:        baseURL,
			CallbackURL:    callbackURL,
			HTTPTimeout:    timeout,
		})
	}
}

func (g *DarajaGateway) Code() int32 {
	return entity.GatewayDaraja
}

func (g *DarajaGateway) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := g.now().Format(darajaTimestampLayout)
	request := map[string]string{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          g.stkPassword(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            input.Amount.String(),
		"PartyA":            input.Phone,
		"PartyB":            g.cfg.Shortcode,
		"PhoneNumber":       input.Phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  input.AccountRef,
		"TransactionDesc":   input.Description,
	}

	body, err := g.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, request)
	if err != nil {
		return nil, err
	}

	var payload struct {
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.ResponseCode != darajaResultSuccess {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, payload.ResponseDescription)
	}
	if strings.TrimSpace(payload.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("%w: stk push response missing CheckoutRequestID", ErrUpstreamRejected)
	}

	return &InitiateOutput{
		CheckoutRef:     payload.CheckoutRequestID,
		CustomerMessage: payload.CustomerMessage,
	}, nil
}

// ParseCallback extracts the stkCallback body. The signature argument is
// unused: Daraja does not sign callbacks, the callback URL itself is the
// shared secret.
func (g *DarajaGateway) ParseCallback(payload []byte, _ string) (*ConfirmationEvent, error) {
	var body struct {
		Body struct {
			StkCallback *struct {
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        *int64 `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
				CallbackMetadata  struct {
					Item []struct {
						Name  string      `json:"Name"`
						Value interface{} `json:"Value"`
					} `json:"Item"`
				} `json:"CallbackMetadata"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	callback := body.Body.StkCallback
	if callback == nil || strings.TrimSpace(callback.CheckoutRequestID) == "" || callback.ResultCode == nil {
		return nil, fmt.Errorf("%w: missing stkCallback fields", ErrMalformedCallback)
	}

	event := &ConfirmationEvent{
		CheckoutRef: callback.CheckoutRequestID,
		ResultCode:  strconv.FormatInt(*callback.ResultCode, 10),
		ResultDesc:  callback.ResultDesc,
		CompletedAt: g.now(),
	}

	if *callback.ResultCode != 0 {
		event.Outcome = OutcomeFailure
		return event, nil
	}

	event.Outcome = OutcomeSuccess
	for _, item := range callback.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			event.Amount = decimalFromMetadata(item.Value)
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok && strings.TrimSpace(s) != "" {
				receipt := strings.TrimSpace(s)
				event.ReceiptID = &receipt
			}
		case "PhoneNumber":
			event.PayerPhone = stringFromMetadata(item.Value)
		case "TransactionDate":
			if ts, err := time.Parse(darajaTimestampLayout, stringFromMetadata(item.Value)); err == nil {
				event.CompletedAt = ts
			}
		}
	}

	return event, nil
}

func (g *DarajaGateway) QueryStatus(ctx context.Context, checkoutRef string) (*ConfirmationEvent, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := g.now().Format(darajaTimestampLayout)
	request := map[string]string{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          g.stkPassword(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRef,
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/mpesa/stkpushquery/v1/query", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
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

	if resp.StatusCode >= 400 {
		var errPayload struct {
			ErrorCode    string `json:"errorCode"`
			ErrorMessage string `json:"errorMessage"`
		}
		// Daraja reports a still-running STK prompt as an HTTP error.
		if json.Unmarshal(body, &errPayload) == nil && errPayload.ErrorCode == darajaErrorInFlight {
			return &ConfirmationEvent{
				CheckoutRef: checkoutRef,
				Outcome:     OutcomePending,
				ResultCode:  errPayload.ErrorCode,
				ResultDesc:  errPayload.ErrorMessage,
			}, nil
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status=%d body=%s", ErrUpstreamAuth, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("daraja stk query failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	event := &ConfirmationEvent{
		CheckoutRef: checkoutRef,
		ResultCode:  payload.ResultCode,
		ResultDesc:  payload.ResultDesc,
		CompletedAt: g.now(),
	}
	if payload.ResultCode == darajaResultSuccess {
		event.Outcome = OutcomeSuccess
	} else {
		event.Outcome = OutcomeFailure
		if payload.ResultCode == darajaResultUserCancel && strings.TrimSpace(payload.ResultDesc) == "" {
			event.ResultDesc = "Request cancelled by user"
		}
	}

	return event, nil
}

func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status=%d body=%s", ErrUpstreamAuth, resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUpstreamAuth)
	}

	return payload.AccessToken, nil
}

func (g *DarajaGateway) postJSON(ctx context.Context, path, token string, request interface{}) ([]byte, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
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
		return nil, fmt.Errorf("%w: path=%s status=%d body=%s", ErrUpstreamRejected, path, resp.StatusCode, string(body))
	}

	return body, nil
}

func (g *DarajaGateway) stkPassword(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp))
}

func decimalFromMetadata(v interface{}) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(t)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func stringFromMetadata(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	}
	return ""
}
