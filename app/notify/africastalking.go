package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type AfricasTalkingConfig struct {
	Username    string
	APIKey      string
	SenderID    string
	BaseURL     string
	HTTPTimeout time.Duration
}

type AfricasTalkingNotifier struct {
	cfg    AfricasTalkingConfig
	client *http.Client
}

func NewAfricasTalkingNotifier(cfg AfricasTalkingConfig) *AfricasTalkingNotifier {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.africastalking.com"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &AfricasTalkingNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *AfricasTalkingNotifier) Send(ctx context.Context, phone, message string) error {
	values := url.Values{}
	values.Set("username", n.cfg.Username)
	values.Set("to", phone)
	values.Set("message", message)
	if strings.TrimSpace(n.cfg.SenderID) != "" {
		values.Set("from", n.cfg.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/version1/messaging", strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("apiKey", n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("africastalking send failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return nil
}
