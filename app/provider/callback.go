package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

// PeekCheckoutRef extracts only the checkout reference from a raw callback
// payload, so the owning transaction and its tenant credentials can be
// located before the payload is fully verified and parsed.
func PeekCheckoutRef(code int32, payload []byte) (string, error) {
	switch code {
	case entity.GatewayDaraja:
		var body struct {
			Body struct {
				StkCallback struct {
					CheckoutRequestID string `json:"CheckoutRequestID"`
				} `json:"stkCallback"`
			} `json:"Body"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		ref := strings.TrimSpace(body.Body.StkCallback.CheckoutRequestID)
		if ref == "" {
			return "", fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
		}
		return ref, nil

	case entity.GatewayPaystack:
		var body struct {
			Data struct {
				Reference string `json:"reference"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
		ref := strings.TrimSpace(body.Data.Reference)
		if ref == "" {
			return "", fmt.Errorf("%w: missing reference", ErrMalformedCallback)
		}
		return ref, nil

	default:
		return "", ErrGatewayNotSupported
	}
}
