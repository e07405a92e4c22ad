package notify

import "context"

// Notifier delivers a short text message to a customer phone. Delivery is
// best effort: callers record the outcome but never retry inline.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// NopNotifier is used when no SMS provider is configured.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, string) error {
	return nil
}
