package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrPackageNotFound      = errors.New("package not found")
	ErrGatewayNotConfigured = errors.New("gateway not configured for tenant")
	ErrGatewayUnsupported   = errors.New("gateway is not supported")
	ErrNoVoucherAvailable   = errors.New("no voucher available")
	ErrVoucherNotFound      = errors.New("voucher not found")
	ErrCallbackRejected     = errors.New("callback rejected")
)
