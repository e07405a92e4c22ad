package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// CallbackAck is the fixed acknowledgement body for provider callbacks.
// Daraja treats anything else as a delivery failure and retries, so the
// handler returns this shape no matter what happened internally.
type CallbackAck struct {
	ResultCode int32  `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func NewCallbackAck() *CallbackAck {
	return &CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}
}

type InitiatePaymentResponse struct {
	Reference       string  `json:"reference"`
	CustomerMessage string  `json:"customer_message"`
	CheckoutURL     *string `json:"checkout_url,omitempty"`
}

type VoucherPayload struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type PollStatusResponse struct {
	Reference   string          `json:"reference"`
	State       string          `json:"state"`
	Message     string          `json:"message"`
	PackageName string          `json:"package_name,omitempty"`
	ReceiptID   string          `json:"receipt_id,omitempty"`
	Voucher     *VoucherPayload `json:"voucher,omitempty"`
}

type VoucherLookupResponse struct {
	Reference string          `json:"reference"`
	Voucher   *VoucherPayload `json:"voucher"`
}

type TransactionPayload struct {
	ID                uint64  `json:"id"`
	Reference         string  `json:"reference"`
	Provider          int32   `json:"provider"`
	TenantID          uint64  `json:"tenant_id"`
	PackageID         uint64  `json:"package_id"`
	RouterID          *uint64 `json:"router_id,omitempty"`
	Phone             string  `json:"phone"`
	Amount            string  `json:"amount"`
	Status            int32   `json:"status"`
	ResultCode        string  `json:"result_code,omitempty"`
	ResultDesc        string  `json:"result_desc,omitempty"`
	ReceiptID         string  `json:"receipt_id,omitempty"`
	VoucherCode       string  `json:"voucher_code,omitempty"`
	FulfillmentStatus int32   `json:"fulfillment_status"`
	NotifyStatus      int32   `json:"notify_status"`
	CreatedAt         string  `json:"created_at"`
	CompletedAt       string  `json:"completed_at,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*TransactionPayload `json:"transactions"`
}
