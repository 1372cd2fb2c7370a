package payment

import "context"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Normalized webhook event names. Providers map their own vocabulary onto these.
const (
	EventChargeSuccess        = "charge.success"
	EventChargeFailed         = "charge.failed"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Result is what every gateway call returns. Provider and transport failures
// are reported as Status "error" with a Message, never as a Go error.
type Result struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func Success(message string, data map[string]interface{}) Result {
	return Result{Status: StatusSuccess, Message: message, Data: data}
}

func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// String reads a string field from Result.Data.
func (r Result) String(key string) string {
	if r.Data == nil {
		return ""
	}
	s, _ := r.Data[key].(string)
	return s
}

type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Reference   string
	Currency    string
	CallbackURL string
	Metadata    map[string]interface{}
	Channels    []string
}

// WebhookEvent is a provider notification reduced to what the payment flow needs.
type WebhookEvent struct {
	Event     string
	Reference string
	Reason    string
	Data      map[string]interface{}
}

type Gateway interface {
	Name() string
	// Initialize starts a charge. On success Data carries "authorization_url"
	// and "reference".
	Initialize(ctx context.Context, req InitializeRequest) Result
	// Verify asks the provider for the final state of a charge. On success
	// Data carries "status" ("success", "failed", ...) and "amount" in minor units.
	Verify(ctx context.Context, reference string) Result
	VerifyWebhookSignature(rawBody []byte, signature string) bool
	ParseWebhook(rawBody []byte) (WebhookEvent, error)
}
