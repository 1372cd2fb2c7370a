// Package midtrans adapts Midtrans Snap and Core API to payment.Gateway.
package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"marketplace-be/pkg/payment"

	mt "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

const providerName = "midtrans"

type Client struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewClient(serverKey string, isProduction bool) *Client {
	env := mt.Sandbox
	if isProduction {
		env = mt.Production
	}

	c := &Client{serverKey: serverKey}
	c.snap.New(serverKey, env)
	c.core.New(serverKey, env)
	return c
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Initialize(ctx context.Context, req payment.InitializeRequest) payment.Result {
	snapReq := &snap.Request{
		TransactionDetails: mt.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.AmountMinor / 100,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		CustomerDetail: &mt.CustomerDetails{
			Email: req.Email,
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if req.CallbackURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	resp, err := c.snap.CreateTransaction(snapReq)
	if err != nil {
		return payment.Failure(fmt.Sprintf("midtrans error: %s", err.GetMessage()))
	}
	return payment.Success("Authorization URL created", map[string]interface{}{
		"authorization_url": resp.RedirectURL,
		"access_code":       resp.Token,
		"reference":         req.Reference,
	})
}

// Verify maps Midtrans transaction_status onto the normalized vocabulary.
func (c *Client) Verify(ctx context.Context, reference string) payment.Result {
	resp, err := c.core.CheckTransaction(reference)
	if err != nil {
		return payment.Failure(fmt.Sprintf("midtrans error: %s", err.GetMessage()))
	}
	return payment.Success(resp.StatusMessage, map[string]interface{}{
		"status":         normalizeStatus(resp.TransactionStatus, resp.FraudStatus),
		"reference":      resp.OrderID,
		"gross_amount":   resp.GrossAmount,
		"payment_type":   resp.PaymentType,
		"transaction_id": resp.TransactionID,
	})
}

func normalizeStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return "pending"
		}
		return "success"
	case "settlement":
		return "success"
	case "deny", "cancel", "expire", "failure":
		return "failed"
	default:
		return transactionStatus
	}
}

type notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusMessage     string `json:"status_message"`
}

// VerifyWebhookSignature checks signature_key inside the body:
// SHA512(order_id + status_code + gross_amount + server_key). The header
// value is unused; Midtrans does not send one.
func (c *Client) VerifyWebhookSignature(rawBody []byte, _ string) bool {
	var n notification
	if err := json.Unmarshal(rawBody, &n); err != nil || n.SignatureKey == "" || c.serverKey == "" {
		return false
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + c.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

func (c *Client) ParseWebhook(rawBody []byte) (payment.WebhookEvent, error) {
	var n notification
	if err := json.Unmarshal(rawBody, &n); err != nil {
		return payment.WebhookEvent{}, fmt.Errorf("decode midtrans notification: %w", err)
	}

	var data map[string]interface{}
	_ = json.Unmarshal(rawBody, &data)

	evt := payment.WebhookEvent{Reference: n.OrderID, Reason: n.StatusMessage, Data: data}
	switch normalizeStatus(n.TransactionStatus, n.FraudStatus) {
	case "success":
		evt.Event = payment.EventChargeSuccess
	case "failed":
		evt.Event = payment.EventChargeFailed
	default:
		evt.Event = "charge." + n.TransactionStatus
	}
	return evt, nil
}

var _ payment.Gateway = (*Client)(nil)
