// Package paystack talks to the Paystack transaction API.
package paystack

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
	"strings"
	"time"

	"marketplace-be/pkg/payment"
)

const (
	DefaultBaseURL  = "https://api.paystack.co"
	SignatureHeader = "x-paystack-signature"
	providerName    = "paystack"
)

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return providerName
}

// envelope is the shape of every Paystack API response.
type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 && env.Message == "" {
		env.Message = fmt.Sprintf("paystack returned HTTP %d", resp.StatusCode)
	}
	return &env, nil
}

func (c *Client) Initialize(ctx context.Context, req payment.InitializeRequest) payment.Result {
	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
	}
	if req.Currency != "" {
		body["currency"] = req.Currency
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	if len(req.Channels) > 0 {
		body["channels"] = req.Channels
	}

	env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return payment.Failure(fmt.Sprintf("paystack initialize failed: %v", err))
	}
	if !env.Status {
		return payment.Failure(env.Message)
	}
	return payment.Success(env.Message, env.Data)
}

func (c *Client) Verify(ctx context.Context, reference string) payment.Result {
	env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return payment.Failure(fmt.Sprintf("paystack verify failed: %v", err))
	}
	if !env.Status {
		return payment.Failure(env.Message)
	}
	return payment.Success(env.Message, env.Data)
}

// VerifyWebhookSignature checks the lowercase hex HMAC-SHA512 of the raw body.
// The header is compared byte for byte as sent.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if signature == "" || c.secretKey == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) ParseWebhook(rawBody []byte) (payment.WebhookEvent, error) {
	var body struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return payment.WebhookEvent{}, fmt.Errorf("decode paystack webhook: %w", err)
	}

	evt := payment.WebhookEvent{Event: body.Event, Data: body.Data}
	if ref, ok := body.Data["reference"].(string); ok {
		evt.Reference = ref
	}
	if reason, ok := body.Data["gateway_response"].(string); ok {
		evt.Reason = reason
	}
	// invoice events carry the charge reference under transaction
	if evt.Reference == "" {
		if tx, ok := body.Data["transaction"].(map[string]interface{}); ok {
			evt.Reference, _ = tx["reference"].(string)
		}
	}
	if evt.Reason == "" {
		if desc, ok := body.Data["description"].(string); ok {
			evt.Reason = desc
		}
	}
	return evt, nil
}

var _ payment.Gateway = (*Client)(nil)
