// Package gateway wraps the Flutterwave REST API: hosted checkout
// initiation and transaction verification.  The orchestrator only ever
// sees the Client's two methods, so swapping providers means swapping
// this package.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.flutterwave.com/v3"

// Client calls the Flutterwave v3 API with a bearer secret key.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a gateway client.  baseURL may be empty to use the
// production endpoint; tests point it at a local server.
func NewClient(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutRequest describes a hosted-checkout initiation.
type CheckoutRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	TxRef       string `json:"tx_ref"`
	RedirectURL string `json:"redirect_url"`
	Customer    struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer"`
}

// Verification is the subset of the verify response the orchestrator
// cares about.
type Verification struct {
	Verified bool
	Amount   string
	Currency string
	TxRef    string
	Email    string
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitiateCheckout creates a hosted payment page and returns its link.
func (c *Client) InitiateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.Currency == "" {
		req.Currency = "USD"
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPost, "/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var data struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", err
	}
	if data.Link == "" {
		return "", errors.New("gateway: checkout response carried no link")
	}
	return data.Link, nil
}

// VerifyTransaction asks the gateway whether a transaction completed
// successfully.  A non-successful status is not an error; Verified is
// simply false.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error) {
	resp, err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID+"/verify", nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		TxRef    string  `json:"tx_ref"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, err
	}
	return &Verification{
		Verified: strings.EqualFold(data.Status, "successful"),
		Amount:   fmt.Sprintf("%.2f", data.Amount),
		Currency: data.Currency,
		TxRef:    data.TxRef,
		Email:    data.Customer.Email,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*apiResponse, error) {
	if c.secretKey == "" {
		return nil, errors.New("gateway: missing secret key")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway: %s %s returned %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Status, "success") {
		return nil, fmt.Errorf("gateway: %s", out.Message)
	}
	return &out, nil
}
