package tripay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// GatewayError is returned for every failure mode of the gateway client.
// Retryable is true for transport errors, timeouts and gateway 5xx; false
// for rejected payloads and malformed responses.
type GatewayError struct {
	Message   string
	Retryable bool
}

func (e *GatewayError) Error() string {
	return "tripay: " + e.Message
}

// Client creates payment transactions against the Tripay API. It performs
// no persistence; callers store the order only after a successful response.
type Client struct {
	baseURL      string
	merchantCode string
	apiKey       string
	privateKey   []byte
	checkoutTTL  time.Duration
	returnURL    string
	httpClient   *http.Client
}

func NewClient(baseURL, merchantCode, apiKey, privateKey, returnURL string, checkoutTTL time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      baseURL,
		merchantCode: merchantCode,
		apiKey:       apiKey,
		privateKey:   []byte(privateKey),
		checkoutTTL:  checkoutTTL,
		returnURL:    returnURL,
		httpClient:   httpClient,
	}
}

type TransactionRequest struct {
	MerchantRef   string
	Method        string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PackageID     string
	PackageName   string
}

type Transaction struct {
	Reference   string
	CheckoutURL string
	ExpiresAt   time.Time
}

type orderItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type createRequest struct {
	Method        string      `json:"method"`
	MerchantRef   string      `json:"merchant_ref"`
	Amount        int64       `json:"amount"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone"`
	OrderItems    []orderItem `json:"order_items"`
	ReturnURL     string      `json:"return_url"`
	ExpiredTime   int64       `json:"expired_time"`
	Signature     string      `json:"signature"`
}

type createResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		CheckoutURL string `json:"checkout_url"`
		ExpiredTime int64  `json:"expired_time"`
	} `json:"data"`
}

// CreateTransaction registers a checkout with Tripay and returns the gateway
// reference and hosted payment page. Every error is a *GatewayError.
func (c *Client) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	if req.Method == "" {
		req.Method = "QRIS"
	}
	if req.CustomerName == "" {
		req.CustomerName = "Customer"
	}

	expiresAt := time.Now().Add(c.checkoutTTL)

	payload := createRequest{
		Method:        req.Method,
		MerchantRef:   req.MerchantRef,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		OrderItems: []orderItem{{
			SKU:      req.PackageID,
			Name:     req.PackageName,
			Price:    req.Amount,
			Quantity: 1,
		}},
		ReturnURL:   fmt.Sprintf("%s/confirmation?order_id=%s", c.returnURL, req.MerchantRef),
		ExpiredTime: expiresAt.Unix(),
		Signature:   c.requestSignature(req.MerchantRef, req.Amount),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Message: "marshal request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/create", bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Message: "create request: " + err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Message: "request failed: " + err.Error(), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, &GatewayError{Message: fmt.Sprintf("gateway returned status %d", resp.StatusCode), Retryable: true}
	}

	var result createResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &GatewayError{Message: "malformed gateway response: " + err.Error()}
	}

	if resp.StatusCode >= 400 || !result.Success {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return nil, &GatewayError{Message: msg}
	}

	if result.Data.Reference == "" || result.Data.CheckoutURL == "" {
		return nil, &GatewayError{Message: "gateway response missing reference or checkout_url"}
	}

	if result.Data.ExpiredTime > 0 {
		expiresAt = time.Unix(result.Data.ExpiredTime, 0)
	}

	return &Transaction{
		Reference:   result.Data.Reference,
		CheckoutURL: result.Data.CheckoutURL,
		ExpiresAt:   expiresAt,
	}, nil
}

// requestSignature authenticates the outbound transaction request. This is a
// distinct credential from callback verification: it signs the canonical
// merchantCode+merchantRef+amount string, not a request body.
func (c *Client) requestSignature(merchantRef string, amount int64) string {
	mac := hmac.New(sha256.New, c.privateKey)
	mac.Write([]byte(c.merchantCode + merchantRef + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// IsRetryable reports whether err is a gateway error worth retrying.
func IsRetryable(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}
