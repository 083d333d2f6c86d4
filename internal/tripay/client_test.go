package tripay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "T45484", "api-key", "private-key", "https://shop.example", 4*time.Hour, &http.Client{Timeout: 2 * time.Second})
}

func TestClient_CreateTransaction(t *testing.T) {
	t.Run("creates transaction and signs the request", func(t *testing.T) {
		var received createRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/transaction/create" {
				t.Errorf("expected /transaction/create, got %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer api-key" {
				t.Errorf("unexpected authorization header: %s", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":{"reference":"T453TX123","checkout_url":"https://tripay.co.id/checkout/T453TX123","expired_time":1767225600}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		tx, err := client.CreateTransaction(context.Background(), TransactionRequest{
			MerchantRef:   "INV-123",
			Amount:        25000,
			CustomerEmail: "buyer@example.com",
			PackageID:     "chatgpt_plus_1_month",
			PackageName:   "ChatGPT Plus - 1 Bulan",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tx.Reference != "T453TX123" {
			t.Errorf("expected reference T453TX123, got %s", tx.Reference)
		}
		if tx.CheckoutURL != "https://tripay.co.id/checkout/T453TX123" {
			t.Errorf("unexpected checkout url: %s", tx.CheckoutURL)
		}
		if !tx.ExpiresAt.Equal(time.Unix(1767225600, 0)) {
			t.Errorf("expected expiry from gateway response, got %v", tx.ExpiresAt)
		}

		if received.Method != "QRIS" {
			t.Errorf("expected default method QRIS, got %s", received.Method)
		}
		if received.MerchantRef != "INV-123" {
			t.Errorf("unexpected merchant_ref: %s", received.MerchantRef)
		}
		if len(received.OrderItems) != 1 || received.OrderItems[0].SKU != "chatgpt_plus_1_month" {
			t.Errorf("unexpected order items: %+v", received.OrderItems)
		}

		mac := hmac.New(sha256.New, []byte("private-key"))
		mac.Write([]byte("T45484INV-12325000"))
		if want := hex.EncodeToString(mac.Sum(nil)); received.Signature != want {
			t.Errorf("expected signature %s, got %s", want, received.Signature)
		}
	})

	t.Run("gateway rejection is not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid amount"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateTransaction(context.Background(), TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error")
		}
		if IsRetryable(err) {
			t.Error("4xx rejection should not be retryable")
		}
	})

	t.Run("gateway 5xx is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateTransaction(context.Background(), TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsRetryable(err) {
			t.Error("5xx should be retryable")
		}
	})

	t.Run("unreachable gateway is retryable", func(t *testing.T) {
		_, err := newTestClient("http://127.0.0.1:1").CreateTransaction(context.Background(), TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsRetryable(err) {
			t.Error("transport failure should be retryable")
		}
	})

	t.Run("malformed response body is not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateTransaction(context.Background(), TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error")
		}
		if IsRetryable(err) {
			t.Error("malformed response should not be retryable")
		}
	})

	t.Run("success without checkout url is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateTransaction(context.Background(), TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient(server.URL).CreateTransaction(ctx, TransactionRequest{MerchantRef: "INV-1", Amount: 1})
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if !IsRetryable(err) {
			t.Error("cancelled call should classify as retryable transport failure")
		}
	})
}
