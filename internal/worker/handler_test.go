package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
)

type reportCapture struct {
	mu      sync.Mutex
	reports []string
	paths   []string
}

func (c *reportCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.reports = append(c.reports, req.Status)
	c.paths = append(c.paths, r.URL.Path)
	c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"order_id":"INV-1"}`)
}

func (c *reportCapture) statuses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]string, len(c.reports))
	copy(result, c.reports)
	return result
}

func eventPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(domain.OrderPaidEvent{
		OrderID:       "INV-1",
		CustomerEmail: "buyer@example.com",
		PackageID:     "chatgpt_plus_1_month",
		Amount:        25000,
		PaidAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return payload
}

func newTestWorker(t *testing.T, invitesStatus int) (*InvitationHandler, *reportCapture, func()) {
	t.Helper()

	invitesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" {
			t.Errorf("expected /send, got %s", r.URL.Path)
		}
		w.WriteHeader(invitesStatus)
		_, _ = io.WriteString(w, `{"status":"sent"}`)
	}))

	capture := &reportCapture{}
	apiServer := httptest.NewServer(http.HandlerFunc(capture.handler))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewInvitationHandler(invitesServer.URL, apiServer.URL, &http.Client{Timeout: 5 * time.Second}, logger)

	cleanup := func() {
		invitesServer.Close()
		apiServer.Close()
	}
	return handler, capture, cleanup
}

func TestInvitationHandler_Handle(t *testing.T) {
	t.Run("successful delivery reports sent", func(t *testing.T) {
		handler, capture, cleanup := newTestWorker(t, http.StatusOK)
		defer cleanup()

		if err := handler.Handle(context.Background(), eventPayload(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		statuses := capture.statuses()
		if len(statuses) != 1 || statuses[0] != "sent" {
			t.Fatalf("expected one 'sent' report, got %v", statuses)
		}
		if capture.paths[0] != "/internal/orders/INV-1/invitation" {
			t.Errorf("unexpected report path: %s", capture.paths[0])
		}
	})

	t.Run("rejected delivery reports manual review", func(t *testing.T) {
		handler, capture, cleanup := newTestWorker(t, http.StatusUnprocessableEntity)
		defer cleanup()

		if err := handler.Handle(context.Background(), eventPayload(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		statuses := capture.statuses()
		if len(statuses) != 1 || statuses[0] != "manual_review_required" {
			t.Fatalf("expected one 'manual_review_required' report, got %v", statuses)
		}
	})

	t.Run("invites service 5xx returns an error for redelivery", func(t *testing.T) {
		handler, capture, cleanup := newTestWorker(t, http.StatusInternalServerError)
		defer cleanup()

		if err := handler.Handle(context.Background(), eventPayload(t)); err == nil {
			t.Fatal("expected error so the message is redelivered")
		}
		if len(capture.statuses()) != 0 {
			t.Error("no outcome must be reported on a transient failure")
		}
	})

	t.Run("order API 4xx is terminal and drops the message", func(t *testing.T) {
		invitesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"sent"}`)
		}))
		defer invitesServer.Close()

		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "order not found", http.StatusNotFound)
		}))
		defer apiServer.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := NewInvitationHandler(invitesServer.URL, apiServer.URL, &http.Client{Timeout: 5 * time.Second}, logger)

		if err := handler.Handle(context.Background(), eventPayload(t)); err != nil {
			t.Fatalf("a permanent rejection must not redeliver, got %v", err)
		}
	})

	t.Run("order API 5xx returns an error for redelivery", func(t *testing.T) {
		invitesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"sent"}`)
		}))
		defer invitesServer.Close()

		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}))
		defer apiServer.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := NewInvitationHandler(invitesServer.URL, apiServer.URL, &http.Client{Timeout: 5 * time.Second}, logger)

		if err := handler.Handle(context.Background(), eventPayload(t)); err == nil {
			t.Fatal("expected error so the outcome report is retried")
		}
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		handler, _, cleanup := newTestWorker(t, http.StatusOK)
		defer cleanup()

		if err := handler.Handle(context.Background(), []byte(`not json`)); err == nil {
			t.Fatal("expected error for malformed payload")
		}
	})
}
