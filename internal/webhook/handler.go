package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aksesgptmurah/orderdesk/internal/tripay"
)

var meter = otel.Meter("webhook")

// maxBodySize bounds callback bodies. Tripay payloads are small; anything
// larger is not a genuine callback.
const maxBodySize = 64 * 1024

// SignatureVerifier authenticates raw callback bytes.
type SignatureVerifier interface {
	Verify(rawBody []byte, signature string) bool
}

// Handler is the inbound webhook endpoint. It authenticates the raw body
// before parsing it: unverified bytes are never deserialized.
type Handler struct {
	verifier  SignatureVerifier
	engine    *Engine
	logger    *slog.Logger
	callbacks metric.Int64Counter
}

func NewHandler(verifier SignatureVerifier, engine *Engine, logger *slog.Logger) *Handler {
	callbacks, _ := meter.Int64Counter("webhook.callbacks",
		metric.WithDescription("Payment callbacks received, by outcome"))

	return &Handler{
		verifier:  verifier,
		engine:    engine,
		logger:    logger,
		callbacks: callbacks,
	}
}

func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get(tripay.SignatureHeader)
	if !h.verifier.Verify(rawBody, signature) {
		// Minimal detail on purpose: the computed signature is never echoed.
		h.logger.Warn("callback signature rejected", "remote_addr", r.RemoteAddr)
		h.count(r, "unauthorized")
		h.writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload tripay.CallbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Warn("callback body unparseable", "error", err)
		h.count(r, "malformed")
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if payload.Event != tripay.EventPaymentStatus {
		h.count(r, "unhandled_event")
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "event not handled"})
		return
	}

	outcome, err := h.engine.HandleCallback(r.Context(), payload.Data)
	if errors.Is(err, ErrOrderNotFound) {
		h.logger.Warn("callback for unknown order", "merchant_ref", payload.Data.MerchantRef, "reference", payload.Data.Reference)
		h.count(r, "not_found")
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		// 5xx makes the gateway redeliver; the transition path is
		// idempotent, so retry is always safe.
		h.logger.Error("callback processing failed", "error", err, "merchant_ref", payload.Data.MerchantRef)
		h.count(r, "error")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.count(r, string(outcome))
	h.writeJSON(w, http.StatusOK, map[string]string{
		"success": "true",
		"status":  string(outcome),
	})
}

func (h *Handler) count(r *http.Request, outcome string) {
	h.callbacks.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
