package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
	"github.com/aksesgptmurah/orderdesk/internal/tripay"
)

var meter = otel.Meter("orders")

// TransactionCreator is the gateway capability the create path needs. Test
// doubles substitute it at composition time.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req tripay.TransactionRequest) (*tripay.Transaction, error)
}

type Handler struct {
	repo          *Repository
	gateway       TransactionCreator
	catalog       Catalog
	logger        *slog.Logger
	ordersCreated metric.Int64Counter
}

func NewHandler(repo *Repository, gateway TransactionCreator, catalog Catalog, logger *slog.Logger) *Handler {
	ordersCreated, _ := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created, by outcome"))

	return &Handler{
		repo:          repo,
		gateway:       gateway,
		catalog:       catalog,
		logger:        logger,
		ordersCreated: ordersCreated,
	}
}

type createOrderRequest struct {
	CustomerEmail string `json:"customer_email"`
	PackageID     string `json:"package_id"`
	FullName      string `json:"full_name"`
	PhoneNumber   string `json:"phone_number"`
}

type createOrderResponse struct {
	OrderID     string `json:"order_id"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
}

// HandleCreate registers a checkout with the gateway and persists the order.
// The order row is written only after the gateway accepts the transaction:
// a failed gateway call leaves no partial order behind.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if details := validateCreateRequest(req); len(details) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	pkg, ok := h.catalog.Lookup(req.PackageID)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": map[string]string{"package_id": "unknown or inactive package"},
		})
		return
	}

	orderID := newOrderID()

	tx, err := h.gateway.CreateTransaction(r.Context(), tripay.TransactionRequest{
		MerchantRef:   orderID,
		Amount:        pkg.Price,
		CustomerName:  req.FullName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.PhoneNumber,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
	})
	if err != nil {
		h.logger.Error("gateway transaction failed", "error", err, "order_id", orderID, "retryable", tripay.IsRetryable(err))
		h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", "gateway_error")))
		h.writeError(w, http.StatusInternalServerError, "payment gateway error")
		return
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderID:          orderID,
		CustomerEmail:    req.CustomerEmail,
		FullName:         req.FullName,
		PhoneNumber:      req.PhoneNumber,
		PackageID:        pkg.ID,
		Amount:           pkg.Price,
		PaymentStatus:    domain.PaymentStatusPending,
		InvitationStatus: domain.InvitationStatusPending,
		PaymentMethod:    "QRIS",
		GatewayReference: tx.Reference,
		CheckoutURL:      tx.CheckoutURL,
		ExpiresAt:        tx.ExpiresAt,
		CreatedAt:        now,
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err, "order_id", orderID)
		h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", "storage_error")))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order created", "order_id", orderID, "package_id", pkg.ID, "reference", tx.Reference)
	h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(attribute.String("outcome", "created")))

	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:     orderID,
		Reference:   tx.Reference,
		CheckoutURL: tx.CheckoutURL,
		Amount:      pkg.Price,
		Status:      "pending_payment",
	})
}

type statusResponse struct {
	OrderID          string                  `json:"order_id"`
	PaymentStatus    domain.PaymentStatus    `json:"payment_status"`
	InvitationStatus domain.InvitationStatus `json:"invitation_status"`
	Message          string                  `json:"message"`
}

// HandleStatus is the read path consumed by the storefront polling client.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByOrderID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, statusResponse{
		OrderID:          order.OrderID,
		PaymentStatus:    order.PaymentStatus,
		InvitationStatus: order.InvitationStatus,
		Message:          StatusMessage(order),
	})
}

type invitationReportRequest struct {
	Status domain.InvitationStatus `json:"status"`
}

// HandleInvitationReport is the internal endpoint the invitation worker uses
// to record delivery outcomes. It rides the same conditional transition as
// the webhook path, so redelivered reports are harmless no-ops.
func (h *Handler) HandleInvitationReport(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req invitationReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Workers report delivery outcomes only; intermediate statuses are set
	// by the lifecycle engine.
	if !req.Status.Terminal() {
		h.writeError(w, http.StatusBadRequest, "invalid invitation status")
		return
	}

	order, applied, err := h.repo.ApplyInvitationTransition(r.Context(), orderID, req.Status)
	switch {
	case errors.Is(err, ErrNotPaid):
		h.writeError(w, http.StatusConflict, "order not paid")
		return
	case errors.Is(err, ErrConflict):
		h.logger.Warn("invitation report conflicts with stored status",
			"order_id", orderID, "reported", req.Status, "stored", order.InvitationStatus)
		h.writeJSON(w, http.StatusOK, order)
		return
	case err != nil:
		h.logger.Error("failed to apply invitation transition", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if applied {
		h.logger.Info("invitation status updated", "order_id", orderID, "status", req.Status)
	}
	h.writeJSON(w, http.StatusOK, order)
}

func validateCreateRequest(req createOrderRequest) map[string]string {
	details := make(map[string]string)

	if req.CustomerEmail == "" {
		details["customer_email"] = "customer_email is required"
	} else if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		details["customer_email"] = "customer_email is not a valid email address"
	}

	if req.PackageID == "" {
		details["package_id"] = "package_id is required"
	}

	return details
}

// newOrderID doubles as the gateway merchant_ref, so callbacks correlate
// back to the order without a separate mapping.
func newOrderID() string {
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
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
