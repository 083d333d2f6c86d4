package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
	"github.com/aksesgptmurah/orderdesk/internal/orders"
	"github.com/aksesgptmurah/orderdesk/internal/tripay"
)

// ErrOrderNotFound means no order matches the callback's references. The
// engine never fabricates an order from a webhook.
var ErrOrderNotFound = errors.New("order not found")

// Outcome classifies how a verified callback was absorbed.
type Outcome string

const (
	// OutcomeApplied: the transition was performed by this delivery.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the stored status already matched (at-least-once
	// delivery); nothing changed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeConflict: a different terminal status is already stored; the
	// stored value wins and the gateway is acknowledged so it stops retrying.
	OutcomeConflict Outcome = "conflict"
	// OutcomeIgnored: the reported status does not map to a local terminal
	// status (UNPAID, REFUND, unknown vocabulary).
	OutcomeIgnored Outcome = "ignored"
)

// OrderStore is the persistence capability the engine needs.
type OrderStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	FindByGatewayReference(ctx context.Context, reference string) (*domain.Order, error)
	ApplyPaymentTransition(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, bool, error)
	ApplyInvitationTransition(ctx context.Context, orderID string, status domain.InvitationStatus) (*domain.Order, bool, error)
}

// EventPublisher signals the fulfillment collaborator.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Engine is the authoritative state machine reacting to one verified
// callback at a time. All race-safety lives in the store's conditional
// transitions; the engine holds no state of its own.
type Engine struct {
	store     OrderStore
	publisher EventPublisher
	logger    *slog.Logger
}

func NewEngine(store OrderStore, publisher EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{store: store, publisher: publisher, logger: logger}
}

// HandleCallback applies one verified payment-status callback. A non-nil
// error means the delivery should be retried by the gateway (5xx), except
// ErrOrderNotFound which maps to 404.
func (e *Engine) HandleCallback(ctx context.Context, data tripay.CallbackData) (Outcome, error) {
	order, err := e.resolve(ctx, data)
	if err != nil {
		return "", err
	}

	status := tripay.MapStatus(data.Status)
	if !status.Terminal() {
		e.logger.Info("callback status ignored", "order_id", order.OrderID, "gateway_status", data.Status)
		return OutcomeIgnored, nil
	}

	updated, applied, err := e.store.ApplyPaymentTransition(ctx, order.OrderID, status)
	if errors.Is(err, orders.ErrConflict) {
		e.logger.Warn("callback conflicts with stored terminal status",
			"order_id", order.OrderID, "reported", status, "stored", updated.PaymentStatus)
		return OutcomeConflict, nil
	}
	if err != nil {
		return "", fmt.Errorf("apply payment transition: %w", err)
	}
	if updated == nil {
		return "", ErrOrderNotFound
	}

	if !applied {
		// A paid duplicate with the invitation still pending means an
		// earlier delivery failed between the payment transition and the
		// publish; re-enter fulfillment so the signal is not lost.
		if status == domain.PaymentStatusPaid && updated.InvitationStatus == domain.InvitationStatusPending {
			if err := e.startFulfillment(ctx, updated, data); err != nil {
				return "", err
			}
			return OutcomeDuplicate, nil
		}
		e.logger.Info("duplicate callback ignored", "order_id", order.OrderID, "status", status)
		return OutcomeDuplicate, nil
	}

	e.logger.Info("payment status updated", "order_id", order.OrderID, "status", status)

	// First arrival of paid: this delivery won the pending state, so the
	// fulfillment signal below fires exactly once per order.
	if status == domain.PaymentStatusPaid {
		if err := e.startFulfillment(ctx, updated, data); err != nil {
			return "", err
		}
	}

	return OutcomeApplied, nil
}

func (e *Engine) resolve(ctx context.Context, data tripay.CallbackData) (*domain.Order, error) {
	if data.MerchantRef != "" {
		order, err := e.store.GetByOrderID(ctx, data.MerchantRef)
		if err != nil {
			return nil, fmt.Errorf("resolve merchant_ref: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	if data.Reference != "" {
		order, err := e.store.FindByGatewayReference(ctx, data.Reference)
		if err != nil {
			return nil, fmt.Errorf("resolve gateway reference: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	return nil, ErrOrderNotFound
}

func (e *Engine) startFulfillment(ctx context.Context, order *domain.Order, data tripay.CallbackData) error {
	paidAt := time.Now().UTC()
	if data.PaidAt > 0 {
		paidAt = time.Unix(data.PaidAt, 0).UTC()
	}

	event := domain.OrderPaidEvent{
		OrderID:       order.OrderID,
		CustomerEmail: order.CustomerEmail,
		FullName:      order.FullName,
		PackageID:     order.PackageID,
		Amount:        order.Amount,
		PaidAt:        paidAt,
	}

	// Publish before moving the invitation axis: a failure in either step
	// surfaces as 5xx and the redelivery re-enters here while the invitation
	// is still pending. A repeated publish is harmless, the worker's outcome
	// report rides an idempotent conditional transition.
	if err := e.publisher.Publish(ctx, order.OrderID, event); err != nil {
		return fmt.Errorf("publish order paid event: %w", err)
	}

	if _, _, err := e.store.ApplyInvitationTransition(ctx, order.OrderID, domain.InvitationStatusProcessing); err != nil {
		return fmt.Errorf("move invitation to processing: %w", err)
	}

	e.logger.Info("fulfillment signaled", "order_id", order.OrderID)
	return nil
}
