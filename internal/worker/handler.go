package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
)

// InvitationHandler fulfills paid orders: it asks the invitation service to
// deliver the invite, then reports the outcome back to the order API. The
// report endpoint applies a conditional transition, so redelivered events
// land as no-ops.
type InvitationHandler struct {
	invitesServiceURL string
	orderAPIURL       string
	httpClient        *http.Client
	logger            *slog.Logger
}

func NewInvitationHandler(invitesServiceURL, orderAPIURL string, client *http.Client, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitesServiceURL: invitesServiceURL,
		orderAPIURL:       orderAPIURL,
		httpClient:        client,
		logger:            logger,
	}
}

func (h *InvitationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPaidEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order paid event: %w", err)
	}

	h.logger.Info("processing paid order", "order_id", event.OrderID, "package_id", event.PackageID)

	delivered, err := h.sendInvitation(ctx, event)
	if err != nil {
		// Transport faults and invites-service 5xx: let the message
		// redeliver rather than guessing an outcome.
		h.logger.Error("invitation delivery attempt failed", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send invitation: %w", err)
	}

	status := domain.InvitationStatusSent
	if !delivered {
		// The invites service rejected the request outright; retrying the
		// same payload will not succeed, hand it to an operator.
		status = domain.InvitationStatusManualReview
	}

	if err := h.reportOutcome(ctx, event.OrderID, status); err != nil {
		h.logger.Error("failed to report invitation outcome", "error", err, "order_id", event.OrderID, "status", status)
		return fmt.Errorf("report invitation outcome: %w", err)
	}

	h.logger.Info("invitation processed", "order_id", event.OrderID, "status", status)
	return nil
}

type sendInvitationRequest struct {
	To        string `json:"to"`
	FullName  string `json:"full_name,omitempty"`
	OrderID   string `json:"order_id"`
	PackageID string `json:"package_id"`
}

// sendInvitation returns (false, nil) when the invites service rejects the
// request with a 4xx and an error for transport faults or 5xx.
func (h *InvitationHandler) sendInvitation(ctx context.Context, event domain.OrderPaidEvent) (bool, error) {
	body, err := json.Marshal(sendInvitationRequest{
		To:        event.CustomerEmail,
		FullName:  event.FullName,
		OrderID:   event.OrderID,
		PackageID: event.PackageID,
	})
	if err != nil {
		return false, fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.invitesServiceURL+"/send", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		h.logger.Warn("invites service rejected delivery", "status", resp.StatusCode, "order_id", event.OrderID)
		return false, nil
	default:
		return false, fmt.Errorf("invites service returned status %d", resp.StatusCode)
	}
}

func (h *InvitationHandler) reportOutcome(ctx context.Context, orderID string, status domain.InvitationStatus) error {
	body, err := json.Marshal(map[string]domain.InvitationStatus{"status": status})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/orders/%s/invitation", h.orderAPIURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Permanent rejections (unknown order, not paid) will not change on
		// a retry; redelivering the message would loop forever.
		h.logger.Warn("order API rejected invitation outcome", "status", resp.StatusCode, "order_id", orderID, "outcome", status)
		return nil
	default:
		return fmt.Errorf("order API returned status %d", resp.StatusCode)
	}
}
