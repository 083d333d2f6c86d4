// Package invites is a stand-in for the invitation-delivery collaborator.
// It validates the request, simulates delivery latency and acknowledges.
package invites

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"net/mail"
	"time"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

type sendRequest struct {
	To        string `json:"to"`
	FullName  string `json:"full_name"`
	OrderID   string `json:"order_id"`
	PackageID string `json:"package_id"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.To == "" || req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing recipient or order id")
		return
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "invalid recipient address")
		return
	}

	delay := time.Duration(50+rand.Intn(151)) * time.Millisecond
	time.Sleep(delay)

	h.logger.Info("invitation sent", "to", req.To, "order_id", req.OrderID, "package_id", req.PackageID)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
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
