package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

// Terminal reports whether the payment axis accepts no further transitions.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

type InvitationStatus string

const (
	InvitationStatusPending      InvitationStatus = "pending"
	InvitationStatusProcessing   InvitationStatus = "processing"
	InvitationStatusSent         InvitationStatus = "sent"
	InvitationStatusFailed       InvitationStatus = "failed"
	InvitationStatusManualReview InvitationStatus = "manual_review_required"
)

// Terminal reports whether the invitation axis accepts no further transitions.
func (s InvitationStatus) Terminal() bool {
	switch s {
	case InvitationStatusSent, InvitationStatusFailed, InvitationStatusManualReview:
		return true
	}
	return false
}

// Order is one purchase attempt. The two status axes are independent except
// that the invitation axis may only leave pending once the payment axis is
// paid. Identity fields (OrderID, CustomerEmail, PackageID, Amount) never
// change after creation, and orders are never deleted.
type Order struct {
	OrderID          string           `json:"order_id"`
	CustomerEmail    string           `json:"customer_email"`
	FullName         string           `json:"full_name,omitempty"`
	PhoneNumber      string           `json:"phone_number,omitempty"`
	PackageID        string           `json:"package_id"`
	Amount           int64            `json:"amount"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	InvitationStatus InvitationStatus `json:"invitation_status"`
	PaymentMethod    string           `json:"payment_method,omitempty"`
	GatewayReference string           `json:"gateway_reference,omitempty"`
	CheckoutURL      string           `json:"checkout_url,omitempty"`
	ExpiresAt        time.Time        `json:"expires_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
