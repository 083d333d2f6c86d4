package domain

import "time"

// OrderPaidEvent is published exactly once per order, on the first arrival
// of a paid callback.
type OrderPaidEvent struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	FullName      string    `json:"full_name,omitempty"`
	PackageID     string    `json:"package_id"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}
