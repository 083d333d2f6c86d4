package tripay

import "github.com/aksesgptmurah/orderdesk/internal/domain"

// EventPaymentStatus is the only callback event this service acts on.
const EventPaymentStatus = "payment_status"

// SignatureHeader carries the callback HMAC.
const SignatureHeader = "X-Callback-Signature"

// CallbackPayload is the wire format of a Tripay webhook delivery.
type CallbackPayload struct {
	Event string       `json:"event"`
	Data  CallbackData `json:"data"`
}

type CallbackData struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	PaidAt      int64  `json:"paid_at"`
	Note        string `json:"note"`
}

// MapStatus translates the gateway vocabulary to the local payment enum.
// Anything unrecognized (UNPAID, REFUND, future values) maps to pending and
// is ignored by the lifecycle engine, never guessed at.
func MapStatus(gatewayStatus string) domain.PaymentStatus {
	switch gatewayStatus {
	case "PAID":
		return domain.PaymentStatusPaid
	case "FAILED":
		return domain.PaymentStatusFailed
	case "EXPIRED":
		return domain.PaymentStatusExpired
	default:
		return domain.PaymentStatusPending
	}
}
