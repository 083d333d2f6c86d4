package orders

import (
	"fmt"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
)

// StatusMessage derives the polling client's one-sentence summary from the
// two status axes. It is total over every combination: anything not covered
// explicitly falls through to a generic processing sentence. The text is
// computed at read time and never persisted.
func StatusMessage(order *domain.Order) string {
	switch order.PaymentStatus {
	case domain.PaymentStatusPending:
		return "Menunggu pembayaran. Silakan selesaikan pembayaran sesuai instruksi."
	case domain.PaymentStatusFailed:
		return "Pembayaran gagal. Silakan coba lagi atau hubungi support."
	case domain.PaymentStatusExpired:
		return "Pembayaran kedaluwarsa. Silakan buat pesanan baru."
	case domain.PaymentStatusPaid:
		switch order.InvitationStatus {
		case domain.InvitationStatusPending:
			return "Pembayaran berhasil. Proses undangan akan segera dimulai."
		case domain.InvitationStatusProcessing:
			return "Pembayaran berhasil. Undangan sedang diproses dan akan dikirim dalam 5-30 menit."
		case domain.InvitationStatusSent:
			return fmt.Sprintf("Undangan ChatGPT Plus telah dikirim ke %s. Silakan cek inbox dan spam folder.", order.CustomerEmail)
		case domain.InvitationStatusFailed:
			return "Pembayaran berhasil, namun ada kendala dalam pengiriman undangan. Tim support akan menghubungi Anda."
		case domain.InvitationStatusManualReview:
			return "Pembayaran berhasil. Undangan memerlukan review manual. Tim support akan menghubungi Anda segera."
		}
	}
	return "Pesanan sedang diproses. Silakan hubungi support jika status tidak berubah."
}
