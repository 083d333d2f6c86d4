package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/aksesgptmurah/orderdesk/internal/domain"
)

var (
	// ErrDuplicateOrder means an order_id is already taken. The generation
	// scheme should make this unreachable, but the insert still checks.
	ErrDuplicateOrder = errors.New("duplicate order")

	// ErrConflict means a transition was rejected because the stored status
	// is a different terminal value. The stored value wins; callbacks are
	// not assumed ordered.
	ErrConflict = errors.New("conflicting terminal status")

	// ErrNotPaid means an invitation transition was attempted before the
	// payment axis reached paid.
	ErrNotPaid = errors.New("order not paid")
)

const orderColumns = `order_id, customer_email, full_name, phone_number, package_id, amount,
		payment_status, invitation_status, payment_method, gateway_reference, checkout_url,
		expires_at, created_at, updated_at`

// Repository persists orders. All cross-request coordination happens here:
// transitions are single conditional UPDATEs, so two concurrent callbacks
// for one order serialize at the database and exactly one observes the
// first arrival.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, order.OrderID, order.CustomerEmail, nullable(order.FullName), nullable(order.PhoneNumber),
		order.PackageID, order.Amount, order.PaymentStatus, order.InvitationStatus,
		order.PaymentMethod, order.GatewayReference, order.CheckoutURL,
		order.ExpiresAt, order.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByOrderID returns nil, nil when the order does not exist.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
}

// FindByGatewayReference resolves the gateway's own transaction reference.
// Absence is a normal condition, not a fault.
func (r *Repository) FindByGatewayReference(ctx context.Context, reference string) (*domain.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_reference = $1`, reference)
}

// ApplyPaymentTransition moves the payment axis from pending to a terminal
// status as one atomic conditional update. The returned bool is true only
// when this call performed the transition (the first arrival). A repeat of
// the stored value is a harmless no-op; a different terminal value returns
// the stored order together with ErrConflict.
func (r *Repository) ApplyPaymentTransition(ctx context.Context, orderID string, status domain.PaymentStatus) (*domain.Order, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("payment transition to non-terminal status %q", status)
	}

	order, err := r.scanRow(r.db.QueryRowContext(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = NOW()
		WHERE order_id = $1 AND payment_status = 'pending'
		RETURNING `+orderColumns,
		orderID, status))
	if err == nil {
		return order, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("apply payment transition: %w", err)
	}

	// No row matched the guard: either the order is unknown or the axis is
	// already terminal. Re-read to tell duplicate from conflict.
	stored, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, nil
	}
	if stored.PaymentStatus == status {
		return stored, false, nil
	}
	return stored, false, ErrConflict
}

// ApplyInvitationTransition applies the same conditional-terminal discipline
// to the invitation axis. Transitions are rejected unless the payment axis
// is paid; processing may only be entered from pending.
func (r *Repository) ApplyInvitationTransition(ctx context.Context, orderID string, status domain.InvitationStatus) (*domain.Order, bool, error) {
	var guard string
	switch {
	case status == domain.InvitationStatusProcessing:
		guard = `invitation_status = 'pending'`
	case status.Terminal():
		guard = `invitation_status IN ('pending', 'processing')`
	default:
		return nil, false, fmt.Errorf("invitation transition to status %q", status)
	}

	order, err := r.scanRow(r.db.QueryRowContext(ctx, `
		UPDATE orders SET invitation_status = $2, updated_at = NOW()
		WHERE order_id = $1 AND payment_status = 'paid' AND `+guard+`
		RETURNING `+orderColumns,
		orderID, status))
	if err == nil {
		return order, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("apply invitation transition: %w", err)
	}

	stored, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, nil
	}
	if stored.PaymentStatus != domain.PaymentStatusPaid {
		return stored, false, ErrNotPaid
	}
	if stored.InvitationStatus == status {
		return stored, false, nil
	}
	return stored, false, ErrConflict
}

// ExpireOverdue force-transitions pending orders whose checkout deadline has
// passed. The guard keeps it safe against a racing paid callback: only one
// of the two wins the pending state.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'expired', updated_at = NOW()
		WHERE payment_status = 'pending' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue orders: %w", err)
	}
	return result.RowsAffected()
}

func (r *Repository) queryOne(ctx context.Context, query string, arg string) (*domain.Order, error) {
	order, err := r.scanRow(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

func (r *Repository) scanRow(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var fullName, phoneNumber sql.NullString

	err := row.Scan(&order.OrderID, &order.CustomerEmail, &fullName, &phoneNumber,
		&order.PackageID, &order.Amount, &order.PaymentStatus, &order.InvitationStatus,
		&order.PaymentMethod, &order.GatewayReference, &order.CheckoutURL,
		&order.ExpiresAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	order.FullName = fullName.String
	order.PhoneNumber = phoneNumber.String
	return order, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
