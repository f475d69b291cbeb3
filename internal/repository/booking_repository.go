package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/model"
)

// BookingRepo provides access to the bookings table.  Bookings are never
// deleted; cancellation is a status transition.  All timestamps are UTC
// strings in model.TimestampLayout.
type BookingRepo struct {
	db *database.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *database.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, availability_id, order_id, customer_id, status, created_at, cancelled_at`

// CreateTx inserts a booking within the scope of an existing transaction.
// The ID must be assigned by the caller.  A second confirmed booking for the
// same order is rejected by a unique index and reported as ErrConflict.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	q := r.db.Dialect.Rebind(`INSERT INTO bookings (id, availability_id, order_id, customer_id, status, created_at)
	      VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := tx.ExecContext(ctx, q, b.ID, b.AvailabilityID, b.OrderID, b.CustomerID, b.Status, b.CreatedAt)
	if r.db.Dialect.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// HasConfirmedForOrderTx reports whether the order already holds a
// confirmed booking.
func (r *BookingRepo) HasConfirmedForOrderTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	q := r.db.Dialect.Rebind(`SELECT COUNT(*) FROM bookings WHERE order_id = ? AND status = ?`)
	var n int
	if err := tx.QueryRowContext(ctx, q, orderID, model.BookingConfirmed).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID returns a booking without locking it.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`)
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// GetForUpdateTx loads a booking by ID and locks it until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Booking, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?` + r.db.Dialect.ForUpdate())
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByOrderForUpdateTx resolves an order to its booking and locks it.  The
// confirmed booking wins; otherwise the most recent cancelled one is
// returned so callers can report that it was already cancelled.
func (r *BookingRepo) GetByOrderForUpdateTx(ctx context.Context, tx *sql.Tx, orderID string) (*model.Booking, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings
	      WHERE order_id = ?
	      ORDER BY CASE WHEN status = ? THEN 0 ELSE 1 END, created_at DESC, id DESC
	      LIMIT 1` + r.db.Dialect.ForUpdate())
	b, err := scanBooking(tx.QueryRowContext(ctx, q, orderID, model.BookingConfirmed))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

// CancelTx moves a confirmed booking to cancelled.  ErrConflict is returned
// when the booking is no longer confirmed.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id, now string) error {
	q := r.db.Dialect.Rebind(`UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`)
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, now, id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByAvailability returns all bookings held against an availability row,
// oldest first.
func (r *BookingRepo) ListByAvailability(ctx context.Context, availabilityID uint64) ([]model.Booking, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE availability_id = ? ORDER BY created_at, id`)
	rows, err := r.db.QueryContext(ctx, q, availabilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var b model.Booking
	var customerID, cancelledAt sql.NullString
	if err := s.Scan(&b.ID, &b.AvailabilityID, &b.OrderID, &customerID, &b.Status, &b.CreatedAt, &cancelledAt); err != nil {
		return nil, err
	}
	if customerID.Valid {
		c := customerID.String
		b.CustomerID = &c
	}
	if cancelledAt.Valid {
		t := cancelledAt.String
		b.CancelledAt = &t
	}
	return &b, nil
}
