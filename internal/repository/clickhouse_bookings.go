package repository

import (
	"context"

	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmoiron/sqlx"
)

// BookingFilter narrows the admin report. Zero values mean "any".
type BookingFilter struct {
	Status model.BookingStatus
	Phone  string // E.164
	Code   string // RH-######
	Limit  int
	Offset int
}

// CHBookingsRepository lists bookings from the ClickHouse read model
// (bookings_latest is fed from the MySQL binlog).
type CHBookingsRepository interface {
	List(ctx context.Context, f BookingFilter) ([]model.Booking, error)
}

type chBookingsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHBookingsRepository(ch *sqlx.DB) CHBookingsRepository {
	return &chBookingsRepository{ch: ch}
}

func (r *chBookingsRepository) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, booking_code, customer_name, phone_e164, message, status, created_at
		FROM rhbook.bookings_latest
		WHERE 1 = 1
	`
	var args []any

	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status.String())
	}
	if f.Phone != "" {
		q += " AND phone_e164 = ?"
		args = append(args, f.Phone)
	}
	if f.Code != "" {
		q += " AND booking_code = ?"
		args = append(args, f.Code)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.Booking
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
