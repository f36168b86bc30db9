package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmoiron/sqlx"
)

// BookingStore is the transactional store the intake and audit services
// work against: the booking row and its outbox event commit together.
type BookingStore struct {
	db       *sqlx.DB
	bookings BookingsRepository
	outbox   OutboxRepository
	now      func() time.Time
}

func NewBookingStore(db *sqlx.DB, bookings BookingsRepository, outbox OutboxRepository) *BookingStore {
	return &BookingStore{db: db, bookings: bookings, outbox: outbox, now: time.Now}
}

func (s *BookingStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.bookings.ExistsByCode(ctx, code)
}

// Create inserts b and its booking.created outbox event in one transaction.
// ErrDuplicateCode is returned unwrapped so callers can retry.
func (s *BookingStore) Create(ctx context.Context, b *model.Booking) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.bookings.Insert(ctx, tx, b); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return err
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	ev, err := NewBookingCreatedEvent(b, s.now().UTC())
	if err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, ev); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *BookingStore) List(ctx context.Context) ([]model.Booking, error) {
	return s.bookings.List(ctx)
}

func (s *BookingStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingStore) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	return s.bookings.UpdateStatus(ctx, id, status)
}

func (s *BookingStore) Delete(ctx context.Context, id int64) error {
	return s.bookings.Delete(ctx, id)
}
