package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/rh-booking/internal/model"
	"github.com/jmoiron/sqlx"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

var (
	ErrNotFound = errors.New("booking not found")
	// ErrDuplicateCode is returned when the unique index on booking_code
	// rejects an insert. Callers retry with a fresh code.
	ErrDuplicateCode = errors.New("duplicate booking code")
)

// BookingsRepository defines persistence for the bookings table.
type BookingsRepository interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, tx *sqlx.Tx, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	List(ctx context.Context) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	Delete(ctx context.Context, id int64) error
}

type BookingsRepositoryImpl struct {
	db *sqlx.DB
}

func NewBookingsRepository(db *sqlx.DB) *BookingsRepositoryImpl {
	return &BookingsRepositoryImpl{db: db}
}

var _ BookingsRepository = (*BookingsRepositoryImpl)(nil)

func (r *BookingsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// ExistsByCode checks live bookings and codes retired by deletion, so a
// deleted booking's code is never handed out again.
func (r *BookingsRepositoryImpl) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT
		    EXISTS(SELECT 1 FROM bookings WHERE booking_code = ?)
		  + EXISTS(SELECT 1 FROM retired_booking_codes WHERE booking_code = ?)
	`, code, code)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert writes a new booking and sets b.ID. A booking_code collision is
// reported as ErrDuplicateCode.
func (r *BookingsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, b *model.Booking) error {
	const q = `
		INSERT INTO bookings
		    (booking_code, customer_name, phone_e164, message, status, created_at)
		VALUES
		    (?,            ?,             ?,          ?,       ?,      ?)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			b.BookingCode, b.CustomerName, b.PhoneE164, b.Message, b.Status.String(), b.CreatedAt,
		)
		if err != nil {
			if isDuplicateEntry(err) {
				return ErrDuplicateCode
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = id
		return nil
	})
}

func (r *BookingsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT id, booking_code, customer_name, phone_e164, message, status, created_at
		  FROM bookings
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns every booking, newest first.
func (r *BookingsRepositoryImpl) List(ctx context.Context) ([]model.Booking, error) {
	var rows []model.Booking
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, booking_code, customer_name, phone_e164, message, status, created_at
		  FROM bookings
		 ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus relies on clientFoundRows=true in the DSN so that setting the
// current status again still counts as a match.
func (r *BookingsRepositoryImpl) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a booking and retires its code in the same transaction.
func (r *BookingsRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		var code string
		err := tx.GetContext(ctx, &code, `SELECT booking_code FROM bookings WHERE id = ? FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO retired_booking_codes (booking_code, retired_at)
			VALUES (?, NOW())
			ON DUPLICATE KEY UPDATE booking_code = booking_code
		`, code); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		return err
	})
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
