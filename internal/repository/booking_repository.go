package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// ErrBookingNotFound is returned when a booking id is unknown.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo provides CRUD operations for expedition bookings.  Totals are
// computed inside the INSERT from the expedition's current base price so
// the stored amount always equals base price times party size.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.user_id, b.expedition_id, b.number_of_people, b.total_amount_cents,
	       b.status, b.payment_status, b.special_requests, b.created_at, b.updated_at,
	       e.title, e.slug, e.hero_image,
	       u.name, u.email
	FROM bookings b
	JOIN expeditions e ON e.id = b.expedition_id
	JOIN users u ON u.id = b.user_id`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b   model.Booking
		exp model.ExpeditionRef
		usr model.UserSummary
	)
	err := s.Scan(&b.ID, &b.UserID, &b.ExpeditionID, &b.NumberOfPeople, &b.TotalAmountCents,
		&b.Status, &b.PaymentStatus, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt,
		&exp.Title, &exp.Slug, &exp.HeroImage,
		&usr.Name, &usr.Email)
	if err != nil {
		return nil, err
	}
	exp.ID = b.ExpeditionID
	usr.ID = b.UserID
	b.Expedition = &exp
	b.User = &usr
	return &b, nil
}

// Create books expeditionID for numberOfPeople on behalf of userID.  The
// party size is not checked against the expedition's group bounds.
func (r *BookingRepo) Create(ctx context.Context, userID, expeditionID uint64, numberOfPeople int, specialRequests *string) (*model.Booking, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, expedition_id, number_of_people, total_amount_cents, special_requests)
		 SELECT ?, e.id, ?, e.base_price_cents * ?, ?
		 FROM expeditions e WHERE e.id = ?`,
		userID, numberOfPeople, numberOfPeople, specialRequests, expeditionID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrExpeditionNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches one booking with its expedition and user summaries.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// List returns bookings newest first.  A zero userID lists every booking.
// limit <= 0 means no limit.
func (r *BookingRepo) List(ctx context.Context, userID uint64, limit int) ([]*model.Booking, error) {
	q := bookingSelect
	args := []any{}
	if userID != 0 {
		q += " WHERE b.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY b.created_at DESC, b.id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus overwrites status and/or payment status.  No transition
// rules apply.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status, paymentStatus *string) (*model.Booking, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	if status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *status)
	}
	if paymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *paymentStatus)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE bookings SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrBookingNotFound
	}
	return r.GetByID(ctx, id)
}
