package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

var (
	// ErrRentalNotFound is returned when a rental id is unknown or the
	// rental was already returned.
	ErrRentalNotFound = errors.New("rental not found")
	// ErrNotRentable is returned when the product is not offered for rent
	// or is out of stock.
	ErrNotRentable = errors.New("product is not available for rent")
)

// RentalRepo tracks gear rentals.
type RentalRepo struct {
	db *sql.DB
}

func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{db: db} }

const rentalColumns = "id, user_id, product_id, status, start_date, end_date, created_at"

func scanRental(s rowScanner) (*model.Rental, error) {
	var rt model.Rental
	if err := s.Scan(&rt.ID, &rt.UserID, &rt.ProductID, &rt.Status, &rt.StartDate, &rt.EndDate, &rt.CreatedAt); err != nil {
		return nil, err
	}
	return &rt, nil
}

// Create rents productID to userID.  The product must be rentable and in
// stock.
func (r *RentalRepo) Create(ctx context.Context, userID, productID uint64) (*model.Rental, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rentals (user_id, product_id, status)
		 SELECT ?, p.id, ? FROM products p WHERE p.id = ? AND p.is_rentable = 1 AND p.in_stock = 1`,
		userID, model.RentalRented, productID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotRentable
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return scanRental(r.db.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE id = ?", id))
}

// List returns rentals newest first.  A zero userID lists all of them.
func (r *RentalRepo) List(ctx context.Context, userID uint64) ([]*model.Rental, error) {
	q := "SELECT " + rentalColumns + " FROM rentals"
	args := []any{}
	if userID != 0 {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Rental{}
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// MarkReturned closes an active rental.
func (r *RentalRepo) MarkReturned(ctx context.Context, id uint64) (*model.Rental, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE rentals SET status = ?, end_date = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		model.RentalReturned, id, model.RentalRented)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrRentalNotFound
	}
	return scanRental(r.db.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE id = ?", id))
}
