package repository

import (
	"context"
	"database/sql"
	"math"
)

// DashboardStats is the admin overview.  RevenueCents sums PAID bookings
// only; SuccessRate is the share of successful summit records as a
// percentage rounded to one decimal.
type DashboardStats struct {
	Expeditions  int     `json:"expeditions"`
	Bookings     int     `json:"bookings"`
	RevenueCents uint64  `json:"revenueCents"`
	Climbers     int     `json:"climbers"`
	Summits      int     `json:"summits"`
	SuccessRate  float64 `json:"successRate"`
	Products     int     `json:"products"`
	Rentals      int     `json:"rentals"`
}

// StatsRepo runs the aggregate queries behind the dashboard.
type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Dashboard collects every figure in one round trip.
func (r *StatsRepo) Dashboard(ctx context.Context) (DashboardStats, error) {
	var (
		s          DashboardStats
		successful int
	)
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM expeditions),
		(SELECT COUNT(*) FROM bookings),
		(SELECT COALESCE(SUM(total_amount_cents), 0) FROM bookings WHERE payment_status = 'PAID'),
		(SELECT COUNT(*) FROM users WHERE role = 'CLIMBER'),
		(SELECT COUNT(*) FROM summit_records),
		(SELECT COUNT(*) FROM summit_records WHERE status = 'SUCCESSFUL'),
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM rentals WHERE status = 'RENTED')`).
		Scan(&s.Expeditions, &s.Bookings, &s.RevenueCents, &s.Climbers, &s.Summits, &successful,
			&s.Products, &s.Rentals)
	if err != nil {
		return s, err
	}
	s.SuccessRate = SuccessRate(successful, s.Summits)
	return s, nil
}

// SuccessRate returns successful/total as a percentage rounded to one
// decimal, or 0 when total is 0.
func SuccessRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*1000) / 10
}
