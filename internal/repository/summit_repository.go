package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// ErrSummitNotFound is returned when a summit record id is unknown.
var ErrSummitNotFound = errors.New("summit record not found")

// SummitRepo stores summit attempts.  Successful attempts back featured
// climbers, profile pages and certificate issuance.
type SummitRepo struct {
	db *sql.DB
}

func NewSummitRepo(db *sql.DB) *SummitRepo { return &SummitRepo{db: db} }

// summitSelect joins the owning user and expedition so a single scan fills
// both embedded summaries.
const summitSelect = `SELECT s.id, s.user_id, s.expedition_id, s.status, s.summit_date, s.altitude,
	       s.notes, s.photos, s.created_at,
	       u.name, u.image,
	       e.title, e.slug, e.hero_image, e.altitude
	FROM summit_records s
	JOIN users u ON u.id = s.user_id
	JOIN expeditions e ON e.id = s.expedition_id`

func scanSummit(s rowScanner) (*model.SummitRecord, error) {
	var (
		rec model.SummitRecord
		usr model.UserSummary
		exp model.ExpeditionRef
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.ExpeditionID, &rec.Status, &rec.SummitDate, &rec.Altitude,
		&rec.Notes, &rec.Photos, &rec.CreatedAt,
		&usr.Name, &usr.Image,
		&exp.Title, &exp.Slug, &exp.HeroImage, &exp.Altitude)
	if err != nil {
		return nil, err
	}
	usr.ID = rec.UserID
	exp.ID = rec.ExpeditionID
	rec.User = &usr
	rec.Expedition = &exp
	return &rec, nil
}

// listSummits runs summitSelect with an extra clause (WHERE/ORDER/LIMIT).
func listSummits(ctx context.Context, q querier, tail string, args ...any) ([]model.SummitRecord, error) {
	rows, err := q.QueryContext(ctx, summitSelect+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SummitRecord{}
	for rows.Next() {
		rec, err := scanSummit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// SummitInput carries the fields of a new summit record.
type SummitInput struct {
	UserID       uint64
	ExpeditionID uint64
	Status       string
	SummitDate   time.Time
	Altitude     *int
	Notes        *string
	Photos       model.StringList
}

// Create stores a summit record and returns it with its summaries.
func (r *SummitRepo) Create(ctx context.Context, in SummitInput) (*model.SummitRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO summit_records (user_id, expedition_id, status, summit_date, altitude, notes, photos)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, in.ExpeditionID, in.Status, in.SummitDate.UTC(), in.Altitude, in.Notes, in.Photos)
	if err != nil {
		if isForeignKey(err) {
			return nil, ErrInvalidReference
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches one summit record.
func (r *SummitRepo) GetByID(ctx context.Context, id uint64) (*model.SummitRecord, error) {
	rec, err := scanSummit(r.db.QueryRowContext(ctx, summitSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummitNotFound
	}
	return rec, err
}

// SummitFilter narrows List.  Zero values mean "any".
type SummitFilter struct {
	UserID       uint64
	ExpeditionID uint64
	Status       string
	Limit        int
}

// List returns summit records, most recent summit first.
func (r *SummitRepo) List(ctx context.Context, f SummitFilter) ([]model.SummitRecord, error) {
	tail := "WHERE 1=1"
	args := []any{}
	if f.UserID != 0 {
		tail += " AND s.user_id = ?"
		args = append(args, f.UserID)
	}
	if f.ExpeditionID != 0 {
		tail += " AND s.expedition_id = ?"
		args = append(args, f.ExpeditionID)
	}
	if f.Status != "" {
		tail += " AND s.status = ?"
		args = append(args, f.Status)
	}
	tail += " ORDER BY s.summit_date DESC, s.id DESC"
	if f.Limit > 0 {
		tail += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return listSummits(ctx, r.db, tail, args...)
}

// Delete removes a summit record.  Certificates referencing it keep their
// snapshot and lose the link.
func (r *SummitRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM summit_records WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSummitNotFound
	}
	return nil
}
