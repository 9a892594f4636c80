package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = "id, email, password_hash, name, role, image, bio, phone, is_active, created_at, updated_at"

// countColumns yields the five relation counts of UserCounts for the row
// aliased u.
const countColumns = `
	(SELECT COUNT(*) FROM summit_records sr WHERE sr.user_id = u.id),
	(SELECT COUNT(*) FROM bookings b WHERE b.user_id = u.id),
	(SELECT COUNT(*) FROM certificates c WHERE c.user_id = u.id),
	(SELECT COUNT(*) FROM rentals r WHERE r.user_id = u.id),
	(SELECT COUNT(*) FROM community_posts p WHERE p.user_id = u.id)`

func scanUser(s rowScanner, extra ...any) (*model.User, error) {
	var u model.User
	dest := []any{&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Image, &u.Bio, &u.Phone,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create hashes password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, name *string, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role) VALUES (?,?,?,?)",
		email, hash, name, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetWithCounts fetches a user together with the number of rows it owns in
// each related table.
func (r *UserRepo) GetWithCounts(ctx context.Context, id uint64) (*model.User, error) {
	var c model.UserCounts
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+prefixed("u", userColumns)+","+countColumns+" FROM users u WHERE u.id=?", id),
		&c.SummitRecords, &c.Bookings, &c.Certificates, &c.Rentals, &c.CommunityPosts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Count = &c
	return u, nil
}

// List returns every user, newest first, with relation counts.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+prefixed("u", userColumns)+","+countColumns+
			" FROM users u ORDER BY u.created_at DESC, u.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		var c model.UserCounts
		u, err := scanUser(rows, &c.SummitRecords, &c.Bookings, &c.Certificates, &c.Rentals, &c.CommunityPosts)
		if err != nil {
			return nil, err
		}
		u.Count = &c
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserPatch lists the columns an update may overwrite.  Nil fields are left
// untouched.  PasswordHash must already be hashed.
type UserPatch struct {
	Email        *string
	Name         *string
	Role         *string
	Bio          *string
	Phone        *string
	Image        *string
	PasswordHash *string
}

// Update applies p to the user and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) (*model.User, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	if p.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*p.Email))
		add("email", &e)
	}
	add("name", p.Name)
	add("role", p.Role)
	add("bio", p.Bio)
	add("phone", p.Phone)
	add("image", p.Image)
	add("password_hash", p.PasswordHash)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		res, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			if isDuplicate(err) {
				return nil, ErrEmailExists
			}
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user; owned rows go with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FeaturedClimbers returns up to limit CLIMBER accounts ordered by their
// number of successful summits.
func (r *UserRepo) FeaturedClimbers(ctx context.Context, limit int) ([]*model.User, error) {
	const q = `SELECT ` + userColumns + `, summits FROM (
	             SELECT u.*, (SELECT COUNT(*) FROM summit_records sr
	                          WHERE sr.user_id = u.id AND sr.status = 'SUCCESSFUL') AS summits
	             FROM users u WHERE u.role = 'CLIMBER' AND u.is_active = 1
	           ) ranked
	           ORDER BY summits DESC, id ASC
	           LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		var summits int
		u, err := scanUser(rows, &summits)
		if err != nil {
			return nil, err
		}
		u.Count = &model.UserCounts{SummitRecords: summits}
		out = append(out, u)
	}
	return out, rows.Err()
}
