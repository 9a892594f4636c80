package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// ErrPostNotFound is returned when a community post id is unknown.
var ErrPostNotFound = errors.New("post not found")

// CommunityRepo stores community posts.
type CommunityRepo struct {
	db *sql.DB
}

func NewCommunityRepo(db *sql.DB) *CommunityRepo { return &CommunityRepo{db: db} }

const postSelect = `SELECT p.id, p.user_id, p.title, p.content, p.images, p.tags, p.is_published,
	       p.is_featured, p.views, p.likes, p.created_at, p.updated_at,
	       u.name, u.image, u.bio
	FROM community_posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(s rowScanner) (*model.CommunityPost, error) {
	var (
		p   model.CommunityPost
		usr model.UserSummary
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Images, &p.Tags, &p.IsPublished,
		&p.IsFeatured, &p.Views, &p.Likes, &p.CreatedAt, &p.UpdatedAt,
		&usr.Name, &usr.Image, &usr.Bio)
	if err != nil {
		return nil, err
	}
	usr.ID = p.UserID
	p.User = &usr
	return &p, nil
}

// PostFilter narrows List.  Published nil lists drafts and published posts
// alike.
type PostFilter struct {
	Published    *bool
	FeaturedOnly bool
	UserID       uint64
	Limit        int
}

// List returns posts newest first.
func (r *CommunityRepo) List(ctx context.Context, f PostFilter) ([]*model.CommunityPost, error) {
	where := []string{}
	args := []any{}
	if f.Published != nil {
		where = append(where, "p.is_published = ?")
		args = append(args, *f.Published)
	}
	if f.FeaturedOnly {
		where = append(where, "p.is_featured = 1")
	}
	if f.UserID != 0 {
		where = append(where, "p.user_id = ?")
		args = append(args, f.UserID)
	}
	q := postSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.CommunityPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		p.User.Bio = nil
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID fetches a post without touching its view counter.
func (r *CommunityRepo) GetByID(ctx context.Context, id uint64) (*model.CommunityPost, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return p, err
}

// View fetches a post and increments its stored view counter by one.  The
// returned post carries the value read plus one; concurrent viewers each
// add one to the stored count.
func (r *CommunityRepo) View(ctx context.Context, id uint64) (*model.CommunityPost, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE community_posts SET views = views + 1 WHERE id = ?", id); err != nil {
		return nil, err
	}
	p.Views++
	return p, nil
}

// Create inserts p for its UserID and returns the stored post.
func (r *CommunityRepo) Create(ctx context.Context, p *model.CommunityPost) (*model.CommunityPost, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO community_posts (user_id, title, content, images, tags, is_published, is_featured)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Title, p.Content, p.Images, p.Tags, p.IsPublished, p.IsFeatured)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// OwnerID returns the author of a post.
func (r *CommunityRepo) OwnerID(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM community_posts WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	return owner, err
}

// PostPatch lists the fields an update may overwrite.  Nil fields are left
// untouched.  Callers strip IsPublished and IsFeatured for non-admins.
type PostPatch struct {
	Title       *string
	Content     *string
	Images      *model.StringList
	Tags        *model.StringList
	IsPublished *bool
	IsFeatured  *bool
}

// Update applies patch to post id and returns the stored post.
func (r *CommunityRepo) Update(ctx context.Context, id uint64, patch PostPatch) (*model.CommunityPost, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Images != nil {
		sets = append(sets, "images = ?")
		args = append(args, *patch.Images)
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *patch.Tags)
	}
	if patch.IsPublished != nil {
		sets = append(sets, "is_published = ?")
		args = append(args, *patch.IsPublished)
	}
	if patch.IsFeatured != nil {
		sets = append(sets, "is_featured = ?")
		args = append(args, *patch.IsFeatured)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE community_posts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrPostNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a post.
func (r *CommunityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM community_posts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}
