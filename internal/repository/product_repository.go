package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// ErrProductNotFound is returned when no product matches an id or slug.
var ErrProductNotFound = errors.New("product not found")

// ProductRepo reads and writes the shop catalogue.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, name, slug, description, category, price_cents, rental_price_cents,
	security_deposit_cents, images, is_rentable, in_stock, stock_quantity, created_at, updated_at`

func scanProduct(s rowScanner) (*model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.PriceCents,
		&p.RentalPriceCents, &p.SecurityDepositCents, &p.Images, &p.IsRentable, &p.InStock,
		&p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductFilter narrows List.  Nil pointers mean "any".
type ProductFilter struct {
	Category string
	InStock  *bool
	Rentable *bool
}

// List returns matching products, newest first.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]*model.Product, error) {
	where := []string{}
	args := []any{}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.InStock != nil {
		where = append(where, "in_stock = ?")
		args = append(args, *f.InStock)
	}
	if f.Rentable != nil {
		where = append(where, "is_rentable = ?")
		args = append(args, *f.Rentable)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE "+cond+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID fetches a single product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// GetBySlug fetches a product and the active expeditions listing it as
// gear.
func (r *ProductRepo) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE slug = ?", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT e.id, e.title, e.slug, e.hero_image, e.altitude
		 FROM expedition_gear g
		 JOIN expeditions e ON e.id = g.expedition_id
		 WHERE g.product_id = ? AND e.is_active = 1
		 ORDER BY e.id`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	p.Expeditions = []model.ExpeditionRef{}
	for rows.Next() {
		var e model.ExpeditionRef
		if err := rows.Scan(&e.ID, &e.Title, &e.Slug, &e.HeroImage, &e.Altitude); err != nil {
			return nil, err
		}
		p.Expeditions = append(p.Expeditions, e)
	}
	return p, rows.Err()
}

// Create inserts p and fills its ID and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, slug, description, category, price_cents, rental_price_cents,
		                       security_deposit_cents, images, is_rentable, in_stock, stock_quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.Description, p.Category, p.PriceCents, p.RentalPriceCents,
		p.SecurityDepositCents, p.Images, p.IsRentable, p.InStock, p.StockQuantity)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// Update overwrites every editable column of product id with p.
func (r *ProductRepo) Update(ctx context.Context, id uint64, p *model.Product) (*model.Product, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, slug = ?, description = ?, category = ?, price_cents = ?,
		        rental_price_cents = ?, security_deposit_cents = ?, images = ?, is_rentable = ?,
		        in_stock = ?, stock_quantity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Slug, p.Description, p.Category, p.PriceCents, p.RentalPriceCents,
		p.SecurityDepositCents, p.Images, p.IsRentable, p.InStock, p.StockQuantity, id)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrProductNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a product and its gear links.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ResolveByNameTx returns the id of the product whose slug matches the
// slugified name, creating a zero-priced OTHER product when none exists.
func (r *ProductRepo) ResolveByNameTx(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	slug := utils.Slugify(name)
	var id uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM products WHERE slug = ?", slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO products (name, slug, description, category, price_cents, images, in_stock)
		 VALUES (?, ?, 'Required gear for expedition', ?, 0, '[]', 1)`,
		name, slug, model.CategoryOther)
	if err != nil {
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}
