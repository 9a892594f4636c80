// Package repository contains data access logic separated from HTTP handlers.
// This file covers expeditions and the rows they own: itinerary days,
// required gear links and guide assignments.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// ErrExpeditionNotFound is returned when an expedition id or slug is unknown.
var ErrExpeditionNotFound = errors.New("expedition not found")

// ErrInvalidGear is returned when a gear entry names neither a product id
// nor a product name.
var ErrInvalidGear = errors.New("gear entry needs productId or name")

// ExpeditionRepo encapsulates all queries on expeditions.  Gear entries that
// arrive by name are resolved through the product repository inside the
// same transaction.
type ExpeditionRepo struct {
	db       *sql.DB
	products *ProductRepo
}

// NewExpeditionRepo constructs an ExpeditionRepo with the provided DB handle.
func NewExpeditionRepo(db *sql.DB) *ExpeditionRepo {
	return &ExpeditionRepo{db: db, products: NewProductRepo(db)}
}

const expeditionColumns = `id, title, slug, description, short_description, category, difficulty,
	altitude, duration, base_price_cents, location, hero_image, gallery, max_group_size,
	min_group_size, featured, is_active, success_rate, meta_title, meta_description,
	created_at, updated_at`

const expeditionCounts = `
	(SELECT COUNT(*) FROM bookings b WHERE b.expedition_id = e.id),
	(SELECT COUNT(*) FROM summit_records s WHERE s.expedition_id = e.id)`

func scanExpedition(s rowScanner) (*model.Expedition, error) {
	var (
		e model.Expedition
		c model.ExpeditionCount
	)
	err := s.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.ShortDescription, &e.Category,
		&e.Difficulty, &e.Altitude, &e.Duration, &e.BasePriceCents, &e.Location, &e.HeroImage,
		&e.Gallery, &e.MaxGroupSize, &e.MinGroupSize, &e.Featured, &e.IsActive, &e.SuccessRate,
		&e.MetaTitle, &e.MetaDescription, &e.CreatedAt, &e.UpdatedAt,
		&c.Bookings, &c.SummitRecords)
	if err != nil {
		return nil, err
	}
	e.Count = &c
	return &e, nil
}

// ExpeditionFilter narrows List.  Inactive expeditions are hidden unless
// IncludeInactive is set.
type ExpeditionFilter struct {
	Category        string
	Difficulty      string
	FeaturedOnly    bool
	IncludeInactive bool
}

// List returns expeditions newest first, each with its itinerary, guides
// and relation counts.
func (r *ExpeditionRepo) List(ctx context.Context, f ExpeditionFilter) ([]*model.Expedition, error) {
	where := []string{}
	args := []any{}
	if !f.IncludeInactive {
		where = append(where, "e.is_active = 1")
	}
	if f.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		where = append(where, "e.difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.FeaturedOnly {
		where = append(where, "e.featured = 1")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+prefixed("e", expeditionColumns)+","+expeditionCounts+
			" FROM expeditions e WHERE "+cond+" ORDER BY e.created_at DESC, e.id DESC", args...)
	if err != nil {
		return nil, err
	}
	out := []*model.Expedition{}
	for rows.Next() {
		e, err := scanExpedition(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// Relations are loaded after the cursor is closed; the pool may hold a
	// single connection.
	for _, e := range out {
		if e.Itineraries, err = loadItineraries(ctx, r.db, e.ID); err != nil {
			return nil, err
		}
		if e.Guides, err = loadGuides(ctx, r.db, e.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetByID returns the full expedition detail: itinerary by day, required
// gear with products, guides, summit records with climbers and counts.
func (r *ExpeditionRepo) GetByID(ctx context.Context, id uint64) (*model.Expedition, error) {
	e, err := scanExpedition(r.db.QueryRowContext(ctx,
		"SELECT "+prefixed("e", expeditionColumns)+","+expeditionCounts+" FROM expeditions e WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExpeditionNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, r.loadDetail(ctx, e)
}

// GetBySlug is GetByID keyed by the public slug.
func (r *ExpeditionRepo) GetBySlug(ctx context.Context, slug string) (*model.Expedition, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM expeditions WHERE slug = ?", slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExpeditionNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Ref returns the short form used when embedding an expedition.
func (r *ExpeditionRepo) Ref(ctx context.Context, id uint64) (*model.ExpeditionRef, uint64, error) {
	var (
		ref   model.ExpeditionRef
		price uint64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, slug, hero_image, altitude, base_price_cents FROM expeditions WHERE id = ?", id).
		Scan(&ref.ID, &ref.Title, &ref.Slug, &ref.HeroImage, &ref.Altitude, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrExpeditionNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return &ref, price, nil
}

func (r *ExpeditionRepo) loadDetail(ctx context.Context, e *model.Expedition) error {
	var err error
	if e.Itineraries, err = loadItineraries(ctx, r.db, e.ID); err != nil {
		return err
	}
	if e.RequiredGear, err = loadGear(ctx, r.db, e.ID); err != nil {
		return err
	}
	if e.Guides, err = loadGuides(ctx, r.db, e.ID); err != nil {
		return err
	}
	e.SummitRecords, err = listSummits(ctx, r.db, "WHERE s.expedition_id = ? ORDER BY s.summit_date DESC, s.id DESC", e.ID)
	return err
}

func loadItineraries(ctx context.Context, q querier, expeditionID uint64) ([]model.Itinerary, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, expedition_id, day_number, title, description, altitude, activities, sort_order
		 FROM itineraries WHERE expedition_id = ? ORDER BY day_number ASC`, expeditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Itinerary{}
	for rows.Next() {
		var it model.Itinerary
		if err := rows.Scan(&it.ID, &it.ExpeditionID, &it.DayNumber, &it.Title, &it.Description,
			&it.Altitude, &it.Activities, &it.Order); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func loadGear(ctx context.Context, q querier, expeditionID uint64) ([]model.ExpeditionGear, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT g.id, g.expedition_id, g.quantity, g.required, `+prefixed("p", productColumns)+`
		 FROM expedition_gear g
		 JOIN products p ON p.id = g.product_id
		 WHERE g.expedition_id = ? ORDER BY g.id`, expeditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ExpeditionGear{}
	for rows.Next() {
		var (
			g model.ExpeditionGear
			p model.Product
		)
		if err := rows.Scan(&g.ID, &g.ExpeditionID, &g.Quantity, &g.Required,
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.PriceCents,
			&p.RentalPriceCents, &p.SecurityDepositCents, &p.Images, &p.IsRentable, &p.InStock,
			&p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		g.ProductID = p.ID
		g.Product = &p
		out = append(out, g)
	}
	return out, rows.Err()
}

func loadGuides(ctx context.Context, q querier, expeditionID uint64) ([]model.UserSummary, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.name, u.image, u.bio
		 FROM expedition_guides eg
		 JOIN users u ON u.id = eg.user_id
		 WHERE eg.expedition_id = ? ORDER BY u.id`, expeditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserSummary{}
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Image, &u.Bio); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create inserts e and returns its new id.  Optional guide ids are linked
// in the same transaction.
func (r *ExpeditionRepo) Create(ctx context.Context, e *model.Expedition, guideIDs []uint64) (id uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expeditions (title, slug, description, short_description, category, difficulty,
		                         altitude, duration, base_price_cents, location, hero_image, gallery,
		                         max_group_size, min_group_size, featured, is_active, success_rate,
		                         meta_title, meta_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Slug, e.Description, e.ShortDescription, e.Category, e.Difficulty,
		e.Altitude, e.Duration, e.BasePriceCents, e.Location, e.HeroImage, e.Gallery,
		e.MaxGroupSize, e.MinGroupSize, e.Featured, e.IsActive, e.SuccessRate,
		e.MetaTitle, e.MetaDescription)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id = uint64(n)
	if len(guideIDs) > 0 {
		if err = replaceGuidesTx(ctx, tx, id, guideIDs); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ExpeditionPatch lists the scalar columns an update may overwrite.  Nil
// fields keep their stored value, except SuccessRate: a nil or zero rate is
// stored as NULL on every update.
type ExpeditionPatch struct {
	Title            *string
	Slug             *string
	Description      *string
	ShortDescription *string
	Category         *string
	Difficulty       *string
	Altitude         *int
	Duration         *int
	BasePriceCents   *uint64
	Location         *string
	HeroImage        *string
	Gallery          *model.StringList
	MaxGroupSize     *int
	MinGroupSize     *int
	Featured         *bool
	IsActive         *bool
	SuccessRate      *float64
	MetaTitle        *string
	MetaDescription  *string
}

func (p ExpeditionPatch) assignments() ([]string, []any) {
	sets := []string{}
	args := []any{}
	set := func(col string, present bool, v any) {
		if present {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
	}
	set("title", p.Title != nil, deref(p.Title))
	set("slug", p.Slug != nil, deref(p.Slug))
	set("description", p.Description != nil, deref(p.Description))
	set("short_description", p.ShortDescription != nil, p.ShortDescription)
	set("category", p.Category != nil, deref(p.Category))
	set("difficulty", p.Difficulty != nil, deref(p.Difficulty))
	set("altitude", p.Altitude != nil, p.Altitude)
	set("duration", p.Duration != nil, p.Duration)
	set("base_price_cents", p.BasePriceCents != nil, p.BasePriceCents)
	set("location", p.Location != nil, deref(p.Location))
	set("hero_image", p.HeroImage != nil, p.HeroImage)
	if p.Gallery != nil {
		set("gallery", true, *p.Gallery)
	}
	set("max_group_size", p.MaxGroupSize != nil, p.MaxGroupSize)
	set("min_group_size", p.MinGroupSize != nil, p.MinGroupSize)
	set("featured", p.Featured != nil, p.Featured)
	set("is_active", p.IsActive != nil, p.IsActive)
	set("meta_title", p.MetaTitle != nil, p.MetaTitle)
	set("meta_description", p.MetaDescription != nil, p.MetaDescription)

	var rate any
	if p.SuccessRate != nil && *p.SuccessRate != 0 {
		rate = *p.SuccessRate
	}
	set("success_rate", true, rate)
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	return sets, args
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ItineraryInput is one day of a replacement itinerary.
type ItineraryInput struct {
	DayNumber   int
	Title       string
	Description string
	Altitude    *int
	Activities  []string
}

// GearInput is one replacement gear entry.  When ProductID is zero, Name
// is slugified and resolved to an existing product or a new one.
type GearInput struct {
	ProductID uint64
	Name      string
	Quantity  int
	Required  *bool
}

// ExpeditionRelations carries the collections an update replaces.  A nil
// slice pointer leaves that collection alone; a pointer to an empty slice
// clears it.
type ExpeditionRelations struct {
	Itineraries *[]ItineraryInput
	Gear        *[]GearInput
	GuideIDs    *[]uint64
}

// Update overwrites the scalar fields of expedition id and replaces the
// collections named in rel.  Everything runs in one transaction, so a
// failing gear entry also rolls back the itinerary and scalar changes.
func (r *ExpeditionRepo) Update(ctx context.Context, id uint64, p ExpeditionPatch, rel ExpeditionRelations) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM expeditions WHERE id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrExpeditionNotFound
		}
		return err
	}

	sets, args := p.assignments()
	args = append(args, id)
	if _, err = tx.ExecContext(ctx, "UPDATE expeditions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}

	if rel.Itineraries != nil {
		if err = replaceItinerariesTx(ctx, tx, id, *rel.Itineraries); err != nil {
			return err
		}
	}
	if rel.Gear != nil {
		if err = r.replaceGearTx(ctx, tx, id, *rel.Gear); err != nil {
			return err
		}
	}
	if rel.GuideIDs != nil {
		if err = replaceGuidesTx(ctx, tx, id, *rel.GuideIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// replaceItinerariesTx deletes every itinerary day of the expedition and
// bulk-inserts days.  The day number doubles as the sort order.
func replaceItinerariesTx(ctx context.Context, tx *sql.Tx, expeditionID uint64, days []ItineraryInput) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM itineraries WHERE expedition_id = ?", expeditionID); err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}
	query := "INSERT INTO itineraries (expedition_id, day_number, title, description, altitude, activities, sort_order) VALUES "
	args := make([]any, 0, len(days)*7)
	for i, d := range days {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, expeditionID, d.DayNumber, d.Title, d.Description, d.Altitude,
			model.StringList(d.Activities), d.DayNumber)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("itinerary day numbers must be unique: %w", ErrDuplicate)
		}
		return err
	}
	return nil
}

// replaceGearTx deletes every gear link of the expedition and inserts
// entries, resolving name-only entries to products first.
func (r *ExpeditionRepo) replaceGearTx(ctx context.Context, tx *sql.Tx, expeditionID uint64, entries []GearInput) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM expedition_gear WHERE expedition_id = ?", expeditionID); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	query := "INSERT INTO expedition_gear (expedition_id, product_id, quantity, required) VALUES "
	args := make([]any, 0, len(entries)*4)
	for i, g := range entries {
		productID := g.ProductID
		if productID == 0 {
			if strings.TrimSpace(g.Name) == "" {
				return ErrInvalidGear
			}
			id, err := r.products.ResolveByNameTx(ctx, tx, g.Name)
			if err != nil {
				return fmt.Errorf("resolve gear %q: %w", g.Name, err)
			}
			productID = id
		}
		qty := g.Quantity
		if qty == 0 {
			qty = 1
		}
		required := g.Required == nil || *g.Required
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, expeditionID, productID, qty, required)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKey(err) {
			return ErrInvalidReference
		}
		return err
	}
	return nil
}

// replaceGuidesTx sets the guide assignments of an expedition.
func replaceGuidesTx(ctx context.Context, tx *sql.Tx, expeditionID uint64, userIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM expedition_guides WHERE expedition_id = ?", expeditionID); err != nil {
		return err
	}
	seen := map[uint64]bool{}
	for _, uid := range userIDs {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expedition_guides (expedition_id, user_id) VALUES (?, ?)", expeditionID, uid); err != nil {
			if isForeignKey(err) {
				return ErrInvalidReference
			}
			return err
		}
	}
	return nil
}

// Delete removes an expedition; itineraries, gear links, bookings and
// summit records cascade.
func (r *ExpeditionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expeditions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExpeditionNotFound
	}
	return nil
}
