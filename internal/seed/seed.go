// Package seed loads the demo accounts, catalogue and summit history from
// an embedded YAML fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
)

//go:embed seed.yaml
var defaultFixture []byte

// Fixture is the document layout of seed.yaml.
type Fixture struct {
	Users       []UserFixture       `yaml:"users"`
	Products    []ProductFixture    `yaml:"products"`
	Expeditions []ExpeditionFixture `yaml:"expeditions"`
	Summits     []SummitFixture     `yaml:"summits"`
}

type UserFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Bio      string `yaml:"bio,omitempty"`
}

type ProductFixture struct {
	Name                 string   `yaml:"name"`
	Slug                 string   `yaml:"slug"`
	Description          string   `yaml:"description"`
	Category             string   `yaml:"category"`
	PriceCents           uint64   `yaml:"price_cents"`
	RentalPriceCents     *uint64  `yaml:"rental_price_cents,omitempty"`
	SecurityDepositCents *uint64  `yaml:"security_deposit_cents,omitempty"`
	Images               []string `yaml:"images"`
	Rentable             bool     `yaml:"rentable"`
	StockQuantity        int      `yaml:"stock_quantity"`
}

// ExpeditionFixture names its guides by email and its gear by product slug.
type ExpeditionFixture struct {
	Title            string        `yaml:"title"`
	Slug             string        `yaml:"slug"`
	ShortDescription string        `yaml:"short_description"`
	Description      string        `yaml:"description"`
	Category         string        `yaml:"category"`
	Difficulty       string        `yaml:"difficulty"`
	Altitude         int           `yaml:"altitude"`
	Duration         int           `yaml:"duration"`
	BasePriceCents   uint64        `yaml:"base_price_cents"`
	Location         string        `yaml:"location"`
	HeroImage        string        `yaml:"hero_image"`
	Gallery          []string      `yaml:"gallery"`
	MaxGroupSize     int           `yaml:"max_group_size"`
	MinGroupSize     int           `yaml:"min_group_size"`
	Featured         bool          `yaml:"featured"`
	SuccessRate      float64       `yaml:"success_rate"`
	Guides           []string      `yaml:"guides"`
	Itinerary        []DayFixture  `yaml:"itinerary"`
	Gear             []GearFixture `yaml:"gear"`
}

type DayFixture struct {
	Day         int      `yaml:"day"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Altitude    *int     `yaml:"altitude,omitempty"`
	Activities  []string `yaml:"activities"`
}

type GearFixture struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
	Required bool   `yaml:"required"`
}

// SummitFixture references its user by email and its expedition by slug.
type SummitFixture struct {
	User       string   `yaml:"user"`
	Expedition string   `yaml:"expedition"`
	Status     string   `yaml:"status"`
	Date       string   `yaml:"date"`
	Altitude   *int     `yaml:"altitude,omitempty"`
	Notes      string   `yaml:"notes"`
	Photos     []string `yaml:"photos"`
}

// Parse decodes a fixture document.
func Parse(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	return &f, nil
}

// Default returns the embedded fixture.
func Default() (*Fixture, error) { return Parse(defaultFixture) }

// Seeder writes a Fixture through the repositories.
type Seeder struct {
	Users       *repository.UserRepo
	Products    *repository.ProductRepo
	Expeditions *repository.ExpeditionRepo
	Summits     *repository.SummitRepo
	BcryptCost  int
	Log         *zap.Logger
}

// Result counts the rows a run created.
type Result struct {
	Users, Products, Expeditions, Summits int
}

// Run is idempotent: users, products and expeditions that already exist
// (by email or slug) are kept as they are, and summit records are only
// added for expeditions created in this run.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (Result, error) {
	var res Result

	users := map[string]uint64{}
	for _, u := range f.Users {
		id, created, err := s.user(ctx, u)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		users[u.Email] = id
		if created {
			res.Users++
		}
	}

	products := map[string]uint64{}
	for _, p := range f.Products {
		id, created, err := s.product(ctx, p)
		if err != nil {
			return res, fmt.Errorf("seed product %s: %w", p.Slug, err)
		}
		products[p.Slug] = id
		if created {
			res.Products++
		}
	}

	fresh := map[string]uint64{}
	for _, e := range f.Expeditions {
		id, created, err := s.expedition(ctx, e, users, products)
		if err != nil {
			return res, fmt.Errorf("seed expedition %s: %w", e.Slug, err)
		}
		if created {
			fresh[e.Slug] = id
			res.Expeditions++
		}
	}

	for _, sm := range f.Summits {
		expID, ok := fresh[sm.Expedition]
		if !ok {
			continue
		}
		userID, ok := users[sm.User]
		if !ok {
			return res, fmt.Errorf("seed summit: unknown user %s", sm.User)
		}
		date, err := time.Parse("2006-01-02", sm.Date)
		if err != nil {
			return res, fmt.Errorf("seed summit date %q: %w", sm.Date, err)
		}
		status := sm.Status
		if status == "" {
			status = model.SummitSuccessful
		}
		var notes *string
		if sm.Notes != "" {
			notes = &sm.Notes
		}
		if _, err := s.Summits.Create(ctx, repository.SummitInput{
			UserID:       userID,
			ExpeditionID: expID,
			Status:       status,
			SummitDate:   date,
			Altitude:     sm.Altitude,
			Notes:        notes,
			Photos:       list(sm.Photos),
		}); err != nil {
			return res, fmt.Errorf("seed summit for %s: %w", sm.User, err)
		}
		res.Summits++
	}

	s.Log.Info("seed completed",
		zap.Int("users", res.Users), zap.Int("products", res.Products),
		zap.Int("expeditions", res.Expeditions), zap.Int("summits", res.Summits))
	return res, nil
}

func (s *Seeder) user(ctx context.Context, u UserFixture) (uint64, bool, error) {
	existing, err := s.Users.GetByEmail(ctx, u.Email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return 0, false, err
	}
	name := u.Name
	id, err := s.Users.Create(ctx, u.Email, u.Password, &name, u.Role, s.BcryptCost)
	if err != nil {
		return 0, false, err
	}
	if u.Bio != "" {
		bio := u.Bio
		if _, err := s.Users.Update(ctx, id, repository.UserPatch{Bio: &bio}); err != nil {
			return 0, false, err
		}
	}
	return id, true, nil
}

func (s *Seeder) product(ctx context.Context, p ProductFixture) (uint64, bool, error) {
	existing, err := s.Products.GetBySlug(ctx, p.Slug)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		return 0, false, err
	}
	m := &model.Product{
		Name:                 p.Name,
		Slug:                 p.Slug,
		Description:          p.Description,
		Category:             p.Category,
		PriceCents:           p.PriceCents,
		RentalPriceCents:     p.RentalPriceCents,
		SecurityDepositCents: p.SecurityDepositCents,
		Images:               list(p.Images),
		IsRentable:           p.Rentable,
		InStock:              true,
		StockQuantity:        p.StockQuantity,
	}
	if err := s.Products.Create(ctx, m); err != nil {
		return 0, false, err
	}
	return m.ID, true, nil
}

func (s *Seeder) expedition(ctx context.Context, e ExpeditionFixture, users, products map[string]uint64) (uint64, bool, error) {
	existing, err := s.Expeditions.GetBySlug(ctx, e.Slug)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrExpeditionNotFound) {
		return 0, false, err
	}

	guides := make([]uint64, 0, len(e.Guides))
	for _, email := range e.Guides {
		id, ok := users[email]
		if !ok {
			return 0, false, fmt.Errorf("unknown guide %s", email)
		}
		guides = append(guides, id)
	}
	m := &model.Expedition{
		Title:            e.Title,
		Slug:             e.Slug,
		Description:      e.Description,
		ShortDescription: optional(e.ShortDescription),
		Category:         e.Category,
		Difficulty:       e.Difficulty,
		Altitude:         e.Altitude,
		Duration:         e.Duration,
		BasePriceCents:   e.BasePriceCents,
		Location:         e.Location,
		HeroImage:        optional(e.HeroImage),
		Gallery:          list(e.Gallery),
		MaxGroupSize:     e.MaxGroupSize,
		MinGroupSize:     e.MinGroupSize,
		Featured:         e.Featured,
		IsActive:         true,
	}
	if e.SuccessRate != 0 {
		rate := e.SuccessRate
		m.SuccessRate = &rate
	}
	id, err := s.Expeditions.Create(ctx, m, guides)
	if err != nil {
		return 0, false, err
	}

	days := make([]repository.ItineraryInput, 0, len(e.Itinerary))
	for _, d := range e.Itinerary {
		days = append(days, repository.ItineraryInput{
			DayNumber: d.Day, Title: d.Title, Description: d.Description,
			Altitude: d.Altitude, Activities: d.Activities,
		})
	}
	gear := make([]repository.GearInput, 0, len(e.Gear))
	for _, g := range e.Gear {
		pid, ok := products[g.Product]
		if !ok {
			return 0, false, fmt.Errorf("unknown product %s", g.Product)
		}
		required := g.Required
		gear = append(gear, repository.GearInput{ProductID: pid, Quantity: g.Quantity, Required: &required})
	}
	// Update rewrites success_rate from the patch, so it is passed again.
	patch := repository.ExpeditionPatch{SuccessRate: m.SuccessRate}
	if err := s.Expeditions.Update(ctx, id, patch, repository.ExpeditionRelations{Itineraries: &days, Gear: &gear}); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func list(v []string) model.StringList {
	if v == nil {
		return model.StringList{}
	}
	return model.StringList(v)
}
