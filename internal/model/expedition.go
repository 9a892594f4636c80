package model

import "time"

// Expedition categories and difficulty levels accepted by the dashboard.
const (
	CategorySmallPeaks     = "SMALL_PEAKS"
	CategoryTrekkingPeaks  = "TREKKING_PEAKS"
	CategoryMountaineering = "MOUNTAINEERING"
	CategoryRoadTrips      = "ROAD_TRIPS"
	CategoryCustom         = "CUSTOM"

	DifficultyBeginner     = "BEGINNER"
	DifficultyIntermediate = "INTERMEDIATE"
	DifficultyAdvanced     = "ADVANCED"
	DifficultyExpert       = "EXPERT"
	DifficultyExtreme      = "EXTREME"
)

// Expedition is a bookable trip.  Slug is unique and is the public routing
// key.  SuccessRate is a denormalised percentage maintained by admins.
// Relations (Itineraries, RequiredGear, Guides, SummitRecords, Count) are
// only populated by the detail queries that load them.
type Expedition struct {
	ID               uint64     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Description      string     `json:"description"`
	ShortDescription *string    `json:"shortDescription"`
	Category         string     `json:"category"`
	Difficulty       string     `json:"difficulty"`
	Altitude         int        `json:"altitude"`
	Duration         int        `json:"duration"`
	BasePriceCents   uint64     `json:"basePriceCents"`
	Location         string     `json:"location"`
	HeroImage        *string    `json:"heroImage"`
	Gallery          StringList `json:"gallery"`
	MaxGroupSize     int        `json:"maxGroupSize"`
	MinGroupSize     int        `json:"minGroupSize"`
	Featured         bool       `json:"featured"`
	IsActive         bool       `json:"isActive"`
	SuccessRate      *float64   `json:"successRate"`
	MetaTitle        *string    `json:"metaTitle"`
	MetaDescription  *string    `json:"metaDescription"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	Itineraries   []Itinerary      `json:"itineraries"`
	RequiredGear  []ExpeditionGear `json:"requiredGear,omitempty"`
	Guides        []UserSummary    `json:"guides"`
	SummitRecords []SummitRecord   `json:"summitRecords,omitempty"`
	Count         *ExpeditionCount `json:"_count,omitempty"`
}

// ExpeditionCount carries relation counts shown on listing cards.
type ExpeditionCount struct {
	Bookings      int `json:"bookings"`
	SummitRecords int `json:"summitRecords"`
}

// Itinerary is one planned day of an expedition.  DayNumber is unique per
// expedition and doubles as the sort order.
type Itinerary struct {
	ID           uint64     `json:"id"`
	ExpeditionID uint64     `json:"expeditionId"`
	DayNumber    int        `json:"dayNumber"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Altitude     *int       `json:"altitude"`
	Activities   StringList `json:"activities"`
	Order        int        `json:"order"`
}

// ExpeditionGear links a product to an expedition as required (or
// recommended) equipment.
type ExpeditionGear struct {
	ID           uint64   `json:"id"`
	ExpeditionID uint64   `json:"expeditionId"`
	ProductID    uint64   `json:"productId"`
	Quantity     int      `json:"quantity"`
	Required     bool     `json:"required"`
	Product      *Product `json:"product,omitempty"`
}

// ExpeditionRef is the short form of an expedition embedded in bookings,
// summit records and product pages.
type ExpeditionRef struct {
	ID        uint64  `json:"id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	HeroImage *string `json:"heroImage,omitempty"`
	Altitude  int     `json:"altitude,omitempty"`
}
