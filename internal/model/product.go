package model

import "time"

// CategoryOther is the category assigned to products created on the fly
// from a gear name on expedition edit.
const CategoryOther = "OTHER"

// Product is a shop item that may also be rented.  Rental pricing is only
// meaningful when IsRentable is set.
type Product struct {
	ID                   uint64     `json:"id"`
	Name                 string     `json:"name"`
	Slug                 string     `json:"slug"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	PriceCents           uint64     `json:"priceCents"`
	RentalPriceCents     *uint64    `json:"rentalPriceCents"`
	SecurityDepositCents *uint64    `json:"securityDepositCents"`
	Images               StringList `json:"images"`
	IsRentable           bool       `json:"isRentable"`
	InStock              bool       `json:"inStock"`
	StockQuantity        int        `json:"stockQuantity"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`

	Expeditions []ExpeditionRef `json:"expeditions,omitempty"`
}

// Rental statuses.
const (
	RentalRented   = "RENTED"
	RentalReturned = "RETURNED"
)

// Rental records a user renting a product.
type Rental struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"userId"`
	ProductID uint64     `json:"productId"`
	Status    string     `json:"status"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	CreatedAt time.Time  `json:"createdAt"`
}
