package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product представляет туристический продукт одного источника.
// Естественный ключ (Source, ExternalID); ID стабилен между загрузками.
type Product struct {
	ID                  uuid.UUID `db:"product_id" json:"product_id"`
	Source              string    `db:"source" json:"source"`
	ExternalID          string    `db:"external_id" json:"external_id"`
	Name                string    `db:"name" json:"name"`
	CategoryCode        string    `json:"category_code"`
	CategoryDescription string    `json:"category_description"`
	State               string    `db:"state" json:"state"`
	Region              string    `db:"region" json:"region"`
	City                string    `db:"city" json:"city"`
	Latitude            *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64  `db:"longitude" json:"longitude,omitempty"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	// RawSource хранит полный ответ источника, включая поля без отдельной таблицы.
	RawSource   json.RawMessage `db:"raw_source" json:"raw_source"`
	ContentHash string          `db:"content_hash" json:"content_hash,omitempty"`
}

type ProductType struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

const (
	AddressPhysical = "physical"
	AddressPostal   = "postal"
)

type Address struct {
	Kind      string   `db:"kind" json:"kind"`
	Line1     string   `db:"line1" json:"line1"`
	Line2     string   `db:"line2" json:"line2"`
	Line3     string   `db:"line3" json:"line3"`
	City      string   `db:"city" json:"city"`
	State     string   `db:"state" json:"state"`
	Postcode  string   `db:"postcode" json:"postcode"`
	Country   string   `db:"country" json:"country"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
}

const (
	ContactPhone   = "phone"
	ContactEmail   = "email"
	ContactWebsite = "website"
	ContactBooking = "booking"
)

type Contact struct {
	Kind  string `db:"kind" json:"kind"`
	Value string `db:"value" json:"value"`
}

const (
	MediaRoleHero    = "hero"
	MediaRoleGallery = "gallery"
)

type MediaItem struct {
	Provider  string          `db:"provider" json:"provider"`
	URL       string          `db:"url" json:"url"`
	Ordinal   int             `db:"ordinal" json:"ordinal"`
	Role      string          `db:"role" json:"role"`
	MediaType string          `db:"media_type" json:"media_type"`
	Meta      json.RawMessage `db:"meta" json:"meta"`
}

// Service описывает бронируемую единицу: номер, тур и т.п.
type Service struct {
	Name              string          `db:"name" json:"name"`
	Kind              string          `db:"service_kind" json:"service_kind"`
	OccupancyAdults   *int            `db:"occupancy_adults" json:"occupancy_adults,omitempty"`
	OccupancyChildren *int            `db:"occupancy_children" json:"occupancy_children,omitempty"`
	BedConfig         string          `db:"bed_config" json:"bed_config"`
	Details           json.RawMessage `db:"details" json:"details"`
}

type Rate struct {
	Price       *decimal.Decimal `db:"price" json:"price,omitempty"`
	Currency    string           `db:"currency" json:"currency"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	EndDate     time.Time        `db:"end_date" json:"end_date"`
	Constraints json.RawMessage  `db:"constraints_json" json:"constraints"`
}

type Deal struct {
	Title       string           `db:"title" json:"title"`
	Price       *decimal.Decimal `db:"price" json:"price,omitempty"`
	Currency    string           `db:"currency" json:"currency"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	EndDate     time.Time        `db:"end_date" json:"end_date"`
	Constraints json.RawMessage  `db:"constraints_json" json:"constraints"`
}

// ProductRecord is everything the storage layer writes for one product.
type ProductRecord struct {
	Product      Product
	ProductTypes []ProductType
	Addresses    []Address
	Contacts     []Contact
	Media        []MediaItem
	Services     []Service
	Rates        []Rate
	Deals        []Deal
	Attributes   []AttributeRef
}
