package models

import (
	"time"

	"github.com/google/uuid"
)

// Client tiers for CRM prioritization
const (
	TierA = "A"
	TierB = "B"
	TierC = "C"
)

// Client account statuses
const (
	ClientStatusActive   = "activo"
	ClientStatusInactive = "inactivo"
)

// Client represents a sellable account in the registry.
// RUC is unique across the registry.
type Client struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	RUC                    string     `json:"ruc" db:"ruc"`
	LegalName              string     `json:"legal_name" db:"legal_name"`
	CommercialName         string     `json:"commercial_name" db:"commercial_name"`
	Province               NullString `json:"province,omitempty" db:"province"`
	Canton                 NullString `json:"canton,omitempty" db:"canton"`
	Address                NullString `json:"address,omitempty" db:"address"`
	Latitude               NullFloat  `json:"latitude,omitempty" db:"latitude"`
	Longitude              NullFloat  `json:"longitude,omitempty" db:"longitude"`
	SellerName             string     `json:"seller_name" db:"seller_name"`
	Phone                  NullString `json:"phone,omitempty" db:"phone"`
	Tier                   string     `json:"tier" db:"tier"`
	LastPurchaseAt         NullTime   `json:"last_purchase_at,omitempty" db:"last_purchase_at"`
	RepurchaseIntervalDays int        `json:"repurchase_interval_days" db:"repurchase_interval_days"`
	Status                 string     `json:"status" db:"status"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// DisplayName prefers the commercial name, falling back to the legal one
func (c *Client) DisplayName() string {
	if c.CommercialName != "" {
		return c.CommercialName
	}
	return c.LegalName
}
