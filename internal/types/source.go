// Package types provides type definitions for structured data used throughout the procurement watch engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Region groups sources by the jurisdiction of the portal
type Region string

// Region constants
const (
	RegionEU      Region = "EU"
	RegionUK      Region = "UK"
	RegionNordics Region = "Nordics"
	RegionBaltics Region = "Baltics"
	RegionUS      Region = "US"
)

// Category is the subject area a source searches for
type Category string

// Category constants
const (
	CategoryCrypto        Category = "crypto"
	CategoryInsiderThreat Category = "insider_threat"
)

// Source is one named origin of notices (a portal/category pair).
// Sources are defined once by the catalog and never mutated.
type Source struct {
	ID       string   `json:"id" validate:"required,max=64"`
	Label    string   `json:"label" validate:"required"`
	Region   Region   `json:"region" validate:"required,oneof=EU UK Nordics Baltics US"`
	Category Category `json:"category" validate:"required,oneof=crypto insider_threat"`
}

// Batch is a group of sources queried together in a single backend request
type Batch struct {
	ID        string   `json:"id" validate:"required"`
	Label     string   `json:"label" validate:"required"`
	SourceIDs []string `json:"source_ids" validate:"required,min=1,dive,required"`
	PromptKey string   `json:"prompt_key" validate:"required"`
}
