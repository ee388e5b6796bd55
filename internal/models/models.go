package models

import "time"

// ReportKind classifies a pet report.
type ReportKind string

const (
	ReportLost     ReportKind = "lost"
	ReportFound    ReportKind = "found"
	ReportSighting ReportKind = "sighting"
	ReportAdoption ReportKind = "adoption"
)

// Valid reports whether k is a known report kind.
func (k ReportKind) Valid() bool {
	switch k {
	case ReportLost, ReportFound, ReportSighting, ReportAdoption:
		return true
	}
	return false
}

// Report is a pet report (lost, found, sighting, or adoption).
// Location is the serialized composite location string; Latitude and
// Longitude are the map marker position it was resolved from.
type Report struct {
	ID           int64      `json:"id" db:"id"`
	Kind         ReportKind `json:"kind" db:"kind"`
	PetName      string     `json:"pet_name" db:"pet_name"`
	Species      string     `json:"species" db:"species"`
	Breed        string     `json:"breed,omitempty" db:"breed"`
	Description  string     `json:"description" db:"description"`
	Location     string     `json:"location" db:"location"`
	Latitude     float64    `json:"latitude" db:"latitude"`
	Longitude    float64    `json:"longitude" db:"longitude"`
	ContactName  string     `json:"contact_name" db:"contact_name"`
	ContactPhone string     `json:"contact_phone" db:"contact_phone"`
	IsResolved   bool       `json:"is_resolved" db:"is_resolved"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Campaign is a rescue or adoption campaign. Shares the composite
// location representation with reports.
type Campaign struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Location    string     `json:"location" db:"location"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
