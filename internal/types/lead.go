package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MetersPerMile converts the -radius flag to meters.
	MetersPerMile = 1609.34

	MinGridDivisions = 1
	MaxGridDivisions = 4

	MinRadiusMeters = 1 * MetersPerMile
	MaxRadiusMeters = 50 * MetersPerMile
)

// GeoPoint is a WGS-84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// String renders the point the way the Places API expects a "location" parameter.
func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// SearchRequest is everything the user supplies for one search.
type SearchRequest struct {
	CenterAddress string
	RadiusMeters  float64
	Keyword       string // blank = all businesses
	GridDivisions int
}

// Validate checks the request bounds. Grid divisions are capped to keep the number of
// nearby-search calls (divisions², up to 3 pages each) small.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.CenterAddress) == "" {
		return errors.New("center address is required")
	}
	if r.RadiusMeters < MinRadiusMeters || r.RadiusMeters > MaxRadiusMeters {
		return fmt.Errorf("radius %.0fm out of range [%.0fm, %.0fm]", r.RadiusMeters, MinRadiusMeters, MaxRadiusMeters)
	}
	if r.GridDivisions < MinGridDivisions || r.GridDivisions > MaxGridDivisions {
		return fmt.Errorf("grid divisions %d out of range [%d, %d]", r.GridDivisions, MinGridDivisions, MaxGridDivisions)
	}
	return nil
}

// PlaceCandidate is a raw nearby-search hit, keyed by the Places API place_id.
type PlaceCandidate struct {
	PlaceID  string   `json:"place_id"`
	Location GeoPoint `json:"location"`
}

// LeadRecord is the enriched business handed to the presentation layer.
// Website is nil when the listing has no website at all.
type LeadRecord struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Phone    string   `json:"phone"`
	Website  *string  `json:"website,omitempty"`
	Location GeoPoint `json:"location"`
}

// HasWebsite reports whether the listing carries a website.
func (l LeadRecord) HasWebsite() bool {
	return l.Website != nil
}

// WebsiteURL returns the website or "" when absent.
func (l LeadRecord) WebsiteURL() string {
	if l.Website == nil {
		return ""
	}
	return *l.Website
}
