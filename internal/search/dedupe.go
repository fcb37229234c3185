package search

import (
	"leadfinder/internal/geo"
	"leadfinder/internal/types"
)

// DedupeAndFilter collapses candidates by place ID (last write wins) and keeps only those within
// radiusMeters of center. Neighbouring cells overlap and each cell query reaches past the
// requested circle, so both steps need the full candidate set. Output follows first appearance.
func DedupeAndFilter(candidates []types.PlaceCandidate, center types.GeoPoint, radiusMeters float64) []types.PlaceCandidate {
	byID := make(map[string]types.PlaceCandidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.PlaceID == "" {
			continue
		}
		if _, seen := byID[c.PlaceID]; !seen {
			order = append(order, c.PlaceID)
		}
		byID[c.PlaceID] = c
	}

	kept := make([]types.PlaceCandidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		if geo.DistanceMeters(center, c.Location) <= radiusMeters {
			kept = append(kept, c)
		}
	}
	return kept
}
