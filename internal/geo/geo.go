// Package geo holds the search-area geometry: tiling a circle into grid cells and measuring
// great-circle distance between points.
package geo

import (
	"math"

	"leadfinder/internal/types"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000.0

	// metersPerDegLat is the flat-earth approximation used for laying out the grid.
	metersPerDegLat = 111000.0

	// MaxQueryRadiusMeters is the largest radius the nearby-search endpoint accepts.
	MaxQueryRadiusMeters = 50000.0
)

// GridCenters partitions the bounding square of the circle (center, radiusMeters) into a
// divisions×divisions grid and returns the center of every cell, row by row from the
// southern-most row. The longitude step is widened by 1/cos(lat) for meridian convergence.
func GridCenters(center types.GeoPoint, radiusMeters float64, divisions int) []types.GeoPoint {
	if divisions < 1 {
		divisions = 1
	}
	if divisions == 1 {
		return []types.GeoPoint{center}
	}

	metersPerDegLng := metersPerDegLat * math.Cos(toRad(center.Latitude))
	stepLat := (radiusMeters * 2) / float64(divisions) / metersPerDegLat
	stepLng := (radiusMeters * 2) / float64(divisions) / metersPerDegLng

	offset := float64(divisions-1) / 2
	centers := make([]types.GeoPoint, 0, divisions*divisions)
	for i := 0; i < divisions; i++ {
		for j := 0; j < divisions; j++ {
			centers = append(centers, types.GeoPoint{
				Latitude:  center.Latitude + (float64(i)-offset)*stepLat,
				Longitude: center.Longitude + (float64(j)-offset)*stepLng,
			})
		}
	}
	return centers
}

// CellRadius is the query radius that covers one grid cell: half the cell diagonal, never more
// than the full search radius and never more than the API allows.
func CellRadius(radiusMeters float64, divisions int) float64 {
	if divisions < 1 {
		divisions = 1
	}
	r := radiusMeters * math.Sqrt2 / float64(divisions)
	if r > radiusMeters {
		r = radiusMeters
	}
	return math.Min(r, MaxQueryRadiusMeters)
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b types.GeoPoint) float64 {
	if a == b {
		return 0
	}
	phi1, phi2 := toRad(a.Latitude), toRad(b.Latitude)
	dPhi := toRad(b.Latitude - a.Latitude)
	dLambda := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Destination returns the point reached by travelling distanceMeters from start on the given
// initial bearing (degrees clockwise from north).
func Destination(start types.GeoPoint, bearingDeg, distanceMeters float64) types.GeoPoint {
	delta := distanceMeters / EarthRadiusMeters
	theta := toRad(bearingDeg)
	phi1 := toRad(start.Latitude)
	lambda1 := toRad(start.Longitude)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1), math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return types.GeoPoint{Latitude: toDeg(phi2), Longitude: toDeg(lambda2)}
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
