package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadfinder/internal/types"
)

var commerceTX = types.GeoPoint{Latitude: 33.1137, Longitude: -95.9003}

func TestGridCenters_SingleDivisionIsCenter(t *testing.T) {
	centers := GridCenters(commerceTX, 16093.4, 1)
	require.Len(t, centers, 1)
	assert.Equal(t, commerceTX, centers[0])
}

func TestGridCenters_Count(t *testing.T) {
	for d := 1; d <= 6; d++ {
		assert.Len(t, GridCenters(commerceTX, 16093.4, d), d*d, "divisions=%d", d)
	}
}

func TestGridCenters_NonPositiveDivisions(t *testing.T) {
	assert.Equal(t, []types.GeoPoint{commerceTX}, GridCenters(commerceTX, 1000, 0))
	assert.Equal(t, []types.GeoPoint{commerceTX}, GridCenters(commerceTX, 1000, -3))
}

func TestGridCenters_SymmetricAboutCenter(t *testing.T) {
	for _, d := range []int{2, 3, 4} {
		centers := GridCenters(commerceTX, 16093.4, d)
		var sumLat, sumLng float64
		for _, c := range centers {
			sumLat += c.Latitude
			sumLng += c.Longitude
		}
		n := float64(len(centers))
		assert.InDelta(t, commerceTX.Latitude, sumLat/n, 1e-9, "divisions=%d", d)
		assert.InDelta(t, commerceTX.Longitude, sumLng/n, 1e-9, "divisions=%d", d)
	}
}

func TestGridCenters_StepCorrectedForLatitude(t *testing.T) {
	radius := 10000.0
	centers := GridCenters(commerceTX, radius, 2)
	require.Len(t, centers, 4)

	// Row-major: [0] and [1] share a latitude, [0] and [2] share a longitude.
	stepLat := centers[2].Latitude - centers[0].Latitude
	stepLng := centers[1].Longitude - centers[0].Longitude
	assert.InDelta(t, radius/111000.0, stepLat, 1e-12)
	assert.InDelta(t, radius/(111000.0*math.Cos(commerceTX.Latitude*math.Pi/180)), stepLng, 1e-12)
	assert.Greater(t, stepLng, stepLat)
}

func TestDistanceMeters_ZeroAndSymmetric(t *testing.T) {
	points := []types.GeoPoint{
		commerceTX,
		{Latitude: 32.7555, Longitude: -97.3308},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 0},
	}
	for _, a := range points {
		assert.Equal(t, 0.0, DistanceMeters(a, a))
		for _, b := range points {
			assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
		}
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// One degree of latitude along a meridian.
	d := DistanceMeters(types.GeoPoint{Latitude: 0, Longitude: 0}, types.GeoPoint{Latitude: 1, Longitude: 0})
	assert.InDelta(t, EarthRadiusMeters*math.Pi/180, d, 1e-6)
}

func TestDestination_RoundTripsThroughDistance(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		p := Destination(commerceTX, bearing, 16093.4)
		assert.InDelta(t, 16093.4, DistanceMeters(commerceTX, p), 1e-4, "bearing=%v", bearing)
	}
}

func TestCellRadius(t *testing.T) {
	assert.Equal(t, 10000.0, CellRadius(10000, 1))
	assert.InDelta(t, 10000*math.Sqrt2/2, CellRadius(10000, 2), 1e-9)
	assert.Equal(t, MaxQueryRadiusMeters, CellRadius(80000, 1))
	assert.Equal(t, 10000.0, CellRadius(10000, 0))
}
