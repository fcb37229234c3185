package geo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadfinder/internal/types"
)

// square around Commerce, TX: lat 33.0..33.2, lng -96.0..-95.8
var squareRing = []types.GeoPoint{
	{Latitude: 33.0, Longitude: -96.0},
	{Latitude: 33.2, Longitude: -96.0},
	{Latitude: 33.2, Longitude: -95.8},
	{Latitude: 33.0, Longitude: -95.8},
	{Latitude: 33.0, Longitude: -96.0},
}

func TestBoundary_Contains(t *testing.T) {
	b := NewBoundary(squareRing)
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.Contains(commerceTX))
	assert.False(t, b.Contains(types.GeoPoint{Latitude: 33.3, Longitude: -95.9}))
	assert.False(t, b.Contains(types.GeoPoint{Latitude: 33.1, Longitude: -95.7}))
}

func shpRing(ring []types.GeoPoint) []shp.Point {
	pts := make([]shp.Point, len(ring))
	for i, p := range ring {
		pts[i] = shp.Point{X: p.Longitude, Y: p.Latitude}
	}
	return pts
}

// writeBoundaryFile writes one named polygon per entry of parts. go-shp v0.1.1 names the
// attribute table "<base>dbf", so it is moved to "<base>.dbf" where shp.Open reads it.
func writeBoundaryFile(t *testing.T, path string, names []string, parts [][][]types.GeoPoint) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 32)}))

	for i, rings := range parts {
		var pts [][]shp.Point
		for _, r := range rings {
			pts = append(pts, shpRing(r))
		}
		poly := shp.Polygon(*shp.NewPolyLine(pts))
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, names[i]))
	}
	w.Close()

	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	require.FileExists(t, base+".dbf")
}

func TestLoadBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.shp")
	writeBoundaryFile(t, path, []string{"Commerce"}, [][][]types.GeoPoint{{squareRing}})

	b, err := LoadBoundary(path)
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "Commerce", b.polygons[0].Name)
	assert.Equal(t, []string{"Commerce"}, b.Names())
	assert.True(t, b.Contains(commerceTX))
	assert.False(t, b.Contains(types.GeoPoint{Latitude: 34, Longitude: -95.9}))
}

// holeRing is an enclave in the middle of squareRing: lat 33.08..33.12, lng -95.92..-95.88,
// wound the other way round.
var holeRing = []types.GeoPoint{
	{Latitude: 33.08, Longitude: -95.92},
	{Latitude: 33.08, Longitude: -95.88},
	{Latitude: 33.12, Longitude: -95.88},
	{Latitude: 33.12, Longitude: -95.92},
	{Latitude: 33.08, Longitude: -95.92},
}

func TestLoadBoundary_Hole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.shp")
	writeBoundaryFile(t, path, []string{"Commerce"}, [][][]types.GeoPoint{{squareRing, holeRing}})

	b, err := LoadBoundary(path)
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())

	assert.False(t, b.Contains(types.GeoPoint{Latitude: 33.1, Longitude: -95.9}), "inside the enclave")
	assert.True(t, b.Contains(types.GeoPoint{Latitude: 33.05, Longitude: -95.9}), "between the rings")
	assert.True(t, b.Contains(types.GeoPoint{Latitude: 33.15, Longitude: -95.95}))
}

func TestLoadBoundary_SeveralPolygons(t *testing.T) {
	east := []types.GeoPoint{
		{Latitude: 33.0, Longitude: -95.5},
		{Latitude: 33.2, Longitude: -95.5},
		{Latitude: 33.2, Longitude: -95.3},
		{Latitude: 33.0, Longitude: -95.3},
		{Latitude: 33.0, Longitude: -95.5},
	}
	path := filepath.Join(t.TempDir(), "towns.shp")
	writeBoundaryFile(t, path, []string{"Commerce", "Cooper"}, [][][]types.GeoPoint{{squareRing}, {east}})

	b, err := LoadBoundary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Commerce", "Cooper"}, b.Names())
	assert.True(t, b.Contains(types.GeoPoint{Latitude: 33.1, Longitude: -95.4}))
	assert.False(t, b.Contains(types.GeoPoint{Latitude: 33.1, Longitude: -95.65}))
}

func TestLoadBoundary_MissingFile(t *testing.T) {
	_, err := LoadBoundary(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}
