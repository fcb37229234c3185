package geo

import (
	"fmt"
	"math"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"leadfinder/internal/types"
)

// boundaryPolygon is one polygon (possibly multi-part) from a boundary shapefile.
type boundaryPolygon struct {
	Parts  [][][2]float64 // each part is a closed ring of [lat, lon] points
	Name   string
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Boundary is an area made of polygons, e.g. a city-limits layer. Leads outside every
// polygon can be dropped with Contains.
type Boundary struct {
	polygons []boundaryPolygon
}

// LoadBoundary reads every polygon from the shapefile at path. Coordinates must be WGS-84
// longitude/latitude. The NAME attribute, when present, is reported by Names. Inner rings
// are holes.
func LoadBoundary(path string) (*Boundary, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary shapefile %s: %w", path, err)
	}
	defer r.Close()

	nameField := -1
	for i, f := range r.Fields() {
		if f.String() == "NAME" {
			nameField = i
		}
	}

	b := &Boundary{}
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		bp := polygonFromShape(poly)
		if nameField >= 0 {
			bp.Name = strings.Trim(r.ReadAttribute(idx, nameField), " \x00")
		}
		b.polygons = append(b.polygons, bp)
	}
	if len(b.polygons) == 0 {
		return nil, fmt.Errorf("boundary shapefile %s has no polygons", path)
	}
	return b, nil
}

// NewBoundary builds a boundary from a single ring of points.
func NewBoundary(ring []types.GeoPoint) *Boundary {
	bp := boundaryPolygon{
		MinLat: math.MaxFloat64, MinLon: math.MaxFloat64,
		MaxLat: -math.MaxFloat64, MaxLon: -math.MaxFloat64,
	}
	part := make([][2]float64, len(ring))
	for i, p := range ring {
		part[i] = [2]float64{p.Latitude, p.Longitude}
		bp.extend(p.Latitude, p.Longitude)
	}
	bp.Parts = [][][2]float64{part}
	return &Boundary{polygons: []boundaryPolygon{bp}}
}

// Len is the number of polygons in the boundary.
func (b *Boundary) Len() int { return len(b.polygons) }

// Contains reports whether p falls inside any polygon of the boundary.
func (b *Boundary) Contains(p types.GeoPoint) bool {
	for _, z := range b.polygons {
		if p.Latitude < z.MinLat || p.Latitude > z.MaxLat || p.Longitude < z.MinLon || p.Longitude > z.MaxLon {
			continue // quick bbox reject
		}
		// even-odd across all rings, so holes (inner rings) cut out their area
		inside := false
		for _, ring := range z.Parts {
			if pointInPolygon(p.Latitude, p.Longitude, ring) {
				inside = !inside
			}
		}
		if inside {
			return true
		}
	}
	return false
}

// Names returns the NAME attribute of every named polygon, in file order.
func (b *Boundary) Names() []string {
	var names []string
	for _, z := range b.polygons {
		if z.Name != "" {
			names = append(names, z.Name)
		}
	}
	return names
}

func polygonFromShape(poly *shp.Polygon) boundaryPolygon {
	bp := boundaryPolygon{
		MinLat: math.MaxFloat64, MinLon: math.MaxFloat64,
		MaxLat: -math.MaxFloat64, MaxLon: -math.MaxFloat64,
	}
	numParts := len(poly.Parts)
	bp.Parts = make([][][2]float64, numParts)
	for partIdx := 0; partIdx < numParts; partIdx++ {
		start := poly.Parts[partIdx]
		end := int32(len(poly.Points))
		if partIdx+1 < numParts {
			end = poly.Parts[partIdx+1]
		}
		ring := make([][2]float64, 0, int(end-start))
		for i := start; i < end; i++ {
			pt := poly.Points[i]
			ring = append(ring, [2]float64{pt.Y, pt.X}) // lat, lon
			bp.extend(pt.Y, pt.X)
		}
		bp.Parts[partIdx] = ring
	}
	return bp
}

func (bp *boundaryPolygon) extend(lat, lon float64) {
	bp.MinLat = math.Min(bp.MinLat, lat)
	bp.MaxLat = math.Max(bp.MaxLat, lat)
	bp.MinLon = math.Min(bp.MinLon, lon)
	bp.MaxLon = math.Max(bp.MaxLon, lon)
}

// pointInPolygon is the ray-casting test. Shapefile rings are closed, open rings work too.
func pointInPolygon(lat, lon float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		yi, xi := ring[i][0], ring[i][1]
		yj, xj := ring[j][0], ring[j][1]
		if ((yi > lat) != (yj > lat)) && (lon < (xj-xi)*(lat-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}
