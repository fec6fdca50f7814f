package domain

import (
	"fmt"
	"math"
	"time"
)

// milesPerDegreeLat is the flat-earth approximation used for radius searches:
// one degree of latitude spans roughly 69 miles. Longitude is corrected by a
// single cosine factor, so accuracy degrades near the poles and the
// antimeridian. Good enough for city-scale event discovery.
const milesPerDegreeLat = 69.0

// Point is a geographic coordinate in degrees (WGS 84).
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox is an axis-aligned rectangle in latitude/longitude degrees.
// A valid box has North > South and East > West.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate returns ErrInvalidInput if the box edges are not strictly ordered.
func (b BoundingBox) Validate() error {
	if b.North <= b.South {
		return fmt.Errorf("%w: north latitude must be greater than south latitude", ErrInvalidInput)
	}
	if b.East <= b.West {
		return fmt.Errorf("%w: east longitude must be greater than west longitude", ErrInvalidInput)
	}
	return nil
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.South && p.Latitude <= b.North &&
		p.Longitude >= b.West && p.Longitude <= b.East
}

// BoundingBoxFromRadius converts a center point and a radius in miles to a
// bounding box. Pure; callers reject radiusMiles <= 0 before getting here
// (the resulting box fails Validate in that case anyway).
func BoundingBoxFromRadius(centerLat, centerLng, radiusMiles float64) BoundingBox {
	latOffset := radiusMiles / milesPerDegreeLat
	lngOffset := radiusMiles / (milesPerDegreeLat * math.Cos(centerLat*math.Pi/180))
	return BoundingBox{
		North: centerLat + latOffset,
		South: centerLat - latOffset,
		East:  centerLng + lngOffset,
		West:  centerLng - lngOffset,
	}
}

// GeoTimeQuery combines a bounding box with a half-open time range
// [Start, End). It parameterizes both the cache key and the event query.
type GeoTimeQuery struct {
	Box   BoundingBox
	Start time.Time
	End   time.Time
}
