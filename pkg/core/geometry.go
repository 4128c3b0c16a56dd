// pkg/core/geometry.go
package core

import (
	"fmt"

	"github.com/paulmach/orb"
)

// LatLng is a WGS84 geographic position in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Point returns the position as an orb point (x=lng, y=lat).
func (l LatLng) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

func (l LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// ScreenPoint is a position in screen pixels, origin top-left.
type ScreenPoint struct {
	X float64
	Y float64
}

// Bounds is a geographic rectangle. When West > East the bounds cross the
// antimeridian.
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// BoundsFromOrb converts an orb bound (x=lng, y=lat) to Bounds.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{
		South: b.Min.Lat(),
		West:  b.Min.Lon(),
		North: b.Max.Lat(),
		East:  b.Max.Lon(),
	}
}

// CrossesAntimeridian reports whether the bounds wrap around longitude 180.
func (b Bounds) CrossesAntimeridian() bool {
	return b.West > b.East
}

// Split returns one orb bound per side of the antimeridian (one bound when the
// bounds do not cross it).
func (b Bounds) Split() []orb.Bound {
	if !b.CrossesAntimeridian() {
		return []orb.Bound{{
			Min: orb.Point{b.West, b.South},
			Max: orb.Point{b.East, b.North},
		}}
	}
	return []orb.Bound{
		{Min: orb.Point{b.West, b.South}, Max: orb.Point{180, b.North}},
		{Min: orb.Point{-180, b.South}, Max: orb.Point{b.East, b.North}},
	}
}

// Contains reports whether the position lies inside the bounds, edges included.
func (b Bounds) Contains(p LatLng) bool {
	for _, part := range b.Split() {
		if part.Contains(p.Point()) {
			return true
		}
	}
	return false
}
