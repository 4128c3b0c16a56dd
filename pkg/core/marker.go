// pkg/core/marker.go
package core

import "math"

// MarkerID identifies a marker inside a registry. Zero means "not registered".
type MarkerID uint64

// AdapterType tags a marker with the adapter (and view pool) that renders it.
type AdapterType string

// Anchor is a normalized u/v position inside a view's bounding box.
// (0,0) is the top-left corner, (1,1) the bottom-right one.
type Anchor struct {
	U float64
	V float64
}

// Default anchors: the marker view points at its position with the middle of
// its bottom edge, and the info window sits centred above the view.
var (
	DefaultAnchor           = Anchor{U: 0.5, V: 1}
	DefaultInfoWindowAnchor = Anchor{U: 0.5, V: 0}
)

// Marker is a logical map annotation backed by an on-screen view while visible.
type Marker struct {
	ID       MarkerID
	Type     AdapterType
	Position LatLng

	Title   string
	Snippet string

	Visible  bool
	Rotation float64 // degrees, normalized to [0, 360)
	Alpha    float64 // 0..1
	Tilt     float64 // degrees, camera driven, only applied when Flat
	Flat     bool
	Selected bool

	Anchor           Anchor
	InfoWindowAnchor Anchor

	// Derived screen-space offsets, recomputed from the bound view.
	OffsetX               float64
	OffsetY               float64
	InfoWindowOffsetTop   float64
	InfoWindowOffsetRight float64
}

// NormalizeRotation maps any angle in degrees onto [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// ClampAlpha keeps an opacity inside [0, 1].
func ClampAlpha(a float64) float64 {
	return math.Max(0, math.Min(1, a))
}

// MarkerOptions builds markers with the defaults expected by the coordinator.
type MarkerOptions struct {
	m Marker
}

// NewMarkerOptions returns a builder for a visible, fully opaque marker.
func NewMarkerOptions() *MarkerOptions {
	return &MarkerOptions{m: Marker{
		Visible:          true,
		Alpha:            1,
		Anchor:           DefaultAnchor,
		InfoWindowAnchor: DefaultInfoWindowAnchor,
	}}
}

func (o *MarkerOptions) Type(t AdapterType) *MarkerOptions {
	o.m.Type = t
	return o
}

func (o *MarkerOptions) Position(p LatLng) *MarkerOptions {
	o.m.Position = p
	return o
}

func (o *MarkerOptions) Title(title string) *MarkerOptions {
	o.m.Title = title
	return o
}

func (o *MarkerOptions) Snippet(snippet string) *MarkerOptions {
	o.m.Snippet = snippet
	return o
}

func (o *MarkerOptions) Visible(visible bool) *MarkerOptions {
	o.m.Visible = visible
	return o
}

func (o *MarkerOptions) Rotation(deg float64) *MarkerOptions {
	o.m.Rotation = NormalizeRotation(deg)
	return o
}

func (o *MarkerOptions) Alpha(a float64) *MarkerOptions {
	o.m.Alpha = ClampAlpha(a)
	return o
}

func (o *MarkerOptions) Flat(flat bool) *MarkerOptions {
	o.m.Flat = flat
	return o
}

func (o *MarkerOptions) Anchor(u, v float64) *MarkerOptions {
	o.m.Anchor = Anchor{U: u, V: v}
	return o
}

func (o *MarkerOptions) InfoWindowAnchor(u, v float64) *MarkerOptions {
	o.m.InfoWindowAnchor = Anchor{U: u, V: v}
	return o
}

// Marker returns a fresh marker built from the options. Each call returns a
// distinct value so one builder can stamp out several markers.
func (o *MarkerOptions) Marker() *Marker {
	m := o.m
	return &m
}
