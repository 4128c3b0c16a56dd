// Package view models the on-screen elements the coordinator recycles. A View
// is a plain handle: the host toolkit reads its fields when drawing.
package view

import "sync/atomic"

// ID identifies a view for logging and tracing.
type ID uint64

var lastID atomic.Uint64

// Property is an animatable scalar of a view.
type Property int

const (
	Rotation Property = iota + 1
	Alpha
	Scale
	TiltX
)

func (p Property) String() string {
	switch p {
	case Rotation:
		return "rotation"
	case Alpha:
		return "alpha"
	case Scale:
		return "scale"
	case TiltX:
		return "tiltX"
	}
	return "unknown"
}

// View is one reusable visual element.
type View struct {
	id ID

	Width  float64
	Height float64
	X      float64
	Y      float64

	Rotation float64
	Alpha    float64
	Scale    float64
	TiltX    float64

	Visible     bool
	Interactive bool

	// Content is whatever the adapter displays (label text, icon key, ...).
	Content any
}

// New creates a visible, opaque view of the given size.
func New(width, height float64) *View {
	return &View{
		id:          ID(lastID.Add(1)),
		Width:       width,
		Height:      height,
		Alpha:       1,
		Scale:       1,
		Visible:     true,
		Interactive: true,
	}
}

func (v *View) ID() ID {
	return v.id
}

// Get returns the current value of an animatable property.
func (v *View) Get(p Property) float64 {
	switch p {
	case Rotation:
		return v.Rotation
	case Alpha:
		return v.Alpha
	case Scale:
		return v.Scale
	case TiltX:
		return v.TiltX
	}
	return 0
}

// Set writes an animatable property.
func (v *View) Set(p Property, value float64) {
	switch p {
	case Rotation:
		v.Rotation = value
	case Alpha:
		v.Alpha = value
	case Scale:
		v.Scale = value
	case TiltX:
		v.TiltX = value
	}
}

// Hide makes the view invisible and non-interactive so a pooled view never
// shows stale content.
func (v *View) Hide() {
	v.Visible = false
	v.Interactive = false
	v.Alpha = 0
}
