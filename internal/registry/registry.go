// Package registry holds every logical marker of a map session, visible or not.
//
// The registry is driven from the coordinating goroutine and is not safe for
// concurrent use. Mutations are reported to a Listener so the coordinator can
// re-apply them to a bound view.
package registry

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/OCAP2/markerview/pkg/core"
)

var (
	// ErrNotFound is returned when an id is not (or no longer) registered.
	ErrNotFound = errors.New("marker not found")
	// ErrDuplicateInsertion is returned when inserting a marker that is already registered.
	ErrDuplicateInsertion = errors.New("marker already registered")
	// ErrInvalidValue is returned for a property value of the wrong kind or range.
	ErrInvalidValue = errors.New("invalid property value")
)

// Listener receives registry mutations.
type Listener interface {
	MarkerInserted(m *core.Marker)
	MarkerRemoved(m *core.Marker)
	PropertyChanged(m *core.Marker, p core.Property, old any)
}

// Option configures a Registry.
type Option func(*Registry)

// WithIndex replaces the default R-tree spatial index.
func WithIndex(idx Index) Option {
	return func(r *Registry) {
		r.index = idx
	}
}

// Registry maps marker ids to markers.
type Registry struct {
	markers  map[core.MarkerID]*core.Marker
	lastID   core.MarkerID
	index    Index
	listener Listener
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		markers: make(map[core.MarkerID]*core.Marker),
		index:   NewRTreeIndex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetListener registers the mutation listener. Passing nil disables notifications.
func (r *Registry) SetListener(l Listener) {
	r.listener = l
}

// Insert registers m and assigns it a new id. Ids are never reused, so a marker
// removed earlier gets a fresh id when inserted again.
func (r *Registry) Insert(m *core.Marker) (core.MarkerID, error) {
	if m == nil {
		return 0, fmt.Errorf("insert nil marker: %w", ErrInvalidValue)
	}
	if math.IsNaN(m.Position.Lat) || math.IsNaN(m.Position.Lng) {
		return 0, fmt.Errorf("insert marker at %v: %w", m.Position, ErrInvalidValue)
	}
	if _, ok := r.markers[m.ID]; ok && m.ID != 0 {
		return 0, fmt.Errorf("insert marker %d: %w", m.ID, ErrDuplicateInsertion)
	}

	r.lastID++
	m.ID = r.lastID
	m.Rotation = core.NormalizeRotation(m.Rotation)
	m.Alpha = core.ClampAlpha(m.Alpha)
	r.markers[m.ID] = m
	r.index.Insert(m.ID, m.Position)

	if r.listener != nil {
		r.listener.MarkerInserted(m)
	}
	return m.ID, nil
}

// Remove unregisters a marker. The marker keeps its id so callers can tell it
// was once registered.
func (r *Registry) Remove(id core.MarkerID) error {
	m, ok := r.markers[id]
	if !ok {
		return fmt.Errorf("remove marker %d: %w", id, ErrNotFound)
	}
	delete(r.markers, id)
	r.index.Delete(id)

	if r.listener != nil {
		r.listener.MarkerRemoved(m)
	}
	return nil
}

// Get returns a registered marker.
func (r *Registry) Get(id core.MarkerID) (*core.Marker, bool) {
	m, ok := r.markers[id]
	return m, ok
}

// Len returns the number of registered markers.
func (r *Registry) Len() int {
	return len(r.markers)
}

// All returns every registered marker ordered by id.
func (r *Registry) All() []*core.Marker {
	out := make([]*core.Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, m)
	}
	sortByID(out)
	return out
}

// Reset removes every marker, notifying the listener for each one. Ids keep
// increasing afterwards.
func (r *Registry) Reset() {
	all := r.All()
	r.markers = make(map[core.MarkerID]*core.Marker)
	r.index.Reset()
	if r.listener == nil {
		return
	}
	for _, m := range all {
		r.listener.MarkerRemoved(m)
	}
}

// QueryVisible returns the markers positioned inside b, without duplicates and
// ordered by id. Markers with Visible=false are included: visibility is a view
// property, not a membership one.
func (r *Registry) QueryVisible(b core.Bounds) []*core.Marker {
	ids := r.index.MarkersWithinBounds(b)
	seen := make(map[core.MarkerID]struct{}, len(ids))
	out := make([]*core.Marker, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := r.markers[id]; ok {
			out = append(out, m)
		}
	}
	sortByID(out)
	return out
}

// Set mutates a property by name. The value must have the property's type:
// core.LatLng, float64, bool, core.Anchor or string.
func (r *Registry) Set(id core.MarkerID, p core.Property, value any) error {
	var ok bool
	switch p {
	case core.PropertyPosition:
		var v core.LatLng
		if v, ok = value.(core.LatLng); ok {
			return r.SetPosition(id, v)
		}
	case core.PropertyRotation:
		var v float64
		if v, ok = value.(float64); ok {
			return r.SetRotation(id, v)
		}
	case core.PropertyAlpha:
		var v float64
		if v, ok = value.(float64); ok {
			return r.SetAlpha(id, v)
		}
	case core.PropertyVisible:
		var v bool
		if v, ok = value.(bool); ok {
			return r.SetVisible(id, v)
		}
	case core.PropertyFlat:
		var v bool
		if v, ok = value.(bool); ok {
			return r.SetFlat(id, v)
		}
	case core.PropertyAnchor:
		var v core.Anchor
		if v, ok = value.(core.Anchor); ok {
			return r.SetAnchor(id, v)
		}
	case core.PropertyInfoWindowAnchor:
		var v core.Anchor
		if v, ok = value.(core.Anchor); ok {
			return r.SetInfoWindowAnchor(id, v)
		}
	case core.PropertyTitle:
		var v string
		if v, ok = value.(string); ok {
			return r.SetTitle(id, v)
		}
	case core.PropertySnippet:
		var v string
		if v, ok = value.(string); ok {
			return r.SetSnippet(id, v)
		}
	}
	return fmt.Errorf("set %s on marker %d to %v: %w", p, id, value, ErrInvalidValue)
}

func (r *Registry) SetPosition(id core.MarkerID, p core.LatLng) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("set position on marker %d: %w", id, ErrInvalidValue)
	}
	return r.mutate(id, core.PropertyPosition, func(m *core.Marker) any {
		old := m.Position
		m.Position = p
		r.index.Update(id, p)
		return old
	})
}

func (r *Registry) SetRotation(id core.MarkerID, deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return fmt.Errorf("set rotation on marker %d: %w", id, ErrInvalidValue)
	}
	return r.mutate(id, core.PropertyRotation, func(m *core.Marker) any {
		old := m.Rotation
		m.Rotation = core.NormalizeRotation(deg)
		return old
	})
}

func (r *Registry) SetAlpha(id core.MarkerID, a float64) error {
	if math.IsNaN(a) {
		return fmt.Errorf("set alpha on marker %d: %w", id, ErrInvalidValue)
	}
	return r.mutate(id, core.PropertyAlpha, func(m *core.Marker) any {
		old := m.Alpha
		m.Alpha = core.ClampAlpha(a)
		return old
	})
}

func (r *Registry) SetVisible(id core.MarkerID, visible bool) error {
	return r.mutate(id, core.PropertyVisible, func(m *core.Marker) any {
		old := m.Visible
		m.Visible = visible
		return old
	})
}

func (r *Registry) SetFlat(id core.MarkerID, flat bool) error {
	return r.mutate(id, core.PropertyFlat, func(m *core.Marker) any {
		old := m.Flat
		m.Flat = flat
		return old
	})
}

func (r *Registry) SetAnchor(id core.MarkerID, a core.Anchor) error {
	return r.mutate(id, core.PropertyAnchor, func(m *core.Marker) any {
		old := m.Anchor
		m.Anchor = a
		return old
	})
}

func (r *Registry) SetInfoWindowAnchor(id core.MarkerID, a core.Anchor) error {
	return r.mutate(id, core.PropertyInfoWindowAnchor, func(m *core.Marker) any {
		old := m.InfoWindowAnchor
		m.InfoWindowAnchor = a
		return old
	})
}

func (r *Registry) SetTitle(id core.MarkerID, title string) error {
	return r.mutate(id, core.PropertyTitle, func(m *core.Marker) any {
		old := m.Title
		m.Title = title
		return old
	})
}

func (r *Registry) SetSnippet(id core.MarkerID, snippet string) error {
	return r.mutate(id, core.PropertySnippet, func(m *core.Marker) any {
		old := m.Snippet
		m.Snippet = snippet
		return old
	})
}

func (r *Registry) mutate(id core.MarkerID, p core.Property, apply func(*core.Marker) any) error {
	m, ok := r.markers[id]
	if !ok {
		return fmt.Errorf("set %s on marker %d: %w", p, id, ErrNotFound)
	}
	old := apply(m)
	if r.listener != nil {
		r.listener.PropertyChanged(m, p, old)
	}
	return nil
}

func sortByID(ms []*core.Marker) {
	slices.SortFunc(ms, func(a, b *core.Marker) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
