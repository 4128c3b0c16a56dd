package markerview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

func TestSelect_BoundMarkerAnimates(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))
	v := h.boundView(t, a.ID)

	require.NoError(t, h.c.Select(a.ID))
	assert.True(t, a.Selected)
	assert.Equal(t, []selectCall{{id: a.ID, replay: false}}, pins.selects)

	calls := h.anim.callsFor(v, view.Scale)
	require.Len(t, calls, 1)
	assert.Equal(t, 1.2, calls[0].to)
	assert.Equal(t, 300*time.Millisecond, calls[0].duration)

	require.NoError(t, h.c.Select(a.ID))
	assert.Len(t, pins.selects, 1, "selecting twice is a no-op")
}

func TestSelect_ReplayOnRebind(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))

	require.NoError(t, h.c.Select(a.ID))
	h.clock.advance(time.Second)
	h.c.Tick()
	require.Equal(t, 1.2, h.boundView(t, a.ID).Scale)

	require.NoError(t, h.c.SetPosition(a.ID, outside))
	require.NoError(t, h.c.Reconcile())
	assert.True(t, a.Selected, "selection survives leaving the viewport")

	h.anim.calls = nil
	require.NoError(t, h.c.SetPosition(a.ID, inside))
	require.NoError(t, h.c.Reconcile())
	v := h.boundView(t, a.ID)

	assert.Equal(t, 1.2, v.Scale, "rebound in the selected state")
	assert.Equal(t, []selectCall{{a.ID, false}, {a.ID, true}}, pins.selects)
	for _, c := range h.anim.callsFor(v, view.Scale) {
		assert.Zero(t, c.duration, "replay never animates")
	}
}

func TestSelect_UnboundMarkerReplayedOnBind(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", outside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))

	require.NoError(t, h.c.Select(a.ID))
	assert.True(t, a.Selected)
	assert.Empty(t, pins.selects)

	require.NoError(t, h.c.SetPosition(a.ID, inside))
	require.NoError(t, h.c.Reconcile())
	assert.Equal(t, []selectCall{{a.ID, true}}, pins.selects)
	assert.Equal(t, 1.2, h.boundView(t, a.ID).Scale)
}

func TestSelect_SingleSelection(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	b := h.insert(t, typePin, "B", inside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))

	require.NoError(t, h.c.Select(a.ID))
	require.NoError(t, h.c.Select(b.ID))

	assert.False(t, a.Selected)
	assert.True(t, b.Selected)
	assert.Equal(t, []core.MarkerID{a.ID}, pins.deselects)
	assert.Equal(t, []core.MarkerID{b.ID}, h.c.Selected())
}

func TestSelect_MultipleSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowMultipleSelection = true
	h := newHarness(t, WithConfig(cfg))
	a := h.insert(t, typePin, "A", inside)
	b := h.insert(t, typePin, "B", inside)
	require.NoError(t, h.c.RegisterAdapter(newFakeAdapter(typePin)))

	require.NoError(t, h.c.Select(a.ID))
	require.NoError(t, h.c.Select(b.ID))
	assert.Equal(t, []core.MarkerID{a.ID, b.ID}, h.c.Selected())

	h.c.DeselectAll()
	assert.Empty(t, h.c.Selected())
	assert.False(t, a.Selected)
	assert.False(t, b.Selected)
}

func TestSelect_AdapterConfirmsLater(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	pins.consume = true
	require.NoError(t, h.c.RegisterAdapter(pins))

	require.NoError(t, h.c.Select(a.ID))
	assert.False(t, a.Selected, "adapter owns the confirmation")

	done := make(chan struct{})
	go func() {
		h.c.Post(func() {
			assert.NoError(t, h.c.MarkSelected(a.ID))
		})
		close(done)
	}()
	<-done

	h.c.Tick()
	assert.True(t, a.Selected)
	assert.Equal(t, []core.MarkerID{a.ID}, h.c.Selected())
}

func TestMarkSelected_WithdrawnSelection(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	pins.consume = true
	require.NoError(t, h.c.RegisterAdapter(pins))

	require.NoError(t, h.c.Select(a.ID))
	require.NoError(t, h.c.Deselect(a.ID))
	require.NoError(t, h.c.MarkSelected(a.ID))
	assert.False(t, a.Selected)

	assert.ErrorIs(t, h.c.MarkSelected(999), registry.ErrNotFound)
}

func TestDeselect(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))
	v := h.boundView(t, a.ID)

	require.NoError(t, h.c.Deselect(a.ID))
	assert.Empty(t, pins.deselects, "not selected")

	require.NoError(t, h.c.Select(a.ID))
	require.NoError(t, h.c.Deselect(a.ID))
	assert.False(t, a.Selected)
	assert.Equal(t, []core.MarkerID{a.ID}, pins.deselects)

	h.clock.advance(time.Second)
	h.c.Tick()
	assert.Equal(t, 1.0, v.Scale)

	assert.ErrorIs(t, h.c.Deselect(999), registry.ErrNotFound)
}

func TestClick(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	b := h.insert(t, typePin, "B", outside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))

	tests := []struct {
		name     string
		consume  bool
		selected bool
	}{
		{name: "toggles on", consume: false, selected: true},
		{name: "consumed", consume: true, selected: true},
		{name: "toggles off", consume: false, selected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var clicked []core.MarkerID
			h.c.SetOnMarkerViewClick(func(m *core.Marker, v *view.View, ad Adapter) bool {
				assert.Same(t, pins, ad)
				clicked = append(clicked, m.ID)
				return tt.consume
			})

			require.NoError(t, h.c.Click(a.ID))
			assert.Equal(t, []core.MarkerID{a.ID}, clicked)
			assert.Equal(t, tt.selected, a.Selected)
		})
	}

	assert.ErrorIs(t, h.c.Click(b.ID), ErrNotBound)
	assert.ErrorIs(t, h.c.Click(999), registry.ErrNotFound)
}

func TestRemove_ClearsSelection(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	require.NoError(t, h.c.RegisterAdapter(newFakeAdapter(typePin)))
	require.NoError(t, h.c.Select(a.ID))
	v := h.boundView(t, a.ID)

	require.NoError(t, h.c.Remove(a.ID))
	assert.False(t, a.Selected)
	assert.Empty(t, h.c.Selected())
	assert.Equal(t, 1.0, v.Scale)
}

func preselected(title string) *core.Marker {
	m := core.NewMarkerOptions().Type(typePin).Title(title).Position(inside).Marker()
	m.Selected = true
	return m
}

func TestNew_AdoptsPreselectedMarkers(t *testing.T) {
	tests := []struct {
		name     string
		multiple bool
		want     []core.MarkerID
	}{
		{name: "single selection keeps the last", want: []core.MarkerID{2}},
		{name: "multiple selection keeps all", multiple: true, want: []core.MarkerID{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New()
			first, second := preselected("first"), preselected("second")
			_, err := reg.Insert(first)
			require.NoError(t, err)
			_, err = reg.Insert(second)
			require.NoError(t, err)

			cfg := DefaultConfig()
			cfg.AllowMultipleSelection = tt.multiple
			c, err := New(reg, &fakeProjector{bounds: core.Bounds{South: -1, West: -1, North: 1, East: 1}},
				WithConfig(cfg), WithMeter(noop.Meter{}), WithLogger(&testLogger{}))
			require.NoError(t, err)

			assert.Equal(t, tt.want, c.Selected())
			assert.Equal(t, tt.multiple, first.Selected)
			assert.True(t, second.Selected)

			third := core.NewMarkerOptions().Type(typePin).Position(inside).Marker()
			_, err = c.Insert(third)
			require.NoError(t, err)
			require.NoError(t, c.Select(third.ID))
			if !tt.multiple {
				assert.Equal(t, []core.MarkerID{third.ID}, c.Selected())
				assert.False(t, second.Selected)
			}
		})
	}
}

func TestInsert_PreselectedReplacesSelection(t *testing.T) {
	h := newHarness(t)
	a := h.insert(t, typePin, "A", inside)
	pins := newFakeAdapter(typePin)
	require.NoError(t, h.c.RegisterAdapter(pins))
	require.NoError(t, h.c.Select(a.ID))
	v := h.boundView(t, a.ID)

	b := preselected("B")
	_, err := h.c.Insert(b)
	require.NoError(t, err)

	assert.Equal(t, []core.MarkerID{b.ID}, h.c.Selected())
	assert.False(t, a.Selected)
	assert.Equal(t, []core.MarkerID{a.ID}, pins.deselects)
	h.clock.advance(time.Second)
	h.c.Tick()
	assert.Equal(t, 1.0, v.Scale)

	require.NoError(t, h.c.Reconcile())
	assert.Equal(t, 1.2, h.boundView(t, b.ID).Scale, "bound in the selected state")
	assert.Contains(t, pins.selects, selectCall{id: b.ID, replay: true})
}

func TestInsert_PreselectedWithMultipleSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowMultipleSelection = true
	h := newHarness(t, WithConfig(cfg))
	a := h.insert(t, typePin, "A", inside)
	require.NoError(t, h.c.RegisterAdapter(newFakeAdapter(typePin)))
	require.NoError(t, h.c.Select(a.ID))

	b := preselected("B")
	_, err := h.c.Insert(b)
	require.NoError(t, err)

	assert.Equal(t, []core.MarkerID{a.ID, b.ID}, h.c.Selected())
	assert.True(t, a.Selected)
}
