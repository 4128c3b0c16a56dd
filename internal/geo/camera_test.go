package geo

import (
	"testing"

	"github.com/OCAP2/markerview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCamera(t *testing.T) *Camera {
	t.Helper()
	c, err := NewCamera(800, 600)
	require.NoError(t, err)
	c.MoveTo(core.LatLng{Lat: 52.52, Lng: 13.405}, 12, 0, 0)
	return c
}

func TestNewCamera_InvalidViewport(t *testing.T) {
	_, err := NewCamera(0, 100)
	assert.ErrorIs(t, err, ErrInvalidViewport)

	_, err = NewCamera(100, -1)
	assert.ErrorIs(t, err, ErrInvalidViewport)
}

func TestCamera_CenterProjectsToViewportCenter(t *testing.T) {
	c := newTestCamera(t)

	p := c.ToScreenLocation(c.Center)
	assert.InDelta(t, 400, p.X, 1e-6)
	assert.InDelta(t, 300, p.Y, 1e-6)
}

func TestCamera_ScreenAxes(t *testing.T) {
	c := newTestCamera(t)

	east := c.ToScreenLocation(core.LatLng{Lat: 52.52, Lng: 13.41})
	north := c.ToScreenLocation(core.LatLng{Lat: 52.53, Lng: 13.405})

	assert.Greater(t, east.X, 400.0, "east should be right of centre")
	assert.InDelta(t, 300, east.Y, 1e-6)
	assert.Less(t, north.Y, 300.0, "north should be above centre")
}

func TestCamera_RoundTrip(t *testing.T) {
	c := newTestCamera(t)
	c.MoveTo(c.Center, 14, 33, 0)

	want := core.LatLng{Lat: 52.51, Lng: 13.39}
	got := c.FromScreenLocation(c.ToScreenLocation(want))

	assert.InDelta(t, want.Lat, got.Lat, 1e-7)
	assert.InDelta(t, want.Lng, got.Lng, 1e-7)
}

func TestCamera_VisibleBoundsContainCenter(t *testing.T) {
	c := newTestCamera(t)

	b := c.VisibleBounds()
	assert.True(t, b.Contains(c.Center))
	assert.Less(t, b.South, b.North)
	assert.Less(t, b.West, b.East)
}

func TestCamera_ZoomShrinksBounds(t *testing.T) {
	c := newTestCamera(t)
	wide := c.VisibleBounds()

	c.MoveTo(c.Center, 15, 0, 0)
	narrow := c.VisibleBounds()

	assert.Less(t, narrow.East-narrow.West, wide.East-wide.West)
	assert.Less(t, narrow.North-narrow.South, wide.North-wide.South)
}

func TestCamera_WholeWorldAtLowZoom(t *testing.T) {
	c, err := NewCamera(4096, 4096)
	require.NoError(t, err)
	c.MoveTo(core.LatLng{}, 0, 0, 0)

	b := c.VisibleBounds()
	assert.Equal(t, -180.0, b.West)
	assert.Equal(t, 180.0, b.East)
	assert.InDelta(t, maxLatitude, b.North, 1e-6)
}

func TestCamera_AntimeridianBounds(t *testing.T) {
	c, err := NewCamera(800, 600)
	require.NoError(t, err)
	c.MoveTo(core.LatLng{Lat: 0, Lng: 179.99}, 10, 0, 0)

	b := c.VisibleBounds()
	require.True(t, b.CrossesAntimeridian())
	assert.True(t, b.Contains(core.LatLng{Lat: 0, Lng: -179.995}))

	p := c.ToScreenLocation(core.LatLng{Lat: 0, Lng: -179.995})
	assert.Greater(t, p.X, 400.0, "a point just past the antimeridian should project to the east")
}

func TestCamera_MoveToClamps(t *testing.T) {
	c := newTestCamera(t)
	c.MoveTo(core.LatLng{Lat: 89, Lng: 0}, 40, -90, 90)

	assert.InDelta(t, maxLatitude, c.Center.Lat, 1e-9)
	assert.Equal(t, MaxZoom, c.Zoom)
	assert.Equal(t, 270.0, c.Bearing)
	assert.Equal(t, maxTilt, c.Tilt)
}

func TestCamera_PanBy(t *testing.T) {
	c := newTestCamera(t)
	before := c.Center

	c.PanBy(100, 0)
	assert.Greater(t, c.Center.Lng, before.Lng)
	assert.InDelta(t, before.Lat, c.Center.Lat, 1e-6)
}
