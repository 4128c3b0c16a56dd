package geo

import (
	"errors"
	"math"

	"github.com/OCAP2/markerview/pkg/core"
	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// Web Mercator constants. Screen math happens in EPSG:3857 meters, positions
// are converted from and to EPSG:4326 through wgs84.
const (
	earthRadius    = 6378137.0
	worldSize      = 2 * math.Pi * earthRadius
	maxLatitude    = 85.05112878
	TileSize       = 512.0
	MinZoom        = 0.0
	MaxZoom        = 25.5
	maxTilt        = 60.0
	epsgMercator   = 3857
	epsgWGS84      = 4326
	halfWorldMeter = worldSize / 2
)

// ErrInvalidViewport is returned when a camera is given a non-positive size.
var ErrInvalidViewport = errors.New("viewport width and height must be positive")

// Camera is a Web Mercator projector for a viewport of Width x Height pixels
// centred on Center. Bearing rotates the map clockwise, Tilt is carried for
// marker views but does not change the projection.
type Camera struct {
	Center  core.LatLng
	Zoom    float64
	Bearing float64
	Tilt    float64
	Width   float64
	Height  float64

	toMercator   wgs84.Func
	fromMercator wgs84.Func
}

// NewCamera creates a camera for the given viewport size.
func NewCamera(width, height float64) (*Camera, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}
	epsg := wgs84.EPSG()
	return &Camera{
		Width:        width,
		Height:       height,
		toMercator:   epsg.Transform(epsgWGS84, epsgMercator),
		fromMercator: epsg.Transform(epsgMercator, epsgWGS84),
	}, nil
}

// MoveTo sets the camera target, clamping zoom and tilt to supported ranges.
func (c *Camera) MoveTo(center core.LatLng, zoom, bearing, tilt float64) {
	c.Center = core.LatLng{Lat: clampLat(center.Lat), Lng: center.Lng}
	c.Zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	c.Bearing = core.NormalizeRotation(bearing)
	c.Tilt = math.Max(0, math.Min(maxTilt, tilt))
}

// PanBy moves the camera by a screen-space delta in pixels.
func (c *Camera) PanBy(dx, dy float64) {
	c.Center = c.FromScreenLocation(core.ScreenPoint{
		X: c.Width/2 + dx,
		Y: c.Height/2 + dy,
	})
}

// ToScreenLocation implements Projector.
func (c *Camera) ToScreenLocation(p core.LatLng) core.ScreenPoint {
	mx, my := c.project(p)
	cx, cy := c.project(c.Center)

	dx := wrapMeters(mx - cx)
	scale := c.scale()
	px, py := rotate(dx*scale, -(my-cy)*scale, -c.Bearing)

	return core.ScreenPoint{X: c.Width/2 + px, Y: c.Height/2 + py}
}

// FromScreenLocation is the inverse of ToScreenLocation.
func (c *Camera) FromScreenLocation(s core.ScreenPoint) core.LatLng {
	mx, my := c.screenToMeters(s)
	return c.unproject(wrapMeters(mx), my)
}

// VisibleBounds implements Projector. The bounds enclose the four viewport
// corners; a viewport wider than the world yields full longitude coverage.
func (c *Camera) VisibleBounds() core.Bounds {
	corners := orb.MultiPoint{}
	for _, s := range []core.ScreenPoint{
		{X: 0, Y: 0},
		{X: c.Width, Y: 0},
		{X: c.Width, Y: c.Height},
		{X: 0, Y: c.Height},
	} {
		mx, my := c.screenToMeters(s)
		corners = append(corners, orb.Point{mx, my})
	}
	box := corners.Bound()

	south := c.unproject(0, box.Min.Y()).Lat
	north := c.unproject(0, box.Max.Y()).Lat

	if box.Max.X()-box.Min.X() >= worldSize {
		return core.Bounds{South: south, West: -180, North: north, East: 180}
	}
	return core.Bounds{
		South: south,
		West:  c.unproject(wrapMeters(box.Min.X()), 0).Lng,
		North: north,
		East:  c.unproject(wrapMeters(box.Max.X()), 0).Lng,
	}
}

// screenToMeters returns unwrapped Mercator meters for a screen point.
func (c *Camera) screenToMeters(s core.ScreenPoint) (float64, float64) {
	px, py := rotate(s.X-c.Width/2, s.Y-c.Height/2, c.Bearing)
	cx, cy := c.project(c.Center)
	scale := c.scale()

	my := cy - py/scale
	my = math.Max(-halfWorldMeter, math.Min(halfWorldMeter, my))
	return cx + px/scale, my
}

func (c *Camera) scale() float64 {
	return TileSize * math.Pow(2, c.Zoom) / worldSize
}

func (c *Camera) project(p core.LatLng) (float64, float64) {
	x, y, _ := c.toMercator(p.Lng, clampLat(p.Lat), 0)
	return x, y
}

func (c *Camera) unproject(x, y float64) core.LatLng {
	lng, lat, _ := c.fromMercator(x, y, 0)
	return core.LatLng{Lat: clampLat(lat), Lng: lng}
}

func clampLat(lat float64) float64 {
	return math.Max(-maxLatitude, math.Min(maxLatitude, lat))
}

// wrapMeters folds an x distance in meters into [-worldSize/2, worldSize/2].
func wrapMeters(x float64) float64 {
	for x > halfWorldMeter {
		x -= worldSize
	}
	for x < -halfWorldMeter {
		x += worldSize
	}
	return x
}

// rotate turns (x, y) by deg degrees clockwise in screen space.
func rotate(x, y, deg float64) (float64, float64) {
	if deg == 0 {
		return x, y
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return x*cos - y*sin, x*sin + y*cos
}
