package geo

import "github.com/OCAP2/markerview/pkg/core"

// Projector converts geographic positions to screen pixels for the current
// camera. The map engine owns the real implementation; Camera is a Web
// Mercator stand-in used by the simulator and tests.
type Projector interface {
	ToScreenLocation(p core.LatLng) core.ScreenPoint
	VisibleBounds() core.Bounds
}
