package markerview

import (
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

// Adapter creates and recycles the views of one marker type.
type Adapter interface {
	// Type is the tag of the markers this adapter renders.
	Type() core.AdapterType

	// CreateOrReuseView returns the view for m. A non-nil recycled view must be
	// rebound to m's data and may be returned as is. Returning another view
	// leaves recycled in the pool; returning nil skips m until the next
	// reconciliation.
	CreateOrReuseView(m *core.Marker, recycled *view.View, parent *view.Container) *view.View

	// PrepareForReuse resets transient state before v goes back to the pool.
	// Returning false means the adapter hands v back itself through
	// Coordinator.ReleaseView.
	PrepareForReuse(m *core.Marker, v *view.View) bool

	// OnSelect is called when m becomes selected. Returning true means the
	// adapter calls Coordinator.MarkSelected once its own animation ends.
	// replay is true when an already selected marker gets bound again.
	OnSelect(m *core.Marker, v *view.View, replay bool) bool

	OnDeselect(m *core.Marker, v *view.View)
}

// BaseAdapter provides the default hooks. Embed it and implement Type and
// CreateOrReuseView.
type BaseAdapter struct{}

func (BaseAdapter) PrepareForReuse(*core.Marker, *view.View) bool { return true }
func (BaseAdapter) OnSelect(*core.Marker, *view.View, bool) bool  { return false }
func (BaseAdapter) OnDeselect(*core.Marker, *view.View)           {}

// ClickListener is notified when a bound view is clicked. Returning true
// consumes the click and leaves the selection untouched.
type ClickListener func(m *core.Marker, v *view.View, a Adapter) bool

// AddedListener is notified once a marker gets its view.
type AddedListener func(m *core.Marker, v *view.View)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
