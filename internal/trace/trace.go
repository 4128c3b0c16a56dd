// internal/trace/trace.go
package trace

import (
	"time"

	"github.com/OCAP2/markerview/pkg/core"
)

// Kind classifies a coordinator event.
type Kind string

const (
	KindReconcile Kind = "reconcile"
	KindBind      Kind = "bind"
	KindRelease   Kind = "release"
	KindSkip      Kind = "skip"
	KindSelect    Kind = "select"
	KindDeselect  Kind = "deselect"
	KindRemove    Kind = "remove"
)

// Event is one recorded coordinator action.
type Event struct {
	Frame    uint64           `json:"frame"`
	Time     time.Time        `json:"time"`
	Kind     Kind             `json:"kind"`
	MarkerID core.MarkerID    `json:"markerId,omitempty"`
	Adapter  core.AdapterType `json:"adapter,omitempty"`
	Detail   map[string]any   `json:"detail,omitempty"`
}

// Sink is the interface all trace backends must satisfy.
type Sink interface {
	Record(e Event) error
	Flush() error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) error { return nil }
func (Nop) Flush() error       { return nil }
func (Nop) Close() error       { return nil }
