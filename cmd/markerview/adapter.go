package main

import (
	"github.com/OCAP2/markerview/internal/markerview"
	"github.com/OCAP2/markerview/internal/view"
	"github.com/OCAP2/markerview/pkg/core"
)

const (
	labelCharWidth = 8.0
	labelPadding   = 12.0
	labelHeight    = 24.0
	labelMinWidth  = 32.0

	pinType   core.AdapterType = "pin"
	pinWidth                   = 24.0
	pinHeight                  = 32.0
)

// labelAdapter renders the marker title as a text bubble sized to fit it.
type labelAdapter struct {
	markerview.BaseAdapter
}

func (labelAdapter) Type() core.AdapterType { return defaultMarkerType }

func (labelAdapter) CreateOrReuseView(m *core.Marker, recycled *view.View, _ *view.Container) *view.View {
	w := max(labelMinWidth, float64(len([]rune(m.Title)))*labelCharWidth+labelPadding)
	v := recycled
	if v == nil {
		v = view.New(w, labelHeight)
	}
	v.Width = w
	v.Content = m.Title
	return v
}

// pinAdapter renders a fixed-size icon.
type pinAdapter struct {
	markerview.BaseAdapter
}

func (pinAdapter) Type() core.AdapterType { return pinType }

func (pinAdapter) CreateOrReuseView(_ *core.Marker, recycled *view.View, _ *view.Container) *view.View {
	if recycled != nil {
		return recycled
	}
	v := view.New(pinWidth, pinHeight)
	v.Content = "pin"
	return v
}
