package main

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/OCAP2/markerview/pkg/core"
)

const defaultMarkerType core.AdapterType = "label"

// loadMarkers reads point features from a GeoJSON FeatureCollection. Feature
// properties map onto marker options: type, title, snippet, rotation, alpha,
// flat and visible.
func loadMarkers(path string) ([]*core.Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markers: %w", err)
	}
	return parseMarkers(data)
}

func parseMarkers(data []byte) ([]*core.Marker, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markers: %w", err)
	}

	markers := make([]*core.Marker, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: only Point geometries can be markers", i)
		}
		props := f.Properties
		markers = append(markers, core.NewMarkerOptions().
			Type(core.AdapterType(props.MustString("type", string(defaultMarkerType)))).
			Position(core.LatLng{Lat: p.Lat(), Lng: p.Lon()}).
			Title(props.MustString("title", "")).
			Snippet(props.MustString("snippet", "")).
			Rotation(props.MustFloat64("rotation", 0)).
			Alpha(props.MustFloat64("alpha", 1)).
			Flat(props.MustBool("flat", false)).
			Visible(props.MustBool("visible", true)).
			Marker())
	}
	return markers, nil
}

type latLng struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type pan struct {
	DX float64 `yaml:"dx"`
	DY float64 `yaml:"dy"`
}

// cameraState holds optional camera overrides; nil fields keep the current value.
type cameraState struct {
	Center  *latLng  `yaml:"center"`
	Zoom    *float64 `yaml:"zoom"`
	Bearing *float64 `yaml:"bearing"`
	Tilt    *float64 `yaml:"tilt"`
}

type step struct {
	cameraState `yaml:",inline"`

	Pan    *pan     `yaml:"pan"`
	Click  []string `yaml:"click"`
	Frames int      `yaml:"frames"`
}

// script is a camera path replayed frame by frame.
type script struct {
	Start cameraState `yaml:"start"`
	Steps []step      `yaml:"steps"`
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return parseScript(data)
}

func parseScript(data []byte) (*script, error) {
	var s script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, st := range s.Steps {
		if st.Frames < 0 {
			return nil, fmt.Errorf("step %d: frames must not be negative", i)
		}
	}
	return &s, nil
}

// defaultScript centres the camera on the markers and holds it for frames.
func defaultScript(markers []*core.Marker, frames int) *script {
	zoom := 12.0
	s := &script{
		Start: cameraState{Zoom: &zoom},
		Steps: []step{{Frames: frames}},
	}
	if len(markers) > 0 {
		mp := make(orb.MultiPoint, 0, len(markers))
		for _, m := range markers {
			mp = append(mp, m.Position.Point())
		}
		c := mp.Bound().Center()
		s.Start.Center = &latLng{Lat: c.Lat(), Lng: c.Lon()}
	}
	return s
}
