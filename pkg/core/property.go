// pkg/core/property.go
package core

// Property names a mutable marker attribute.
type Property int

const (
	PropertyPosition Property = iota + 1
	PropertyRotation
	PropertyAlpha
	PropertyVisible
	PropertyFlat
	PropertyAnchor
	PropertyInfoWindowAnchor
	PropertyTitle
	PropertySnippet
)

var propertyNames = map[Property]string{
	PropertyPosition:         "position",
	PropertyRotation:         "rotation",
	PropertyAlpha:            "alpha",
	PropertyVisible:          "visible",
	PropertyFlat:             "flat",
	PropertyAnchor:           "anchor",
	PropertyInfoWindowAnchor: "infoWindowAnchor",
	PropertyTitle:            "title",
	PropertySnippet:          "snippet",
}

func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return "unknown"
}
