package registry

import (
	"github.com/OCAP2/markerview/pkg/core"
	"github.com/peterstace/simplefeatures/rtree"
)

// Index answers "which markers lie inside these bounds". The native map engine
// may provide its own; RTreeIndex is the in-process default.
type Index interface {
	Insert(id core.MarkerID, p core.LatLng)
	Update(id core.MarkerID, p core.LatLng)
	Delete(id core.MarkerID)
	MarkersWithinBounds(b core.Bounds) []core.MarkerID
	Reset()
}

// RTreeIndex keeps marker positions in a bulk-loaded R-tree. Mutations mark
// the tree stale and the next query rebuilds it, so a burst of position
// updates between two reconciliations costs one rebuild.
type RTreeIndex struct {
	positions map[core.MarkerID]core.LatLng
	tree      *rtree.RTree
	stale     bool
}

// NewRTreeIndex creates an empty index.
func NewRTreeIndex() *RTreeIndex {
	return &RTreeIndex{positions: make(map[core.MarkerID]core.LatLng)}
}

func (x *RTreeIndex) Insert(id core.MarkerID, p core.LatLng) {
	x.positions[id] = p
	x.stale = true
}

func (x *RTreeIndex) Update(id core.MarkerID, p core.LatLng) {
	x.positions[id] = p
	x.stale = true
}

func (x *RTreeIndex) Delete(id core.MarkerID) {
	delete(x.positions, id)
	x.stale = true
}

func (x *RTreeIndex) Reset() {
	x.positions = make(map[core.MarkerID]core.LatLng)
	x.tree = nil
	x.stale = false
}

// MarkersWithinBounds returns the ids inside b. Bounds crossing the
// antimeridian are searched as two boxes, so an id may appear twice; the
// registry deduplicates.
func (x *RTreeIndex) MarkersWithinBounds(b core.Bounds) []core.MarkerID {
	if len(x.positions) == 0 {
		return nil
	}
	if x.stale || x.tree == nil {
		x.rebuild()
	}

	var ids []core.MarkerID
	for _, part := range b.Split() {
		box := rtree.Box{
			MinX: part.Min.X(),
			MinY: part.Min.Y(),
			MaxX: part.Max.X(),
			MaxY: part.Max.Y(),
		}
		_ = x.tree.RangeSearch(box, func(recordID int) error {
			ids = append(ids, core.MarkerID(recordID))
			return nil
		})
	}
	return ids
}

func (x *RTreeIndex) rebuild() {
	items := make([]rtree.BulkItem, 0, len(x.positions))
	for id, p := range x.positions {
		items = append(items, rtree.BulkItem{
			Box:      rtree.Box{MinX: p.Lng, MinY: p.Lat, MaxX: p.Lng, MaxY: p.Lat},
			RecordID: int(id),
		})
	}
	x.tree = rtree.BulkLoad(items)
	x.stale = false
}
