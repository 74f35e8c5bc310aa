package activity

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/rotblauer/dotd/geo"
)

/*
 * A segMask is a bitset containing the index of the start point of each
 * segment that is in view and is not bad. A segment is considered in view
 * if at least one of its endpoints is in the current view. A "bad" segment
 * is one that represents a gap in GPS data. The indices are relative to
 * the current zoom's idxSet enumeration, so the i-th mask bit corresponds
 * to the segment between the i-th and (i+1)-th retained points.
 */
type viewState struct {
	segMask     *bitset.BitSet
	lastSegMask *bitset.BitSet
	updates     *bitset.BitSet

	zoom     int
	lastZoom int

	containedInMapBounds bool
	initialized          bool
}

// SegMask returns the current visibility mask, or nil before the first
// UpdateSegMask call.
func (a *Activity) SegMask() *bitset.BitSet {
	if !a.vs.initialized {
		return nil
	}
	return a.vs.segMask
}

// SegMaskUpdates returns the segments that changed (newly visible) in the
// last UpdateSegMask call, or nil before the first.
func (a *Activity) SegMaskUpdates() *bitset.BitSet {
	if !a.vs.initialized {
		return nil
	}
	return a.vs.updates
}

// MaskZoom returns the zoom level the current segMask was computed for.
func (a *Activity) MaskZoom() int {
	if !a.vs.initialized {
		return -1
	}
	return a.vs.zoom
}

// ContainedInMapBounds reports whether the whole activity bounding box
// was inside the viewport at the last mask update.
func (a *Activity) ContainedInMapBounds() bool { return a.vs.containedInMapBounds }

// UpdateSegMask recomputes which segments are visible in the viewport at
// the given zoom, and the difference from the previous frame. It returns
// the mask, or nil when there is nothing to draw. The previous mask is
// kept so that consumers can draw or erase only the parts of the path
// that changed.
func (a *Activity) UpdateSegMask(viewport geo.PixelBounds, zoom int) *bitset.BitSet {
	a.MakeIdxSet(zoom)

	vs := &a.vs
	if !vs.initialized {
		vs.segMask = bitset.New(0)
		vs.lastSegMask = bitset.New(0)
		vs.updates = bitset.New(0)
		vs.zoom, vs.lastZoom = -1, -1
		vs.initialized = true
	}

	// Rotate buffers: the current mask becomes the last one, and the old
	// last-mask storage is cleared and rebuilt in place.
	vs.segMask, vs.lastSegMask = vs.lastSegMask, vs.segMask
	vs.lastZoom = vs.zoom
	vs.zoom = zoom

	cur := vs.segMask
	cur.ClearAll()

	nseg := int(a.idxSet[zoom].Count()) - 1

	// Fully contained and was fully contained last frame at this zoom:
	// the mask cannot have changed, so skip the diff entirely.
	stillContained := false

	if viewport.ContainsBounds(a.PxBounds) {
		// The activity is completely contained in the viewport, so every
		// segment is in view and the full mask is a bulk bit-fill.
		stillContained = vs.containedInMapBounds && zoom == vs.lastZoom
		if nseg > 0 {
			cur.FlipRange(0, uint(nseg))
		}
		vs.containedInMapBounds = true
	} else {
		vs.containedInMapBounds = false
		ib := a.idxSet[zoom]
		lastIn := false
		j := 0
		for rawIdx, e := ib.NextSet(0); e; rawIdx, e = ib.NextSet(rawIdx + 1) {
			p := a.PointAt(int(rawIdx))
			in := viewport.Contains(p[0], p[1])
			// A segment is included if either endpoint is in view,
			// capturing segments that cross the viewport edge.
			if j > 0 && (lastIn || in) {
				cur.Set(uint(j - 1))
			}
			lastIn = in
			j++
		}
	}

	// Gap segments are never drawn, visible or not.
	for _, b := range a.badSegIdx[zoom] {
		cur.Clear(uint(b))
	}

	if stillContained {
		vs.updates.ClearAll()
		return cur
	}

	if !vs.containedInMapBounds && cur.None() {
		vs.updates.ClearAll()
		return nil
	}

	if zoom != vs.lastZoom {
		// Mask indices mean different segments at different zooms, so
		// there is no meaningful diff: everything is an update.
		vs.updates = cur.Clone()
	} else {
		vs.updates = cur.Clone()
		vs.updates.InPlaceDifference(vs.lastSegMask)
		a.extendUpdateRuns()
	}

	if cur.None() {
		vs.updates.ClearAll()
		return nil
	}
	return cur
}

// extendUpdateRuns widens every maximal run of update segments by one
// segment on each side, where that neighbor was drawn last frame and is
// still in the current mask. Consumers then redraw a segment that newly
// touches an already-drawn one, which keeps path joins seamless at the
// viewport edges.
func (a *Activity) extendUpdateRuns() {
	vs := &a.vs
	type run struct{ lo, hi int }
	var runs []run
	prev := -2
	for i, e := vs.updates.NextSet(0); e; i, e = vs.updates.NextSet(i + 1) {
		ii := int(i)
		if ii == prev+1 {
			runs[len(runs)-1].hi = ii
		} else {
			runs = append(runs, run{ii, ii})
		}
		prev = ii
	}
	for _, r := range runs {
		if r.lo > 0 && vs.lastSegMask.Test(uint(r.lo-1)) && vs.segMask.Test(uint(r.lo-1)) {
			vs.updates.Set(uint(r.lo - 1))
		}
		if vs.lastSegMask.Test(uint(r.hi+1)) && vs.segMask.Test(uint(r.hi+1)) {
			vs.updates.Set(uint(r.hi + 1))
		}
	}
}
