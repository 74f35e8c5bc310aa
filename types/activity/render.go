package activity

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// SegmentFunc is an external draw sink for one line segment.
type SegmentFunc func(x1, y1, x2, y2 float64)

// DotFunc is an external draw sink for one dot position.
type DotFunc func(x, y float64)

// indexLookup returns ord->rawIndex lookup over the zoom's retained-index
// set: the raw px index of the ord-th set bit. Like the time accessor, it
// keeps a forward cursor; the render loops only ever move forward within
// one pass.
func (a *Activity) indexLookup(zoom int) func(ord int) (int, bool) {
	ib := a.idxSet[zoom]
	if ib == nil {
		return func(int) (int, bool) { return 0, false }
	}
	cur := -1
	pos := uint(0)
	return func(ord int) (int, bool) {
		if ord < cur {
			cur = -1
		}
		if ord == cur {
			return int(pos), true
		}
		for cur < ord {
			var next uint
			var e bool
			if cur < 0 {
				next, e = ib.NextSet(0)
			} else {
				next, e = ib.NextSet(pos + 1)
			}
			if !e {
				return 0, false
			}
			pos = next
			cur++
		}
		return int(pos), true
	}
}

// maskFor picks the draw mask: the full current mask, or only the
// segments that changed since the last mask update.
func (a *Activity) maskFor(drawDiff bool) *bitset.BitSet {
	if !a.vs.initialized {
		return nil
	}
	if drawDiff {
		return a.vs.updates
	}
	return a.vs.segMask
}

// ForEachSegment calls fn(x1, y1, x2, y2) for each currently in-view
// segment of this activity, returning the count. With drawDiff, only
// segments that changed since the last segMask update are visited.
//
// Contiguous mask runs share endpoints, so the right endpoint of segment
// i is reused as the left endpoint of segment i+1 instead of re-deriving
// it through the index lookup.
func (a *Activity) ForEachSegment(fn SegmentFunc, drawDiff bool) int {
	mask := a.maskFor(drawDiff)
	if mask == nil {
		return 0
	}

	idx := a.indexLookup(a.vs.zoom)
	count := 0
	lasti := -2
	lastIdx2 := 0
	var lastX2, lastY2 float64

	for i, e := mask.NextSet(0); e; i, e = mask.NextSet(i + 1) {
		ii := int(i)
		reuse := ii == lasti+1
		lasti = ii

		idx1 := lastIdx2
		if !reuse {
			var ok bool
			if idx1, ok = idx(ii); !ok {
				continue
			}
		}
		idx2, ok := idx(ii + 1)
		if !ok {
			continue
		}
		lastIdx2 = idx2

		x1, y1 := lastX2, lastY2
		if !reuse {
			p1 := a.PointAt(idx1)
			x1, y1 = p1[0], p1[1]
		}
		p2 := a.PointAt(idx2)
		x2, y2 := p2[0], p2[1]
		lastX2, lastY2 = x2, y2

		fn(x1, y1, x2, y2)
		count++
	}
	return count
}

// ForEachDot calls fn(x, y) for each dot position of this activity due at
// wall-clock time nowSecs (epoch seconds), returning the count. Dots
// recur with data-time period T, sped up by timeScale; each dot's
// position is linearly interpolated along its segment from the recorded
// per-point times, so dots travel at a rate proportional to the recorded
// speed. With drawDiff, only changed segments are dotted.
func (a *Activity) ForEachDot(fn DotFunc, nowSecs, T, timeScale float64, drawDiff bool) int {
	mask := a.maskFor(drawDiff)
	if mask == nil {
		return 0
	}

	idx := a.indexLookup(a.vs.zoom)
	timeAt := a.TimeAt()
	start := float64(a.TS)

	count := 0
	lasti := -2
	lastIdx1 := 0
	lastTb := 0.0
	timeOffset := 0.0
	first := true

	// mask bit i gives the ordinal of the start of the i-th segment.
	for i, e := mask.NextSet(0); e; i, e = mask.NextSet(i + 1) {
		ii := int(i)
		reuse := ii == lasti+1
		lasti = ii

		idx0 := lastIdx1
		if !reuse {
			var ok bool
			if idx0, ok = idx(ii); !ok {
				continue
			}
		}
		idx1, ok := idx(ii + 1)
		if !ok {
			// Missing right endpoint: nothing to dot.
			continue
		}
		lastIdx1 = idx1

		tA := lastTb
		if !reuse {
			tA = timeAt(idx0)
		}
		tB := timeAt(idx1)
		lastTb = tB

		if first {
			// Anchor the phase so that "now" maps consistently across
			// all segments of this activity.
			timeOffset = math.Mod(timeScale*(nowSecs-(start+tA)), T)
			if timeOffset < 0 {
				timeOffset += T
			}
			first = false
		}

		tAB := tB - tA
		if tAB <= 0 {
			continue
		}

		// All integer j with tA <= j*T+timeOffset < tB.
		lowest := math.Ceil((tA - timeOffset) / T)
		highest := math.Floor((tB - timeOffset) / T)
		if lowest > highest {
			continue
		}

		pA := a.PointAt(idx0)
		pB := a.PointAt(idx1)
		vx := (pB[0] - pA[0]) / tAB
		vy := (pB[1] - pA[1]) / tAB

		for j := lowest; j <= highest; j++ {
			t := j*T + timeOffset
			dt := t - tA
			// dt must be positive, so a dot landing exactly on a shared
			// endpoint is not emitted twice by adjacent segments.
			if dt > 0 && t < tB {
				fn(pA[0]+vx*dt, pA[1]+vy*dt)
				count++
			}
		}
	}
	return count
}
