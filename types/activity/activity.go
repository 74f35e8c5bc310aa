/*
Package activity is the heart of dotd: one Activity owns one GPS track's
point and time buffers and everything derived from them - per-zoom
simplified index sets, gap locations, and the per-frame segment
visibility mask the draw loops consume.

An Activity is immutable after construction except for the per-zoom
caches (which only grow) and the per-frame view state (which is owned,
never shared). Nothing here locks; one frame runs to completion before
the next is scheduled.
*/
package activity

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/paulmach/orb"

	"github.com/rotblauer/dotd/codec"
	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/geo"
	"github.com/rotblauer/dotd/geo/gapdetect"
	"github.com/rotblauer/dotd/geo/simplify"
	"github.com/rotblauer/dotd/params"
)

// Activity is one recorded GPS track, projected into reference-zoom
// pixel space, with all of its render-derived state.
type Activity struct {
	ID            int64
	Type          string
	VType         string
	Name          string
	TotalDistance float64
	ElapsedTime   float64
	AverageSpeed  float64

	// TS is the activity start, UTC epoch seconds.
	// TSLocal is the same instant shifted by the recorded local offset.
	TS      int64
	TSLocal time.Time

	LLBounds orb.Bound
	PxBounds geo.PixelBounds

	// Selected is UI-driven and has no geometric effect.
	Selected bool

	cfg *params.RenderConfig

	// px is the flat point buffer: x,y pairs at the reference zoom,
	// 2 values per point. Owned exclusively; accessors return views.
	px []float64
	n  int

	// time is the compressed per-point time-offset buffer.
	time []byte

	// pxGaps holds the segment-start positions where the statistical
	// outlier test fired, or nil if none did.
	pxGaps []int

	// Per-zoom caches, indexed by zoom level. Built lazily, never
	// invalidated: zoom levels are small bounded integers, so a flat
	// array beats any map here.
	idxSet    []*bitset.BitSet
	badSegIdx [][]int
	idxBuilds int

	vs viewState
}

// NewActivity constructs an Activity from a raw record: decode the
// polyline, project every point, drop zero-distance duplicates (and their
// time samples), and run the single-pass gap statistics.
// Construction is one-time and non-reversible.
func NewActivity(rec *RawRecord) (*Activity, error) {
	return NewActivityWithConfig(rec, params.DefaultRenderConfig)
}

func NewActivityWithConfig(rec *RawRecord, cfg *params.RenderConfig) (*Activity, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	coords, err := codec.DecodePolyline(rec.Polyline)
	if err != nil {
		return nil, fmt.Errorf("record %d: decode polyline: %w", rec.ID, err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("record %d: polyline has %d points", rec.ID, len(coords))
	}

	utc, offset := rec.TS[0], rec.TS[1]
	a := &Activity{
		ID:            int64(rec.ID),
		Type:          rec.Type,
		VType:         rec.VType,
		Name:          rec.Name,
		TotalDistance: rec.TotalDistance,
		ElapsedTime:   rec.ElapsedTime,
		AverageSpeed:  rec.AverageSpeed,
		TS:            int64(utc),
		TSLocal:       time.Unix(int64(utc+offset*3600), 0).UTC(),
		LLBounds: orb.Bound{
			Min: orb.Point{rec.Bounds.SW.Lng, rec.Bounds.SW.Lat},
			Max: orb.Point{rec.Bounds.NE.Lng, rec.Bounds.NE.Lat},
		},
		cfg:       cfg,
		idxSet:    make([]*bitset.BitSet, cfg.MaxZoom+1),
		badSegIdx: make([][]int, cfg.MaxZoom+1),
	}
	a.PxBounds = geo.PixelBoundsOf(a.LLBounds)

	// Project all points, excluding any point at zero distance from its
	// predecessor. This is routine GPS jitter, not an error and not a gap.
	// We accumulate stats on the log of the squared segment lengths as we
	// go, to detect anomalous gaps afterward.
	px := make([]float64, 0, 2*len(coords))
	excluded := bitset.New(uint(len(coords)))
	logSqDists := make([]float64, 0, len(coords)-1)
	dStats := &gapdetect.RunningStats{}

	x0, y0 := geo.LatLng2px(orb.Point{coords[0][1], coords[0][0]})
	px = append(px, x0, y0)
	lastX, lastY := x0, y0

	for i := 1; i < len(coords); i++ {
		x, y := geo.LatLng2px(orb.Point{coords[i][1], coords[i][0]})
		dx, dy := x-lastX, y-lastY
		sd := dx*dx + dy*dy
		if sd == 0 {
			excluded.Set(uint(i))
			continue
		}
		lsd := math.Log(sd)
		dStats.Update(lsd)
		logSqDists = append(logSqDists, lsd)
		px = append(px, x, y)
		lastX, lastY = x, y
	}

	a.px = px
	a.n = len(px) / 2

	if excluded.Any() {
		// Points were dropped, so the time deltas need re-splicing
		// before compression.
		offsets := codec.DecodeDeltaList(rec.Time, 0, excluded)
		a.time = codec.CompressOffsets(offsets)
	} else {
		a.time = codec.CompressRLE(rec.Time)
	}

	a.pxGaps = gapdetect.Outliers(logSqDists, dStats, cfg.ZScoreCutoff)
	return a, nil
}

// N returns the point count after construction-time dedup.
func (a *Activity) N() int { return a.n }

// PointAt returns the i-th projected point as a 2-element view into the
// owning buffer. Never a copy; do not retain or mutate.
func (a *Activity) PointAt(i int) []float64 {
	j := i * 2
	return a.px[j : j+2 : j+2]
}

// GapAt returns the squared pixel distance between points i and i+1.
// Diagnostic accessor.
func (a *Activity) GapAt(i int) float64 {
	p1, p2 := a.PointAt(i), a.PointAt(i+1)
	dx, dy := p2[0]-p1[0], p2[1]-p1[1]
	return dx*dx + dy*dy
}

// PxGaps returns the raw segment positions flagged as anomalous gaps,
// or nil if none were found.
func (a *Activity) PxGaps() []int { return a.pxGaps }

// TimeAt returns a fresh time accessor: offset seconds of point i from
// the activity start. Forward access is cheap; see codec.Uncompress.
func (a *Activity) TimeAt() func(i int) float64 {
	return codec.Uncompress(a.time)
}

// IdxSet returns the retained-index set for a zoom, building it first if
// needed.
func (a *Activity) IdxSet(zoom int) *bitset.BitSet {
	a.MakeIdxSet(zoom)
	return a.idxSet[zoom]
}

// BadSegIdx returns the gap-owning segment offsets for a zoom, relative
// to the zoom's retained-point enumeration.
func (a *Activity) BadSegIdx(zoom int) []int {
	a.MakeIdxSet(zoom)
	return a.badSegIdx[zoom]
}

// IdxBuilds returns how many simplification passes have actually run.
// Cache instrumentation.
func (a *Activity) IdxBuilds() int { return a.idxBuilds }

// MakeIdxSet builds the reduced index set for a zoom level: the subset of
// px used at that zoom, always including the first and last point.
// Idempotent per zoom; the cache is never invalidated. An out-of-range
// zoom is a caller bug and panics.
func (a *Activity) MakeIdxSet(zoom int) *Activity {
	if zoom < 0 || zoom >= len(a.idxSet) {
		panic(fmt.Sprintf("activity %d: zoom %d out of range [0,%d]", a.ID, zoom, len(a.idxSet)-1))
	}
	if a.idxSet[zoom] != nil {
		return a
	}

	tol := common.Tolerance(zoom)
	ib := simplify.DouglasPeucker(a.pointXY, a.n, tol)
	a.idxSet[zoom] = ib
	a.idxBuilds++

	/*
	 * pxGaps contains the index of the start point of every segment
	 * determined to have an abnormally large gap. The simplified index
	 * set for this zoom level may not contain that index, so we search
	 * backwards until we find the index of the start point of the
	 * (simplified) segment that contains the gap.
	 */
	if a.pxGaps != nil {
		gapLocs := make([]int, 0, len(a.pxGaps))
		for i := len(a.pxGaps) - 1; i >= 0; i-- {
			gapStart := a.pxGaps[i]
			for !ib.Test(uint(gapStart)) {
				gapStart--
			}
			gapLocs = append(gapLocs, gapStart)
		}

		// Re-express each gap location as an offset within the reduced
		// set's enumeration: j such that gapStart is the j-th set bit.
		// One forward merge-scan over both sorted sequences.
		sort.Ints(gapLocs)
		badSegIdx := make([]int, 0, len(gapLocs))
		nextIdx, ok := ib.NextSet(0)
		j := 0
		for _, pxIdx := range gapLocs {
			for ok && int(nextIdx) < pxIdx {
				nextIdx, ok = ib.NextSet(nextIdx + 1)
				j++
			}
			badSegIdx = append(badSegIdx, j)
		}
		a.badSegIdx[zoom] = badSegIdx
	}
	return a
}

func (a *Activity) pointXY(i int) (x, y float64) {
	return a.px[i*2], a.px[i*2+1]
}

// String implements fmt.Stringer for log lines.
func (a *Activity) String() string {
	return fmt.Sprintf("%d %s %q n=%d d=%vkm",
		a.ID, a.Type, a.Name, a.n,
		common.DecimalToFixed(a.TotalDistance/1000, 2))
}
