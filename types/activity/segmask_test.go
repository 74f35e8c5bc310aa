package activity

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/rotblauer/dotd/geo"
)

// paddedBounds grows an activity's pixel bounds a little in every
// direction, a viewport that safely contains the whole track.
func paddedBounds(a *Activity) geo.PixelBounds {
	b := a.PxBounds
	b.MinX -= 1
	b.MinY -= 1
	b.MaxX += 1
	b.MaxY += 1
	return b
}

func TestSegMaskUninitialized(t *testing.T) {
	a, err := NewActivity(recordFrom(1, stairCoords(5), 10))
	if err != nil {
		t.Fatal(err)
	}
	if a.SegMask() != nil || a.SegMaskUpdates() != nil {
		t.Error("masks must be nil before the first update")
	}
	if a.MaskZoom() != -1 {
		t.Errorf("mask zoom before update got=%d, want=-1", a.MaskZoom())
	}
}

func TestUpdateSegMaskContained(t *testing.T) {
	a, err := NewActivity(recordFrom(2, stairCoords(10), 10))
	if err != nil {
		t.Fatal(err)
	}
	viewport := paddedBounds(a)

	mask := a.UpdateSegMask(viewport, 22)
	if mask == nil {
		t.Fatal("expected a mask for a fully visible activity")
	}
	// A staircase survives fine-zoom simplification whole: 9 segments.
	if mask.Count() != 9 {
		t.Errorf("mask count got=%d, want=9", mask.Count())
	}
	if !a.ContainedInMapBounds() {
		t.Error("activity is fully inside the viewport")
	}
	if a.MaskZoom() != 22 {
		t.Errorf("mask zoom got=%d, want=22", a.MaskZoom())
	}
	// First frame: everything is an update.
	if a.SegMaskUpdates().Count() != 9 {
		t.Errorf("updates got=%d, want=9", a.SegMaskUpdates().Count())
	}

	// Same view again: still contained, nothing to redraw.
	mask2 := a.UpdateSegMask(viewport, 22)
	if mask2 == nil || mask2.Count() != 9 {
		t.Fatal("mask must persist while contained")
	}
	if !a.SegMaskUpdates().None() {
		t.Errorf("unchanged contained view produced updates: %v", a.SegMaskUpdates())
	}
}

func TestUpdateSegMaskOffscreen(t *testing.T) {
	a, err := NewActivity(recordFrom(3, stairCoords(5), 10))
	if err != nil {
		t.Fatal(err)
	}
	// A viewport on the other side of the world.
	viewport := geo.PixelBoundsOf(orb.Bound{
		Min: orb.Point{100, -10},
		Max: orb.Point{110, 10},
	})
	if mask := a.UpdateSegMask(viewport, 12); mask != nil {
		t.Errorf("offscreen activity produced a mask: %v", mask)
	}
	if a.SegMask() == nil || !a.SegMask().None() {
		t.Error("offscreen mask should be initialized and empty")
	}
	if !a.SegMaskUpdates().None() {
		t.Error("offscreen activity has no updates")
	}
}

func TestUpdateSegMaskPartialAndPan(t *testing.T) {
	a, err := NewActivity(recordFrom(4, stairCoords(10), 10))
	if err != nil {
		t.Fatal(err)
	}

	// South window: points 0..4 (lat <= 44.9802) are inside. Segment 4
	// crosses the edge and counts, having one endpoint in view.
	south := geo.PixelBoundsOf(orb.Bound{
		Min: orb.Point{-93.2510, 44.97995},
		Max: orb.Point{-93.2490, 44.98025},
	})
	mask := a.UpdateSegMask(south, 22)
	if mask == nil {
		t.Fatal("expected a partial mask")
	}
	if a.ContainedInMapBounds() {
		t.Error("partially visible activity is not contained")
	}
	if mask.Count() != 5 {
		t.Errorf("partial mask count got=%d, want=5", mask.Count())
	}
	for i := uint(0); i < 5; i++ {
		if !mask.Test(i) {
			t.Errorf("segment %d should be visible", i)
		}
	}

	// Pan north one rung: points 0..6 now inside, segments 0..6 visible.
	wider := geo.PixelBoundsOf(orb.Bound{
		Min: orb.Point{-93.2510, 44.97995},
		Max: orb.Point{-93.2490, 44.98035},
	})
	mask = a.UpdateSegMask(wider, 22)
	if mask == nil || mask.Count() != 7 {
		t.Fatalf("panned mask count got=%v, want=7", mask)
	}

	// The raw diff is {5, 6}; run extension pulls in segment 4, which was
	// drawn last frame and still is, so the joint gets redrawn too.
	updates := a.SegMaskUpdates()
	if updates.Count() != 3 {
		t.Errorf("updates count got=%d, want=3", updates.Count())
	}
	for _, i := range []uint{4, 5, 6} {
		if !updates.Test(i) {
			t.Errorf("update bit %d missing: %v", i, updates)
		}
	}
}

func TestUpdateSegMaskZoomChange(t *testing.T) {
	a, err := NewActivity(recordFrom(5, stairCoords(10), 10))
	if err != nil {
		t.Fatal(err)
	}
	viewport := paddedBounds(a)

	a.UpdateSegMask(viewport, 22)
	mask := a.UpdateSegMask(viewport, 21)
	if mask == nil {
		t.Fatal("expected a mask after zoom change")
	}
	if a.MaskZoom() != 21 {
		t.Errorf("mask zoom got=%d, want=21", a.MaskZoom())
	}
	// Mask ordinals are not comparable across zooms: everything redraws,
	// even though the view never moved.
	if got, want := a.SegMaskUpdates().Count(), mask.Count(); got != want {
		t.Errorf("zoom change updates got=%d, want full mask %d", got, want)
	}
}

func TestUpdateSegMaskExcludesGaps(t *testing.T) {
	a, err := NewActivity(recordFrom(6, jumpyCoords(), 10))
	if err != nil {
		t.Fatal(err)
	}
	mask := a.UpdateSegMask(paddedBounds(a), 22)
	if mask == nil {
		t.Fatal("expected a mask")
	}
	// 42 points retained at zoom 22, 41 segments, minus the teleport.
	if mask.Count() != 40 {
		t.Errorf("mask count got=%d, want=40", mask.Count())
	}
	if mask.Test(40) {
		t.Error("gap segment 40 must never be drawn")
	}
}
