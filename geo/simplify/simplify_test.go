package simplify

import (
	"testing"
)

func pointsAccessor(pts [][2]float64) PointAt {
	return func(i int) (x, y float64) {
		return pts[i][0], pts[i][1]
	}
}

func TestDouglasPeuckerEndpoints(t *testing.T) {
	pts := [][2]float64{{0, 0}, {1, 5}, {2, -3}, {3, 0.1}, {4, 0}}
	keep := DouglasPeucker(pointsAccessor(pts), len(pts), 1000)
	if !keep.Test(0) || !keep.Test(uint(len(pts)-1)) {
		t.Error("first and last points must always be retained")
	}
	// A huge tolerance retains nothing else.
	if keep.Count() != 2 {
		t.Errorf("retained %d points, want 2", keep.Count())
	}
}

func TestDouglasPeuckerZeroToleranceKeepsDeviants(t *testing.T) {
	pts := [][2]float64{{0, 0}, {1, 1}, {2, 0}, {3, -0.5}, {4, 0}}
	keep := DouglasPeucker(pointsAccessor(pts), len(pts), 0)
	if int(keep.Count()) != len(pts) {
		t.Errorf("zero tolerance dropped points: kept %d of %d", keep.Count(), len(pts))
	}
}

func TestDouglasPeuckerCollapsesColinear(t *testing.T) {
	// A straight line: interior points contribute nothing at any tolerance.
	pts := make([][2]float64, 10)
	for i := range pts {
		pts[i] = [2]float64{float64(i), float64(i) * 2}
	}
	keep := DouglasPeucker(pointsAccessor(pts), len(pts), 0.001)
	if keep.Count() != 2 {
		t.Errorf("colinear run kept %d points, want 2", keep.Count())
	}
}

func TestDouglasPeuckerSpike(t *testing.T) {
	pts := [][2]float64{{0, 0}, {1, 0}, {2, 10}, {3, 0}, {4, 0}}
	keep := DouglasPeucker(pointsAccessor(pts), len(pts), 1.5)
	if !keep.Test(2) {
		t.Error("the spike at index 2 must survive simplification")
	}
	if keep.Test(1) || keep.Test(3) {
		t.Errorf("flat shoulders should be dropped, kept=%v", keep)
	}
}

func TestDouglasPeuckerBounds(t *testing.T) {
	pts := [][2]float64{
		{0, 0}, {1, 0.2}, {2, -0.4}, {3, 1.5}, {4, 0.1},
		{5, -2}, {6, 0}, {7, 0.05}, {8, 3}, {9, 0},
	}
	at := pointsAccessor(pts)
	for _, tol := range []float64{0, 0.1, 0.5, 1, 2, 5} {
		keep := DouglasPeucker(at, len(pts), tol)
		if c := int(keep.Count()); c < 2 || c > len(pts) {
			t.Errorf("tolerance %v retained %d points, want within [2,%d]", tol, c, len(pts))
		}
		if !keep.Test(0) || !keep.Test(uint(len(pts)-1)) {
			t.Errorf("tolerance %v dropped an endpoint", tol)
		}
		if next, ok := keep.NextSet(uint(len(pts))); ok {
			t.Errorf("tolerance %v set an out-of-range bit %d", tol, next)
		}
	}
}

func TestDouglasPeuckerTiny(t *testing.T) {
	at := pointsAccessor([][2]float64{{0, 0}, {1, 1}})
	if got := DouglasPeucker(at, 2, 1).Count(); got != 2 {
		t.Errorf("2-point track kept %d", got)
	}
	if got := DouglasPeucker(at, 1, 1).Count(); got != 1 {
		t.Errorf("1-point track kept %d", got)
	}
	if got := DouglasPeucker(at, 0, 1).Count(); got != 0 {
		t.Errorf("empty track kept %d", got)
	}
}
