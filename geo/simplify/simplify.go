// Package simplify reduces a polyline to a zoom-appropriate subset of its
// points. Unlike the usual geometry-in, geometry-out simplifiers, the
// caller here needs the retained INDICES - the per-zoom index sets and the
// gap bookkeeping are all expressed against point ordinals - so the
// Douglas-Peucker pass works over an accessor and returns a bitset.
package simplify

import (
	"github.com/bits-and-blooms/bitset"
)

// PointAt returns the coordinates of the i-th point of a track.
type PointAt func(i int) (x, y float64)

// DouglasPeucker simplifies the n-point polyline read through at,
// returning the set of retained point indices. The first and last points
// are always retained. Tolerance is in the same units as the coordinates.
func DouglasPeucker(at PointAt, n int, tolerance float64) *bitset.BitSet {
	keep := bitset.New(uint(n))
	if n == 0 {
		return keep
	}
	keep.Set(0)
	if n > 1 {
		keep.Set(uint(n - 1))
	}
	if n <= 2 {
		return keep
	}

	tol2 := tolerance * tolerance

	type span struct{ first, last int }
	stack := make([]span, 0, 64)
	stack = append(stack, span{0, n - 1})

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ax, ay := at(s.first)
		bx, by := at(s.last)

		maxDist := tol2
		maxIdx := -1
		for i := s.first + 1; i < s.last; i++ {
			px, py := at(i)
			if d := sqSegDist(px, py, ax, ay, bx, by); d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}

		if maxIdx != -1 {
			keep.Set(uint(maxIdx))
			if maxIdx-s.first > 1 {
				stack = append(stack, span{s.first, maxIdx})
			}
			if s.last-maxIdx > 1 {
				stack = append(stack, span{maxIdx, s.last})
			}
		}
	}
	return keep
}

// sqSegDist is the squared distance from point p to segment ab.
func sqSegDist(px, py, ax, ay, bx, by float64) float64 {
	x, y := ax, ay
	dx, dy := bx-x, by-y

	if dx != 0 || dy != 0 {
		t := ((px-x)*dx + (py-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x, y = bx, by
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}

	dx = px - x
	dy = py - y
	return dx*dx + dy*dy
}
