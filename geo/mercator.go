// Package geo owns the little projection math the render core needs:
// WGS84 to Web-Mercator pixels at a reference zoom, and pixel-space bounds.
package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/rotblauer/dotd/common"
)

// LatLng2px projects a WGS84 point (orb convention: lng, lat) into
// Web-Mercator pixel space at the reference zoom, a common.WorldSize-pixel
// world. Y grows southward, as screens do.
func LatLng2px(ll orb.Point) (x, y float64) {
	lng, lat := ll[0], ll[1]
	sin := math.Sin(lat * math.Pi / 180)
	x = common.WorldSize * (0.5 + lng/360)
	y = common.WorldSize * (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi))
	return x, y
}

// PixelBounds is an axis-aligned box in reference-zoom pixel space.
type PixelBounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// PixelBoundsOf projects a lat/lng bound into pixel space.
// The projection flips Y, so min/max are re-derived from both corners.
func PixelBoundsOf(b orb.Bound) PixelBounds {
	x1, y1 := LatLng2px(b.Min)
	x2, y2 := LatLng2px(b.Max)
	return PixelBounds{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Contains reports whether the point is inside the bounds, inclusive.
func (pb PixelBounds) Contains(x, y float64) bool {
	return x >= pb.MinX && x <= pb.MaxX && y >= pb.MinY && y <= pb.MaxY
}

// ContainsBounds reports whether other lies entirely inside the bounds.
func (pb PixelBounds) ContainsBounds(other PixelBounds) bool {
	return other.MinX >= pb.MinX && other.MaxX <= pb.MaxX &&
		other.MinY >= pb.MinY && other.MaxY <= pb.MaxY
}

// Extend grows the bounds to include the point.
func (pb *PixelBounds) Extend(x, y float64) {
	pb.MinX = math.Min(pb.MinX, x)
	pb.MinY = math.Min(pb.MinY, y)
	pb.MaxX = math.Max(pb.MaxX, x)
	pb.MaxY = math.Max(pb.MaxY, y)
}
