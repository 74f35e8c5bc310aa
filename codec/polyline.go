// Package codec adapts the compact wire encodings an activity record
// arrives with - a Google-format polyline for the points, and a
// run-length/variable-byte delta list for the per-point times - into
// buffers the render core can use.
package codec

import (
	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes a precision-5 encoded polyline into a finite
// sequence of [lat, lng] pairs.
func DecodePolyline(encoded string) ([][]float64, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	return coords, nil
}

// EncodePolyline is the inverse of DecodePolyline.
// The daemon never encodes; this exists for fixtures and round-trip tests.
func EncodePolyline(coords [][]float64) string {
	return string(polyline.EncodeCoords(coords))
}
