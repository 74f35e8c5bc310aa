package testdata

import (
	"math"

	"github.com/rotblauer/dotd/codec"
	"github.com/rotblauer/dotd/types/activity"
)

// Records here are synthetic. Real upstream records carry the same wire
// shape (polyline points, RLE time deltas) but belong to real athletes.

// RecordFromCoords builds a raw record from [lat, lng] coords and
// per-point cumulative time offsets (seconds from start, times[0] == 0).
// start is the activity start in UTC epoch seconds.
func RecordFromCoords(id int64, coords [][]float64, times []float64, start float64) *activity.RawRecord {
	deltas := make(codec.RLEList, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		deltas = append(deltas, codec.RLEItem{Value: uint64(times[i] - times[i-1]), Count: 1})
	}

	// Bounds come from the polyline round trip so they agree with what
	// decoding will yield. The polyline grid is 1e-5 degrees.
	encoded := codec.EncodePolyline(coords)
	quantized, err := codec.DecodePolyline(encoded)
	if err != nil {
		panic(err)
	}
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	for _, c := range quantized {
		minLat, maxLat = math.Min(minLat, c[0]), math.Max(maxLat, c[0])
		minLng, maxLng = math.Min(minLng, c[1]), math.Max(maxLng, c[1])
	}

	return &activity.RawRecord{
		ID:          activity.ID(id),
		Type:        "Ride",
		Name:        "test ride",
		ElapsedTime: times[len(times)-1],
		TS:          [2]float64{start, -6},
		Bounds: activity.RecordBounds{
			SW: activity.LatLng{Lat: minLat, Lng: minLng},
			NE: activity.LatLng{Lat: maxLat, Lng: maxLng},
		},
		Polyline: encoded,
		Time:     deltas,
		N:        len(coords),
	}
}

// NewRideRecord generates a straight northeasterly ride of n points with
// a fixed time delta between fixes. Steps are ~11m at the equator, well
// inside any sane outlier fence.
func NewRideRecord(id int64, startLat, startLng float64, n int, dt float64) *activity.RawRecord {
	coords := make([][]float64, n)
	times := make([]float64, n)
	for i := 0; i < n; i++ {
		coords[i] = []float64{startLat + float64(i)*0.0001, startLng + float64(i)*0.0001}
		times[i] = float64(i) * dt
	}
	return RecordFromCoords(id, coords, times, 1_700_000_000)
}

// Record_Ride_JSON is a hand-rolled wire record exercising both RLE time
// forms (bare numbers and [value, runLength] pairs) and the string id.
// The polyline is 7 points starting at (44.98, -93.25), stepping
// +0.0001/+0.0001.
var Record_Ride_JSON = `{
  "_id": "4321",
  "type": "Ride",
  "vtype": "road",
  "name": "morning spin",
  "total_distance": 1200.5,
  "elapsed_time": 50,
  "average_speed": 6.7,
  "ts": [1700000000, -6],
  "bounds": {"SW": {"lat": 44.98, "lng": -93.25}, "NE": {"lat": 44.9806, "lng": -93.2494}},
  "polyline": "_dpqGn{cxPSSSSSSSSSSSS",
  "time": [[10, 4], 5, 5],
  "n": 7
}
`
