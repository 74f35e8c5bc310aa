package activity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotblauer/dotd/codec"
)

// ID is an externally-assigned activity identifier.
// Upstream serializes it as either a number or a string.
type ID int64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("activity id: %w", err)
	}
	*id = ID(v)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(id), 10)), nil
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type RecordBounds struct {
	SW LatLng `json:"SW"`
	NE LatLng `json:"NE"`
}

// RawRecord is the boundary contract with the ingestion layer: the wire
// shape of one activity, field for field. Points arrive as an encoded
// polyline; per-point times arrive as a run-length list of second deltas.
type RawRecord struct {
	ID            ID            `json:"_id"`
	Type          string        `json:"type"`
	VType         string        `json:"vtype"`
	Name          string        `json:"name"`
	TotalDistance float64       `json:"total_distance"`
	ElapsedTime   float64       `json:"elapsed_time"`
	AverageSpeed  float64       `json:"average_speed"`
	TS            [2]float64    `json:"ts"` // UTC epoch seconds, local offset in hours
	Bounds        RecordBounds  `json:"bounds"`
	Polyline      string        `json:"polyline"`
	Time          codec.RLEList `json:"time"`
	N             int           `json:"n"`
}

// Validate checks the record for basic usability.
// It returns the first error it encounters.
func (r *RawRecord) Validate() error {
	if r.Polyline == "" {
		return fmt.Errorf("empty polyline")
	}
	if len(r.Time) == 0 {
		return fmt.Errorf("empty time list")
	}
	if r.N < 2 {
		return fmt.Errorf("record has %d points, need at least 2", r.N)
	}
	if r.TS[0] <= 0 {
		return fmt.Errorf("missing start timestamp")
	}
	return nil
}
