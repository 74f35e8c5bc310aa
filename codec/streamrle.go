package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/tidwall/gjson"
)

// RLEItem is one run of a run-length encoded delta list.
// A bare number on the wire is a run of length 1.
type RLEItem struct {
	Value uint64
	Count uint64
}

// RLEList is the wire form of a per-point time-delta sequence:
// a JSON array whose elements are either a number (a single delta, in
// seconds) or a [value, runLength] pair.
type RLEList []RLEItem

// UnmarshalJSON accepts the mixed number/pair array form.
func (l *RLEList) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return fmt.Errorf("rle list: not an array")
	}
	out := RLEList{}
	var badEl error
	parsed.ForEach(func(_, el gjson.Result) bool {
		if el.IsArray() {
			pair := el.Array()
			if len(pair) != 2 {
				badEl = fmt.Errorf("rle list: run is not a pair: %s", el.Raw)
				return false
			}
			out = append(out, RLEItem{Value: pair[0].Uint(), Count: pair[1].Uint()})
			return true
		}
		if el.Type != gjson.Number {
			badEl = fmt.Errorf("rle list: element is not a number: %s", el.Raw)
			return false
		}
		out = append(out, RLEItem{Value: el.Uint(), Count: 1})
		return true
	})
	if badEl != nil {
		return badEl
	}
	*l = out
	return nil
}

// MarshalJSON emits runs longer than 1 as [value, runLength] pairs.
func (l RLEList) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, item := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		if item.Count > 1 {
			buf = append(buf, fmt.Sprintf("[%d,%d]", item.Value, item.Count)...)
		} else {
			buf = append(buf, fmt.Sprintf("%d", item.Value)...)
		}
	}
	return append(buf, ']'), nil
}

// Len returns the expanded (run-expanded) number of deltas.
func (l RLEList) Len() int {
	n := 0
	for _, item := range l {
		n += int(item.Count)
	}
	return n
}

// DecodeDeltaList expands a run-length delta list into cumulative time
// offsets. The returned sequence starts with the start value itself, so a
// list of n-1 deltas yields n offsets, one per track point. Offsets whose
// point ordinal is a member of exclude are dropped; dropping a point this
// way merges its delta into the next survivor's, which is exactly what the
// construction-time point dedup needs. Exclude may be nil.
func DecodeDeltaList(list RLEList, start uint64, exclude *bitset.BitSet) []uint64 {
	out := make([]uint64, 0, list.Len()+1)
	out = append(out, start)
	cum := start
	ordinal := uint(0)
	for _, item := range list {
		for c := uint64(0); c < item.Count; c++ {
			cum += item.Value
			ordinal++
			if exclude != nil && exclude.Test(ordinal) {
				continue
			}
			out = append(out, cum)
		}
	}
	return out
}

// CompressOffsets re-diffs a cumulative offset sequence and packs the
// deltas as unsigned varints. Offsets must be non-decreasing.
func CompressOffsets(offsets []uint64) []byte {
	buf := make([]byte, 0, len(offsets))
	for i := 1; i < len(offsets); i++ {
		buf = binary.AppendUvarint(buf, offsets[i]-offsets[i-1])
	}
	return buf
}

// CompressRLE transcodes a run-length delta list straight into the varint
// buffer, for the common case where no points were dropped.
func CompressRLE(list RLEList) []byte {
	buf := make([]byte, 0, list.Len())
	for _, item := range list {
		for c := uint64(0); c < item.Count; c++ {
			buf = binary.AppendUvarint(buf, item.Value)
		}
	}
	return buf
}

// Uncompress returns a time accessor over a compressed delta buffer:
// t(i) is the cumulative sum of the first i deltas, i.e. the offset in
// seconds of point i from the activity start; t(0) is always 0.
//
// The accessor keeps a forward cursor. The render loops only move forward
// within a frame, so sequential access is O(1) amortized; asking for an
// earlier index rewinds to the start of the buffer.
func Uncompress(buf []byte) func(i int) float64 {
	pos := 0    // byte position in buf
	cursor := 0 // index of the next delta to read
	cum := uint64(0)
	return func(i int) float64 {
		if i < cursor {
			pos, cursor, cum = 0, 0, 0
		}
		for cursor < i {
			delta, n := binary.Uvarint(buf[pos:])
			if n <= 0 {
				return float64(cum)
			}
			pos += n
			cum += delta
			cursor++
		}
		return float64(cum)
	}
}
