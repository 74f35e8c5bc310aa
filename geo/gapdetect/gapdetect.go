// Package gapdetect flags anomalous gaps in a track by simple statistical
// analysis of segment lengths.
//
// Gaps usually come up when there is a pause in recording while the wearer
// is still moving. If the gap is big enough, it results in a long straight
// line segment that is inaccurate and looks bad. Sometimes they result from
// bad GPS reception, in which case they appear as random points far from
// the track.
//
// We consider the log of the squared distance between two successive
// points. Any segment whose Z-score is above the cutoff is an outlier.
// The quantile (IQR) test is also available; it must sort, so the one-pass
// Z-score test stays the default.
package gapdetect

import (
	"math"

	"github.com/montanaflynn/stats"
)

// RunningStats accumulates mean and population standard deviation in a
// single numerically-stable pass (Welford), without retaining the values.
type RunningStats struct {
	n    int
	mean float64
	m2   float64
}

// Update folds one value into the accumulator.
func (rs *RunningStats) Update(x float64) {
	rs.n++
	d := x - rs.mean
	rs.mean += d / float64(rs.n)
	rs.m2 += d * (x - rs.mean)
}

func (rs *RunningStats) N() int { return rs.n }

func (rs *RunningStats) Mean() float64 { return rs.mean }

// PopulationStdev is the population (not sample) standard deviation.
func (rs *RunningStats) PopulationStdev() float64 {
	if rs.n == 0 {
		return 0
	}
	return math.Sqrt(rs.m2 / float64(rs.n))
}

// Outliers returns the positions in values deviating above the
// accumulated mean by more than cutoff standard deviations.
// Pure function of its inputs; positions ascend.
func Outliers(values []float64, rs *RunningStats, cutoff float64) []int {
	devTol := cutoff * rs.PopulationStdev()
	mean := rs.Mean()
	var out []int
	for i, v := range values {
		if v-mean > devTol {
			out = append(out, i)
		}
	}
	return out
}

// OutliersIQR is the quantile-based alternative: values above
// Q3 + mult*IQR are outliers. It sorts a copy of the input, which is why
// it is not the default.
func OutliersIQR(values []float64, mult float64) ([]int, error) {
	q, err := stats.Quartile(values)
	if err != nil {
		return nil, err
	}
	upperFence := q.Q3 + mult*(q.Q3-q.Q1)
	var out []int
	for i, v := range values {
		if v > upperFence {
			out = append(out, i)
		}
	}
	return out, nil
}
