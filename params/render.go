package params

import "time"

// RenderConfig collects the knobs of the track render core.
type RenderConfig struct {
	// ZScoreCutoff is the Z-score above which the log of a squared
	// segment length is considered an anomalous gap.
	// Gaps usually come up when recording pauses while the wearer keeps
	// moving; the resulting long straight segment is inaccurate and looks bad.
	ZScoreCutoff float64

	// IQRMult is the interquartile-range multiplier for the alternative,
	// sort-based gap detection. Slower than the Z-score test; not the default.
	IQRMult float64

	// MinZoom and MaxZoom bound the slippy-map zoom levels the per-zoom
	// caches are sized for. Zoom levels outside this range are a caller bug.
	MinZoom int
	MaxZoom int

	// DotPeriod is the data-time period T between successive dots
	// on one activity, in seconds.
	DotPeriod float64

	// TimeScale maps data-seconds to real seconds for the animation.
	TimeScale float64

	// FrameInterval is the target wall-clock interval between frames.
	// Frames that would overrun are dropped, not queued.
	FrameInterval time.Duration
}

var DefaultRenderConfig = &RenderConfig{
	ZScoreCutoff:  5,
	IQRMult:       3,
	MinZoom:       0,
	MaxZoom:       22,
	DotPeriod:     120,
	TimeScale:     60,
	FrameInterval: 33 * time.Millisecond,
}
