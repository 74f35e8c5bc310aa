package layer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/metrics"

	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/geo"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/types/activity"
)

// FrameStats summarizes one rendered frame.
type FrameStats struct {
	At         time.Time
	Activities int
	Segments   int
	Dots       int
	Elapsed    time.Duration
}

func (fs FrameStats) String() string {
	return fmt.Sprintf("frame activities=%d segments=%d dots=%d elapsed=%vms",
		fs.Activities, fs.Segments, fs.Dots,
		common.DecimalToFixed(float64(fs.Elapsed.Microseconds())/1000, 2))
}

// Engine runs the render loop over a Collection for one viewport.
// All computation happens on the caller's goroutine; there is no internal
// concurrency and no locking. One frame runs to completion before the
// next is scheduled; ticks that arrive while a frame is running are
// dropped, not queued.
type Engine struct {
	Coll *Collection

	cfg    *params.RenderConfig
	logger *slog.Logger

	viewport geo.PixelBounds
	zoom     int
	hasView  bool

	frameTimer metrics.Timer
	segMeter   metrics.Meter
	dotMeter   metrics.Meter

	// Stats keeps the most recent frame summaries for reporting.
	Stats *common.RingBuffer[FrameStats]
}

func NewEngine(coll *Collection, cfg *params.RenderConfig) *Engine {
	if cfg == nil {
		cfg = params.DefaultRenderConfig
	}
	return &Engine{
		Coll:       coll,
		cfg:        cfg,
		logger:     slog.With("d", "layer"),
		frameTimer: metrics.GetOrRegisterTimer("dotd/layer/frame", nil),
		segMeter:   metrics.GetOrRegisterMeter("dotd/layer/segments", nil),
		dotMeter:   metrics.GetOrRegisterMeter("dotd/layer/dots", nil),
		Stats:      common.NewRingBuffer[FrameStats](64),
	}
}

// SetView moves the viewport and recomputes every activity's segment
// mask. Zoom arrives from map widgets as a float; a non-finite zoom is a
// caller bug, not data noise, and panics.
func (e *Engine) SetView(viewport geo.PixelBounds, zoom float64) {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		panic("zoom must be a finite number")
	}
	e.viewport = viewport
	e.zoom = int(math.Round(zoom))
	e.hasView = true

	e.Coll.Range(func(a *activity.Activity) bool {
		a.UpdateSegMask(e.viewport, e.zoom)
		return true
	})
}

// DrawFrame renders one frame at the given wall-clock instant, emitting
// every visible segment into segSink and every due dot into dotSink.
// With diffOnly, only segments changed since the last SetView are
// emitted. Either sink may be nil to skip that pass.
func (e *Engine) DrawFrame(now time.Time, segSink activity.SegmentFunc, dotSink activity.DotFunc, diffOnly bool) FrameStats {
	started := time.Now()
	fs := FrameStats{At: now}
	if !e.hasView {
		return fs
	}

	nowSecs := float64(now.UnixMilli()) / 1000

	e.Coll.Range(func(a *activity.Activity) bool {
		fs.Activities++
		if segSink != nil {
			fs.Segments += a.ForEachSegment(segSink, diffOnly)
		}
		if dotSink != nil {
			fs.Dots += a.ForEachDot(dotSink, nowSecs, e.cfg.DotPeriod, e.cfg.TimeScale, diffOnly)
		}
		return true
	})

	fs.Elapsed = time.Since(started)
	e.frameTimer.Update(fs.Elapsed)
	e.segMeter.Mark(int64(fs.Segments))
	e.dotMeter.Mark(int64(fs.Dots))
	e.Stats.Add(fs)
	return fs
}

// Run drives frames at the configured interval until the context is
// done. The ticker drops missed ticks, which is the back-pressure model:
// a slow frame skips frames, it never queues them.
func (e *Engine) Run(ctx context.Context, segSink activity.SegmentFunc, dotSink activity.DotFunc) error {
	ticker := time.NewTicker(e.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.DrawFrame(now, segSink, dotSink, false)
		}
	}
}
