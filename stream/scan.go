package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/tidwall/gjson"

	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/types/activity"
)

const AttrID = "_id"
const AttrPolyline = "polyline"

var ErrMissingAttribute = errors.New("missing attribute in read line")

type tickScanMeter struct {
	label      int64 // any value, eg record id
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	nn         atomic.Uint64
	reg        metrics.Registry
	count      metrics.Counter
	size       metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
	done       chan struct{}
	exited     chan struct{}
}

func newTickScanMeter(interval time.Duration) *tickScanMeter {
	reg := metrics.NewRegistry()
	rl := &tickScanMeter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		nn:         atomic.Uint64{},
		count:      metrics.NewCounter(),
		size:       metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}

	if err := reg.Register("count.count", rl.count); err != nil {
		panic(err)
	}
	if err := reg.Register("size.count", rl.size); err != nil {
		panic(err)
	}
	if err := reg.Register("line.meter", rl.countMeter); err != nil {
		panic(err)
	}
	if err := reg.Register("size.meter", rl.sizeMeter); err != nil {
		panic(err)
	}
	rl.nn.Store(0)
	rl.ticker = time.NewTicker(interval)
	go rl.run()
	return rl
}

func (rl *tickScanMeter) mark(label int64, data []byte) {
	rl.label = label
	rl.nn.Add(1)
	rl.count.Inc(1)
	rl.size.Inc(int64(len(data)))
	rl.countMeter.Mark(1)
	rl.sizeMeter.Mark(int64(len(data)))
}

func (rl *tickScanMeter) run() {
	defer close(rl.exited)
	for {
		select {
		case <-rl.done:
			return
		case <-rl.ticker.C:
			rl.log()
		}
	}
}

func (rl *tickScanMeter) log() {
	countSnap := rl.countMeter.Snapshot()
	sizeSnap := rl.sizeMeter.Snapshot()

	slog.Info("Read records", "n", humanize.Comma(countSnap.Count()),
		"read.last", rl.label,
		"rps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(rl.started).Round(time.Second))
}

// stop halts the log loop and waits for it to exit.
func (rl *tickScanMeter) stop() {
	if rl == nil {
		return
	}
	rl.ticker.Stop()
	close(rl.done)
	<-rl.exited
	rl.countMeter.Stop()
	rl.sizeMeter.Stop()
}

func sendErr(errs chan error, err error) {
	select {
	case errs <- err:
	default:
		log.Println("error channel full, dropping error", err)
	}
}

// ScanRecords reads a stream of NDJSON activity records from reader.
// Lines missing the id or polyline attributes are reported on the error
// channel and skipped; decode errors other than EOF end the scan.
// The quit channel should be used to interrupt the read loop.
func ScanRecords(reader io.Reader, quit <-chan struct{}) (chan *activity.RawRecord, chan error) {
	out := make(chan *activity.RawRecord, params.DefaultBufferSize)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		dec := json.NewDecoder(reader)

		met := newTickScanMeter(5 * time.Second)
		defer met.stop()

		defer func() {
			total := met.countMeter.Snapshot().Count()
			slog.Info("Scanner done", "lines", humanize.Comma(total),
				"running", time.Since(met.started).Round(time.Second))
		}()
		for {
			select {
			case <-quit:
				slog.Info("Scanner received quit")
				return
			default:
			}
			msg := json.RawMessage{}
			err := dec.Decode(&msg)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					slog.Info("Scanner EOF")
					return
				}
				sendErr(errs, fmt.Errorf("scanner(%w)", err))
				return
			}

			id := gjson.GetBytes(msg, AttrID)
			if !id.Exists() {
				sendErr(errs, fmt.Errorf("%w: %s in line: %s", ErrMissingAttribute, AttrID, string(msg)))
				continue
			}
			if !gjson.GetBytes(msg, AttrPolyline).Exists() {
				sendErr(errs, fmt.Errorf("%w: %s in line: %s", ErrMissingAttribute, AttrPolyline, string(msg)))
				continue
			}

			met.mark(id.Int(), msg)

			rec := &activity.RawRecord{}
			if err := json.Unmarshal(msg, rec); err != nil {
				sendErr(errs, fmt.Errorf("record(%s) unmarshal error: %w", id.String(), err))
				continue
			}

			select {
			case <-quit:
				slog.Info("Scanner received quit")
				return
			case out <- rec:
			}
		}
	}()
	return out, errs
}
