package influxdb

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/rotblauer/dotd/layer"
	"github.com/rotblauer/dotd/params"
)

// Enabled reports whether the exporter is configured at all.
func Enabled() bool {
	return params.INFLUXDB_URL != ""
}

// ExportFrameStats posts frame summaries to an InfluxDB Write API.
// Because it accepts a slice, use batches (eg. the engine's stats ring).
// The Write API will buffer and flush. The last error encountered is
// returned.
func ExportFrameStats(stats []layer.FrameStats) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	// Errors returns a channel for reading errors which occurs during async writes.
	// Must be called before performing any writes for errors to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	// https://github.com/influxdata/influxdb-client-go?tab=readme-ov-file#reading-async-errors
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for _, fs := range stats {
		p := influxdb2.NewPointWithMeasurement("frame").
			SetTime(fs.At).
			AddField("activities", fs.Activities).
			AddField("segments", fs.Segments).
			AddField("dots", fs.Dots).
			AddField("elapsed_ms", float64(fs.Elapsed.Microseconds())/1000)
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
