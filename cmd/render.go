/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/rotblauer/dotd/geo"
	"github.com/rotblauer/dotd/layer"
	"github.com/rotblauer/dotd/metrics/influxdb"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/stream"
)

var optRenderZoom float64
var optRenderFrames int
var optRenderBounds []float64
var optRenderDiff bool
var optRenderStart int64

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render frames offline from stdin records",
	Long: `

Reads NDJSON activity records from stdin, builds the collection, and
drives N frames over a fixed viewport and zoom, printing per-frame
stats. Frame times step by the configured frame interval from --start,
so two runs over the same input print identical segment and dot counts.

Examples:

  zcat records.json.gz | dotd render --zoom 12 --frames 100 \
      --bounds=-93.3,44.9,-93.1,45.0
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		if len(optRenderBounds) != 4 {
			log.Fatalln("--bounds wants w,s,e,n")
		}
		viewport := geo.PixelBoundsOf(orb.Bound{
			Min: orb.Point{optRenderBounds[0], optRenderBounds[1]},
			Max: orb.Point{optRenderBounds[2], optRenderBounds[3]},
		})

		coll := layer.NewCollection()
		defer coll.Stop()

		quit := make(chan struct{})
		defer close(quit)
		recs, errs := stream.ScanRecords(os.Stdin, quit)
		n, dropped := 0, 0
		for rec := range recs {
			if _, err := coll.Add(rec); err != nil {
				if !errors.Is(err, layer.ErrDuplicateRecord) {
					slog.Warn("Failed to admit record", "id", rec.ID, "error", err)
				}
				dropped++
				continue
			}
			n++
		}
		if err := <-errs; err != nil {
			slog.Error("Scan error", "error", err)
		}
		slog.Info("Collection built",
			"activities", humanize.Comma(int64(n)),
			"dropped", humanize.Comma(int64(dropped)))

		engine := layer.NewEngine(coll, params.DefaultRenderConfig)
		engine.SetView(viewport, optRenderZoom)

		now := time.Unix(optRenderStart, 0)
		for i := 0; i < optRenderFrames; i++ {
			fs := engine.DrawFrame(now,
				func(x1, y1, x2, y2 float64) {},
				func(x, y float64) {},
				optRenderDiff)
			fmt.Println(fs)
			now = now.Add(params.DefaultRenderConfig.FrameInterval)
		}

		if influxdb.Enabled() {
			if err := influxdb.ExportFrameStats(engine.Stats.Get()); err != nil {
				slog.Warn("Failed to export frame stats", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	pFlags := renderCmd.PersistentFlags()
	pFlags.Float64Var(&optRenderZoom, "zoom", 12, "Zoom level to render at")
	pFlags.IntVar(&optRenderFrames, "frames", 100, "Number of frames to draw")
	pFlags.Float64SliceVar(&optRenderBounds, "bounds", []float64{-180, -85, 180, 85}, "Viewport as w,s,e,n (degrees)")
	pFlags.BoolVar(&optRenderDiff, "diff", false, "Draw only segments changed since the view was set")
	pFlags.Int64Var(&optRenderStart, "start", 1_700_000_000, "Wall clock of the first frame (epoch seconds)")
}
