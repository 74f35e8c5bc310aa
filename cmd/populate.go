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
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/layer"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/state"
	"github.com/rotblauer/dotd/stream"
	"github.com/rotblauer/dotd/types/activity"
)

// populateCmd represents the populate command
var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Populate activity records from stdin stream",
	Long: `

Records are decoded as JSON lines from stdin, validated, deduped, and
written to the record store. The web daemon rebuilds its in-memory
collection from that store at boot.

This command can run idempotently and incrementally on the same source:
a record that decodes to the same content as one already admitted is
dropped.

Examples:

  zcat records.json.gz | dotd populate --datadir /var/lib/dotd
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		store, err := state.NewRecordStore(optDatadir)
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		coll := layer.NewCollection()
		defer coll.Stop()

		quit := make(chan struct{})
		recs, errs := stream.ScanRecords(os.Stdin, quit)

		go func() {
			sig := <-common.Interrupted()
			slog.Warn("Received signal", "signal", sig)
			close(quit)
		}()

		// Admission filters the stream; survivors are written to the
		// store in batched transactions.
		ctx := context.Background()
		stored, dropped := 0, 0
		admitted := stream.Filter(ctx, func(rec *activity.RawRecord) bool {
			if _, err := coll.Add(rec); err != nil {
				if !errors.Is(err, layer.ErrDuplicateRecord) {
					slog.Warn("Failed to admit record", "id", rec.ID, "error", err)
				}
				dropped++
				return false
			}
			return true
		}, recs)
		for batch := range stream.Batch(ctx, params.DefaultBatchSize, admitted) {
			if err := store.WriteBatch(batch); err != nil {
				log.Fatalln(err)
			}
			stored += len(batch)
		}
		if err := <-errs; err != nil {
			slog.Error("Scan error", "error", err)
		}

		slog.Info("Populate done",
			"stored", humanize.Comma(int64(stored)),
			"dropped", humanize.Comma(int64(dropped)))
	},
}

func init() {
	rootCmd.AddCommand(populateCmd)

	// Here you will define your flags and configuration settings.

	// Cobra supports Persistent Flags which will work for this command
	// and all subcommands, e.g.:
	// populateCmd.PersistentFlags().String("foo", "", "A help for foo")

	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	// populateCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}
