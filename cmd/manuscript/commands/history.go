/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/manuscript-team/manuscript/pkg/document/history"
)

func newHistoryCmd() *cobra.Command {
	var significantOnly bool
	var restore string

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: "Show the timeline of a document, or restore a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			doc, err := openDocument(engine, args[0])
			if err != nil {
				return err
			}
			view, err := engine.History(doc.Key())
			if err != nil {
				return err
			}

			if restore != "" {
				return view.Restore(restore)
			}

			timeline, err := view.Timeline()
			if err != nil {
				return err
			}

			snapshots := timeline.Snapshots
			if significantOnly {
				snapshots = timeline.Significant()
			}
			printSnapshots(snapshots)
			return nil
		},
	}

	cmd.Flags().BoolVar(&significantOnly, "significant", false, "only show tagged snapshots")
	cmd.Flags().StringVar(&restore, "restore", "", "restore the document to the given snapshot")
	return cmd
}

func printSnapshots(snapshots []history.Snapshot) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.Style().Options.DrawBorder = false
	tw.AppendHeader(table.Row{"SEQ", "SNAPSHOT", "AUTHOR", "TIME", "BYTES +/-", "TAGS", "DESCRIPTION"})

	for _, s := range snapshots {
		tags := make([]string, 0, len(s.Tags))
		for _, tag := range s.Tags {
			tags = append(tags, string(tag))
		}
		tw.AppendRow(table.Row{
			s.Seq,
			s.ID,
			s.Author,
			s.Timestamp.Format(time.RFC3339),
			fmt.Sprintf("+%d/-%d", s.BytesInserted, s.BytesRemoved),
			strings.Join(tags, ","),
			s.Description,
		})
	}
	tw.Render()
}

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}
