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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSourceCmd() *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "source [key]",
		Short: "Print the body of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			doc, err := openDocument(engine, args[0])
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("from") && !cmd.Flags().Changed("to") {
				fmt.Print(doc.Source())
				return nil
			}

			store, err := engine.ChunkStore(doc.Key())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("to") {
				to = store.Manifest().Total()
			}
			content, err := store.ReadRange(context.Background(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, content)
			return nil
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "start byte offset")
	cmd.Flags().IntVar(&to, "to", 0, "end byte offset, exclusive")
	return cmd
}

func init() {
	rootCmd.AddCommand(newSourceCmd())
}
