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

	"github.com/spf13/cobra"

	"github.com/manuscript-team/manuscript/pkg/document"
)

func newCreateCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new document",
		RunE: func(_ *cobra.Command, _ []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			doc, err := engine.CreateDocument(title, document.Identity(flagIdentity))
			if err != nil {
				return err
			}
			fmt.Println(doc.Key())
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title of the new document")
	return cmd
}

func init() {
	rootCmd.AddCommand(newCreateCmd())
}
