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

// Package commands implements the manuscript command line tool.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/manuscript-team/manuscript"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

var (
	flagStoragePath string
	flagLogLevel    string
	flagIdentity    string
)

var rootCmd = &cobra.Command{
	Use:   "manuscript",
	Short: "Manuscript engine command line tool",
}

// Run executes the root command.
func Run() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&flagStoragePath,
		"storage",
		"manuscript-data",
		"directory holding document packages",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagLogLevel,
		"log-level",
		"warn",
		"log level: debug, info, warn, error, panic, fatal",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagIdentity,
		"as",
		"",
		"identity to act as",
	)
}

// newEngine builds an engine from the persistent flags.
func newEngine() (*manuscript.Engine, error) {
	return manuscript.New(&manuscript.Config{
		StoragePath: flagStoragePath,
		LogLevel:    flagLogLevel,
	})
}

// openDocument parses the key argument and opens the document.
func openDocument(engine *manuscript.Engine, arg string) (*document.Document, error) {
	k, err := key.FromString(arg)
	if err != nil {
		return nil, err
	}
	return engine.OpenDocument(k, document.Identity(flagIdentity))
}
