/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redactor/internal/app"
)

var (
	previewSession string
	previewWidth   int
	previewDir     string
)

var previewCmd = &cobra.Command{
	Use:   "preview <document>",
	Short: "Write PNG previews of the annotated pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(args, app.OpenOptions{SessionPath: previewSession})
		if err != nil {
			return err
		}
		paths, err := ws.Preview(cmd.Context(), previewDir, previewWidth)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVar(&previewSession, "session", "", "Session file (default: <document>.redactor.json)")
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "Preview width in pixels (default: editor.display_width)")
	previewCmd.Flags().StringVar(&previewDir, "out-dir", ".", "Directory for page-<n>.png files")
}
