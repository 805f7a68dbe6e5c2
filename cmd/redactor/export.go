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
	"io"

	"github.com/spf13/cobra"

	"redactor/internal/app"
	"redactor/internal/export"
)

var (
	exportSession    string
	exportOut        string
	exportPreset     string
	exportMultiplier float64
)

var exportCmd = &cobra.Command{
	Use:   "export <document>",
	Short: "Burn the saved annotations into a new document",
	Long: `Export renders every annotated page at high resolution, applies the
blur, erase and text annotations and writes the result next to the input
(or to --out). Annotations that fail are skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(args, app.OpenOptions{
			SessionPath: exportSession,
			OutputPath:  exportOut,
			Preset:      exportPreset,
			Multiplier:  exportMultiplier,
		})
		if err != nil {
			return err
		}
		rep, err := ws.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		printReport(cmd.OutOrStdout(), ws.OutputPath(), rep)
		return nil
	},
}

func printReport(w io.Writer, out string, rep export.Report) {
	fmt.Fprintf(w, "Wrote %s (%d pages, %d draw commands)\n", out, rep.Pages, rep.Commands)
	for _, f := range rep.FontFallbacks {
		fmt.Fprintf(w, "  font %q not available, used default\n", f)
	}
	if len(rep.Skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "Skipped %d annotation(s):\n", len(rep.Skipped))
	for _, s := range rep.Skipped {
		fmt.Fprintf(w, "  %s\n", s)
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportSession, "session", "", "Session file (default: <document>.redactor.json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default: <name>.redacted.<ext>)")
	exportCmd.Flags().StringVar(&exportPreset, "preset", "", "Quality preset: screen, print or archive")
	exportCmd.Flags().Float64Var(&exportMultiplier, "multiplier", 0, "Render resolution multiplier (overrides the preset)")
}
