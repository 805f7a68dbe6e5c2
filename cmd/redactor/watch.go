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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redactor/internal/app"
	applog "redactor/internal/log"
	"redactor/internal/session"
)

var (
	watchSession    string
	watchOut        string
	watchPreset     string
	watchMultiplier float64
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <document>",
	Short: "Re-export whenever the session file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := app.OpenOptions{
			SessionPath: watchSession,
			OutputPath:  watchOut,
			Preset:      watchPreset,
			Multiplier:  watchMultiplier,
		}
		ws, err := openWorkspace(args, opt)
		if err != nil {
			return err
		}
		l := applog.WithComponent("cli").With(slog.String("doc", ws.Path()))
		out := cmd.OutOrStdout()

		run := func() {
			f, err := session.ReadFile(ws.SessionPath())
			if err != nil {
				l.Warn("session not loaded", slog.Any("err", err))
				fmt.Fprintln(out, "Session invalid, keeping last export:", err)
				return
			}
			ws.Store().Load(f.Pages)
			rep, err := ws.Export(cmd.Context())
			if err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Fprintln(out, "Export failed:", err)
				return
			}
			printReport(out, ws.OutputPath(), rep)
		}
		run()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", ws.SessionPath())
		return app.Watch(ctx, ws.SessionPath(), watchDebounce, run)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	f := watchCmd.Flags()
	f.StringVar(&watchSession, "session", "", "Session file (default: <document>.redactor.json)")
	f.StringVarP(&watchOut, "out", "o", "", "Output path (default: <name>.redacted.<ext>)")
	f.StringVar(&watchPreset, "preset", "", "Quality preset: screen, print or archive")
	f.Float64Var(&watchMultiplier, "multiplier", 0, "Render resolution multiplier (overrides the preset)")
	f.DurationVar(&watchDebounce, "debounce", app.DefaultDebounce, "Quiet period before re-exporting")
}
