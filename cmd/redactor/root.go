/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"redactor/internal/app"
	"redactor/internal/config"
	"redactor/internal/crash"
	applog "redactor/internal/log"
	"redactor/internal/telemetry"
)

var (
	verbose    bool
	configPath string

	// cfg is loaded once per invocation before any subcommand runs.
	cfg config.AppConfig
	// current is the open workspace, if any; crash reports dump its session.
	current  *app.Workspace
	crashCtx = &crash.Context{Session: currentSession}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redactor",
	Short: "Blur, erase and annotate regions of PDFs and images",
	Long: `Redactor keeps resolution-independent annotations next to a document
and burns them into a new PDF or image on export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.ConfigPath()
			if err != nil {
				return fmt.Errorf("config path: %w", err)
			}
			path = p
		}
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		applog.Init(app.LogOptions(cfg, verbose))

		tc := telemetry.FromEnv()
		if cfg.General.TelemetryOptIn {
			tc.OptIn = true
		}
		telemetry.SetDefault(telemetry.New(tc))
		applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.Name()), slog.String("config", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Default().Flush(ctx)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir)")
}

func currentSession() ([]byte, error) {
	if current == nil {
		return nil, errors.New("no document open")
	}
	return current.SessionJSON()
}

// openWorkspace opens the document in args[0] and records it for crash reports.
func openWorkspace(args []string, opt app.OpenOptions) (*app.Workspace, error) {
	ws, err := app.Open(cfg, args[0], opt)
	if err != nil {
		return nil, err
	}
	current = ws
	crashCtx.Document = ws.Path()
	return ws, nil
}
