/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"github.com/spf13/cobra"

	"redactor/internal/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui [document]",
	Short: "Launch the desktop editor",
	Long:  `Launch the desktop editor. The full UI needs a build with -tags fyne.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := ""
		if len(args) == 1 {
			doc = args[0]
		}
		return ui.Run(doc, cfg)
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
