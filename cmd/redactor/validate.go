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
	"strings"

	"github.com/spf13/cobra"

	"redactor/internal/app"
	"redactor/internal/domain"
	"redactor/internal/session"
)

var validateList bool

var validateCmd = &cobra.Command{
	Use:   "validate <session.json | document>",
	Short: "Check a session file against the schema",
	Long: `Validate decodes a session file and checks it against the embedded JSON
schema. Given a document instead, the default session file next to it is
checked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !isSessionPath(path) {
			path = app.SessionPathFor(path)
		}
		f, err := session.ReadFile(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: valid (version %d, %d annotations on %d pages)\n",
			path, f.Version, f.Pages.Count(), len(f.Pages.Pages()))
		for _, p := range f.Pages.Pages() {
			anns := f.Pages[p]
			fmt.Fprintf(out, "  page %d: %d\n", p, len(anns))
			if !validateList {
				continue
			}
			for i, a := range anns {
				fmt.Fprintf(out, "    #%d %s\n", i, describe(a))
			}
		}
		return nil
	},
}

func isSessionPath(p string) bool { return strings.HasSuffix(strings.ToLower(p), ".json") }

func describe(a domain.Annotation) string {
	s := fmt.Sprintf("%-5s x=%.4f y=%.4f w=%.4f h=%.4f", a.Kind, a.X, a.Y, a.Width, a.Height)
	if a.Kind == domain.KindText {
		s += fmt.Sprintf(" %q", a.Text)
	}
	return s
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVarP(&validateList, "list", "l", false, "List every annotation")
}
