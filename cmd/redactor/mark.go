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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"redactor/internal/app"
	"redactor/internal/domain"
)

var (
	markSession  string
	markPage     int
	markWidth    int
	markKind     string
	markRect     string
	markText     string
	markFontSize float64
	markFont     string
	markColor    string
)

var markCmd = &cobra.Command{
	Use:   "mark <document>",
	Short: "Add an annotation to the session file",
	Long: `Mark renders the page at --width pixels and adds one annotation whose
rectangle is given in those pixels, so coordinates can be read off any
preview of the same width. The session file is updated in place.`,
	Example: `  redactor mark scan.pdf --page 1 --kind blur --rect 40,80,200,30
  redactor mark scan.pdf --kind text --rect 40,200,240,40 --text "REDACTED"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := domain.ParseKind(markKind)
		if !ok {
			return fmt.Errorf("unknown kind %q (want blur, erase or text)", markKind)
		}
		x, y, w, h, err := parseRect(markRect)
		if err != nil {
			return err
		}
		ws, err := openWorkspace(args, app.OpenOptions{SessionPath: markSession})
		if err != nil {
			return err
		}
		if err := ws.ShowPage(cmd.Context(), markPage, markWidth); err != nil {
			return err
		}
		a := domain.DisplayAnnotation{Kind: kind, X: x, Y: y, Width: w, Height: h}
		if kind == domain.KindText {
			if strings.TrimSpace(markText) == "" {
				return fmt.Errorf("--text is required for text annotations")
			}
			a.Text = markText
			a.FontSize = markFontSize
			if a.FontSize <= 0 {
				a.FontSize = cfg.Editor.DefaultFontSizePx
			}
			a.FontFamily = markFont
			if a.FontFamily == "" {
				a.FontFamily = cfg.Editor.DefaultFontFamily
			}
			a.Color = markColor
		}
		if !ws.Store().AddAnnotation(markPage, a, ws.Surface().Dims()) {
			return fmt.Errorf("annotation rejected: smaller than %gpx or outside the page", cfg.Editor.MinSizePx)
		}
		if err := ws.SaveSession(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s on page %d (%d total) to %s\n", kind, markPage, ws.Store().Len(), ws.SessionPath())
		return nil
	},
}

// parseRect reads "x,y,w,h".
func parseRect(s string) (x, y, w, h float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("--rect wants x,y,w,h, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("--rect: %w", err)
		}
	}
	return v[0], v[1], v[2], v[3], nil
}

func init() {
	rootCmd.AddCommand(markCmd)
	f := markCmd.Flags()
	f.StringVar(&markSession, "session", "", "Session file (default: <document>.redactor.json)")
	f.IntVar(&markPage, "page", 1, "Page number, starting at 1")
	f.IntVar(&markWidth, "width", 0, "Width the rectangle is measured at (default: editor.display_width)")
	f.StringVar(&markKind, "kind", "blur", "blur, erase or text")
	f.StringVar(&markRect, "rect", "", "Rectangle as x,y,w,h in pixels")
	f.StringVar(&markText, "text", "", "Text for text annotations")
	f.Float64Var(&markFontSize, "font-size", 0, "Font size in pixels at --width")
	f.StringVar(&markFont, "font", "", "Font family")
	f.StringVar(&markColor, "color", "", "Text color as #rrggbb")
	_ = markCmd.MarkFlagRequired("rect")
}
