/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app turns the user configuration into the collaborators used by
// both the command line and the desktop editor.
package app

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"redactor/internal/config"
	"redactor/internal/document"
	"redactor/internal/domain"
	"redactor/internal/export"
	applog "redactor/internal/log"
	"redactor/internal/store"
	"redactor/internal/surface"
	"redactor/internal/textlayout"
)

// LogOptions maps the logging section onto logger options.
func LogOptions(cfg config.AppConfig, verbose bool) applog.Options {
	o := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
	if verbose {
		o.Level = "debug"
	}
	return o
}

// DocumentOptions configures the PDF rasterizer from the render section.
func DocumentOptions(cfg config.AppConfig) document.Options {
	r := document.DefaultCommandRenderer()
	if c := strings.TrimSpace(cfg.Render.Command); c != "" {
		r.Command = c
	}
	if len(cfg.Render.Args) > 0 {
		r.Args = append([]string(nil), cfg.Render.Args...)
	}
	if cfg.Render.TimeoutMs > 0 {
		r.Timeout = time.Duration(cfg.Render.TimeoutMs) * time.Millisecond
	}
	return document.Options{Renderer: r}
}

// Fonts loads the configured font files. A file that fails to load is an
// error; families that are not configured fall back to the Go fonts.
// export.default_font names the family tried before the Go fonts.
func Fonts(cfg config.AppConfig) (textlayout.Provider, error) {
	if len(cfg.Fonts) == 0 {
		return textlayout.DefaultProvider(nil), nil
	}
	lib := textlayout.NewFontLibrary()
	for _, f := range cfg.Fonts {
		if err := lib.LoadTTF(f.Family, f.Weight, f.Italic, f.Path); err != nil {
			return nil, fmt.Errorf("font %s: %w", f.Family, err)
		}
	}
	p := textlayout.DefaultProvider(lib)
	p.Default = strings.TrimSpace(cfg.Export.DefaultFont)
	return p, nil
}

func StoreOptions(cfg config.AppConfig) store.Options {
	return store.Options{MinSizePx: cfg.Editor.MinSizePx, HistoryDepth: cfg.Editor.HistoryDepth}
}

func SurfaceOptions(cfg config.AppConfig, fonts textlayout.Provider) surface.Options {
	return surface.Options{
		LiveBlurRadius: cfg.Editor.LiveBlurRadius,
		EraseColor:     domain.ParseColor(cfg.Export.EraseColor, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}),
		Fonts:          fonts,
		FontSizePx:     cfg.Editor.DefaultFontSizePx,
		FontFamily:     cfg.Editor.DefaultFontFamily,
		TextColor:      cfg.Export.TextColor,
	}
}

// ExportOptions builds export options from the export section. A non-empty
// preset or positive multiplier overrides the configured value.
func ExportOptions(cfg config.AppConfig, fonts textlayout.Provider, preset string, multiplier float64) (export.Options, error) {
	if strings.TrimSpace(preset) == "" {
		preset = cfg.Export.Preset
	}
	p, err := export.ParsePreset(preset)
	if err != nil {
		return export.Options{}, err
	}
	o := export.PresetOptions(p)
	if cfg.Export.ResolutionMultiplier > 0 {
		o.Multiplier = cfg.Export.ResolutionMultiplier
	}
	if multiplier > 0 {
		o.Multiplier = multiplier
	}
	if cfg.Export.BlurSigma > 0 {
		o.BlurSigma = cfg.Export.BlurSigma
	}
	o.EraseColor = domain.ParseColor(cfg.Export.EraseColor, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	o.TextColor = domain.ParseColor(cfg.Export.TextColor, color.RGBA{A: 0xff})
	o.Fonts = fonts
	return o, nil
}
