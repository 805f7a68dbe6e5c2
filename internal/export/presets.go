/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"
	"strings"

	"redactor/internal/textlayout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetScreen  PresetName = "screen"
	PresetPrint   PresetName = "print"
	PresetArchive PresetName = "archive"
)

// Options controls an export run.
//
// Multiplier is the render resolution over native units used for blur
// sources. BlurSigma is in native units and scaled to the rendered bitmap.
type Options struct {
	Preset     PresetName
	Multiplier float64
	BlurSigma  float64
	EraseColor color.Color
	// TextColor applies to text marks without a color of their own.
	TextColor color.RGBA
	Fonts     textlayout.Provider
}

// ParsePreset maps a preset name case-insensitively; empty selects print.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetPrint, nil
	case PresetScreen, PresetPrint, PresetArchive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown preset: %s", s)
	}
}

// PresetOptions returns the options of a preset with default colors and fonts.
func PresetOptions(p PresetName) Options {
	return Options{Preset: p, Multiplier: presetMultiplier(p), BlurSigma: presetBlurSigma(p)}.withDefaults()
}

func presetMultiplier(p PresetName) float64 {
	switch p {
	case PresetScreen:
		return 2
	case PresetArchive:
		return 6
	default:
		return 4
	}
}

func presetBlurSigma(p PresetName) float64 {
	switch p {
	case PresetScreen:
		return 6
	case PresetArchive:
		return 16
	default:
		return 12
	}
}

func (o Options) withDefaults() Options {
	if o.Preset == "" {
		o.Preset = PresetPrint
	}
	if o.Multiplier <= 0 {
		o.Multiplier = presetMultiplier(o.Preset)
	}
	if o.BlurSigma <= 0 {
		o.BlurSigma = presetBlurSigma(o.Preset)
	}
	if o.EraseColor == nil {
		o.EraseColor = color.White
	}
	if o.TextColor == (color.RGBA{}) {
		o.TextColor = color.RGBA{A: 0xff}
	}
	if o.Fonts == nil {
		o.Fonts = textlayout.FallbackProvider{}
	}
	return o
}
