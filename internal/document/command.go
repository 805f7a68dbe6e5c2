/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"image"
	"image/color"

	"redactor/internal/textlayout"
)

// Op is a draw command kind.
type Op string

const (
	OpRect  Op = "rect"
	OpImage Op = "image"
	OpText  Op = "text"
)

// Command is one absolute draw instruction in native page units with a
// bottom-left origin.
//
// For OpRect and OpImage, X/Y is the lower-left corner of the box.
// For OpText, X/Y is the start of the baseline, Width the advance of the
// line and Height the line height; Font is resolved at FontSize.
type Command struct {
	Op            Op
	X, Y          float64
	Width, Height float64

	Fill  color.Color
	Image image.Image

	Text     string
	Font     textlayout.Resolved
	FontSize float64
	Color    color.Color
}

// PageCommands are the commands for one 1-based page, in paint order.
type PageCommands struct {
	Page     int
	Size     Size
	Commands []Command
}

func Rect(x, y, w, h float64, fill color.Color) Command {
	return Command{Op: OpRect, X: x, Y: y, Width: w, Height: h, Fill: fill}
}

func Image(x, y, w, h float64, img image.Image) Command {
	return Command{Op: OpImage, X: x, Y: y, Width: w, Height: h, Image: img}
}

func Text(x, baseline float64, text string, font textlayout.Resolved, col color.Color) Command {
	return Command{
		Op: OpText, X: x, Y: baseline,
		Width: font.Measure(text), Height: font.LineHeight,
		Text: text, Font: font, FontSize: font.Size, Color: col,
	}
}

// topLeft converts the command box to a top-left origin on a page of height pageH.
func (c Command) topLeft(pageH float64) (x, y float64) {
	if c.Op == OpText {
		return c.X, pageH - c.Y
	}
	return c.X, pageH - c.Y - c.Height
}

// nrgba returns c without premultiplied alpha, or def when c is nil.
func nrgba(c color.Color, def color.NRGBA) color.NRGBA {
	if c == nil {
		return def
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
