/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the annotation model shared by the store, the projector,
// the interactive surface and the exporter. Geometry stored here is always
// fractional (0..1 of the page width/height, origin top-left).

import (
	"sort"
	"strings"
)

// Kind identifies the type of mark placed on a page.
type Kind string

const (
	KindBlur  Kind = "blur"
	KindErase Kind = "erase"
	KindText  Kind = "text"
)

// ParseKind maps user/tool names to a Kind. The legacy "addText" tool name is accepted.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blur", "region-blur":
		return KindBlur, true
	case "erase", "region-erase":
		return KindErase, true
	case "text", "addtext":
		return KindText, true
	}
	return "", false
}

// IsRegion reports whether the kind is a rectangular region mark.
func (k Kind) IsRegion() bool { return k == KindBlur || k == KindErase }

// Text defaults applied when a text annotation is created without explicit styling.
const (
	DefaultFontSizePx = 16
	DefaultFontFamily = "Go"
	DefaultFontWeight = "normal"
	DefaultFontStyle  = "normal"
	DefaultTextColor  = "#000000"
)

// Annotation is one stored mark on one page in normalized fractional space.
type Annotation struct {
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Text-only fields. FontSizeFraction is relative to the page height.
	Text             string  `json:"text,omitempty"`
	FontSizeFraction float64 `json:"fontSizeFraction,omitempty"`
	FontFamily       string  `json:"fontFamily,omitempty"`
	FontWeight       string  `json:"fontWeight,omitempty"`
	FontStyle        string  `json:"fontStyle,omitempty"`
	Color            string  `json:"color,omitempty"`
}

// DisplayAnnotation is an annotation expressed in the pixels (or native units)
// of one particular frame. Values of this type are transient and never stored.
type DisplayAnnotation struct {
	Kind   Kind
	X      float64
	Y      float64
	Width  float64
	Height float64

	Text       string
	FontSize   float64
	FontFamily string
	FontWeight string
	FontStyle  string
	Color      string
}

// Bold reports whether the weight asks for a bold face.
func (a Annotation) Bold() bool { return isBold(a.FontWeight) }

// Italic reports whether the style asks for an italic face.
func (a Annotation) Italic() bool { return isItalic(a.FontStyle) }

// Bold reports whether the weight asks for a bold face.
func (a DisplayAnnotation) Bold() bool { return isBold(a.FontWeight) }

// Italic reports whether the style asks for an italic face.
func (a DisplayAnnotation) Italic() bool { return isItalic(a.FontStyle) }

func isBold(w string) bool {
	switch strings.ToLower(strings.TrimSpace(w)) {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

func isItalic(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "italic" || s == "oblique"
}

// PageDims records the current on-screen bitmap size of a page together with
// its intrinsic size. It is overwritten on every successful page render.
type PageDims struct {
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	NativeWidth   float64 `json:"nativeWidth"`
	NativeHeight  float64 `json:"nativeHeight"`
}

// Scale returns displayWidth / nativeWidth, or 0 when the native width is unknown.
func (d PageDims) Scale() float64 {
	if d.NativeWidth <= 0 {
		return 0
	}
	return d.DisplayWidth / d.NativeWidth
}

// Valid reports whether both frames have positive extents.
func (d PageDims) Valid() bool {
	return d.DisplayWidth > 0 && d.DisplayHeight > 0 && d.NativeWidth > 0 && d.NativeHeight > 0
}

// Overlays maps a 1-based page number to the annotations on that page.
type Overlays map[int][]Annotation

// Clone returns a deep copy. Empty pages are kept so that indices stay stable.
func (o Overlays) Clone() Overlays {
	out := make(Overlays, len(o))
	for page, list := range o {
		cp := make([]Annotation, len(list))
		copy(cp, list)
		out[page] = cp
	}
	return out
}

// Pages returns the page numbers holding at least one annotation, ascending.
func (o Overlays) Pages() []int {
	pages := make([]int, 0, len(o))
	for page, list := range o {
		if len(list) > 0 {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// Count returns the total number of annotations across all pages.
func (o Overlays) Count() int {
	n := 0
	for _, list := range o {
		n += len(list)
	}
	return n
}

// Equal reports whether both maps hold the same annotations on the same non-empty pages.
func (o Overlays) Equal(other Overlays) bool {
	a, b := o.Pages(), other.Pages()
	if len(a) != len(b) {
		return false
	}
	for i, page := range a {
		if b[i] != page {
			return false
		}
		la, lb := o[page], other[page]
		if len(la) != len(lb) {
			return false
		}
		for j := range la {
			if la[j] != lb[j] {
				return false
			}
		}
	}
	return true
}
