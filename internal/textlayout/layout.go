/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout resolves fonts and lays out text boxes from real font
// metrics: lines are wrapped to a width, the first baseline sits one ascent
// below the box top and following lines advance by the font's line height.
//
// All measurements use 72 DPI, so one unit equals one point at the requested
// size, which is the same as one native unit of a PDF page or one pixel of a
// raster page.
package textlayout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrFontNotFound is returned by providers that cannot satisfy a family.
var ErrFontNotFound = errors.New("font not found")

// FontSpec requests a face. Size is in output units.
type FontSpec struct {
	Family string
	Size   float64
	Weight int // 100..900
	Italic bool
}

// SpecFor builds a FontSpec from CSS-like weight and style names.
func SpecFor(family, weight, style string, size float64) FontSpec {
	return FontSpec{Family: family, Size: size, Weight: ParseWeight(weight), Italic: strings.EqualFold(strings.TrimSpace(style), "italic") || strings.EqualFold(strings.TrimSpace(style), "oblique")}
}

// ParseWeight maps "normal", "bold" or a numeric weight to 100..900.
func ParseWeight(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "normal", "regular":
		return 400
	case "bold":
		return 700
	case "bolder":
		return 800
	case "lighter":
		return 300
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 400
}

func IsBoldWeight(w int) bool { return w >= 600 }

// Metrics are vertical font metrics at the resolved size.
type Metrics struct {
	Ascent     float64
	Descent    float64
	LineGap    float64
	LineHeight float64
}

// Resolved is a face ready for measuring and drawing.
type Resolved struct {
	Family string
	Weight int
	Italic bool
	Size   float64
	Face   font.Face
	Metrics
	// Data holds the font file for embedding.
	Data []byte
	// Fallback is set when the requested family was not available.
	Fallback bool
}

// Key names the face uniquely, e.g. for registering it once with a PDF writer.
func (r Resolved) Key() string {
	k := strings.ToLower(strings.ReplaceAll(r.Family, " ", ""))
	if IsBoldWeight(r.Weight) {
		k += "-bold"
	}
	if r.Italic {
		k += "-italic"
	}
	return k
}

// Embeddable reports whether the face has TrueType outlines. PDF writers
// that subset fonts, gofpdf included, cannot embed CFF-flavoured OpenType.
func (r Resolved) Embeddable() bool { return IsTrueType(r.Data) }

// IsTrueType checks the sfnt version tag of font data.
func IsTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch string(data[:4]) {
	case "\x00\x01\x00\x00", "true":
		return true
	}
	return false
}

// Substitute returns the bundled Go face with the weight, slant and size of
// r, marked as a fallback.
func Substitute(r Resolved) Resolved {
	out, err := newResolved(GoFonts().find(FontSpec{Family: DefaultFamily, Weight: r.Weight, Italic: r.Italic}), r.Size)
	if err != nil {
		return r
	}
	out.Fallback = true
	return out
}

// Measure returns the advance width of s.
func (r Resolved) Measure(s string) float64 { return toFloat(font.MeasureString(r.Face, s)) }

// Provider turns a FontSpec into a resolved face.
type Provider interface {
	Resolve(FontSpec) (Resolved, error)
}

// OTProvider resolves faces from a FontLibrary.
type OTProvider struct {
	Lib *FontLibrary
}

func (p OTProvider) Resolve(spec FontSpec) (Resolved, error) {
	f := p.Lib.find(spec)
	if f == nil {
		return Resolved{}, fmt.Errorf("%w: %q", ErrFontNotFound, spec.Family)
	}
	return newResolved(f, spec.Size)
}

// FallbackProvider tries Primary, then Primary with the Default family, and
// finally substitutes the bundled Go font of the same weight and slant.
// Resolve never returns an error.
type FallbackProvider struct {
	Primary Provider
	Default string
}

// DefaultProvider resolves user fonts from lib (may be nil) with the Go fonts as fallback.
func DefaultProvider(lib *FontLibrary) FallbackProvider {
	if lib == nil {
		return FallbackProvider{}
	}
	return FallbackProvider{Primary: OTProvider{Lib: lib}}
}

func (p FallbackProvider) Resolve(spec FontSpec) (Resolved, error) {
	if p.Primary != nil && !strings.EqualFold(spec.Family, DefaultFamily) {
		if r, err := p.Primary.Resolve(spec); err == nil {
			return r, nil
		}
	}
	requested := spec.Family
	if p.Primary != nil && p.Default != "" && !strings.EqualFold(p.Default, requested) && !strings.EqualFold(p.Default, DefaultFamily) {
		alt := spec
		alt.Family = p.Default
		if r, err := p.Primary.Resolve(alt); err == nil {
			r.Fallback = true
			return r, nil
		}
	}
	spec.Family = DefaultFamily
	r, err := newResolved(GoFonts().find(spec), spec.Size)
	if err != nil {
		// the bundled fonts always parse; this only happens for a zero size face
		return Resolved{}, err
	}
	r.Fallback = strings.TrimSpace(requested) != "" && !strings.EqualFold(requested, DefaultFamily)
	return r, nil
}

func newResolved(f *loadedFont, size float64) (Resolved, error) {
	if size <= 0 {
		size = 12
	}
	face, err := opentype.NewFace(f.sfnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return Resolved{}, fmt.Errorf("face %s: %w", f.family, err)
	}
	m := face.Metrics()
	met := Metrics{
		Ascent:     toFloat(m.Ascent),
		Descent:    toFloat(m.Descent),
		LineHeight: toFloat(m.Height),
	}
	met.LineGap = met.LineHeight - met.Ascent - met.Descent
	if met.LineHeight < met.Ascent+met.Descent {
		met.LineHeight = met.Ascent + met.Descent
		met.LineGap = 0
	}
	return Resolved{
		Family:  f.family,
		Weight:  f.weight,
		Italic:  f.italic,
		Size:    size,
		Face:    face,
		Metrics: met,
		Data:    f.data,
	}, nil
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// Wrap breaks text into lines no wider than maxWidth. Explicit newlines are
// kept, words are packed greedily and a word wider than the box is split
// between runes. Spacing inside a line is kept as typed (tabs become four
// spaces); the whitespace at a wrap point is dropped. maxWidth <= 0 disables
// wrapping.
func Wrap(face font.Face, text string, maxWidth float64) []string {
	measure := func(s string) float64 { return toFloat(font.MeasureString(face, s)) }
	fits := func(s string) bool { return maxWidth <= 0 || measure(s) <= maxWidth }
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := splitWords(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur, open := "", false
		for i, w := range words {
			if open {
				if fits(cur + w.gap + w.text) {
					cur += w.gap + w.text
					continue
				}
				lines = append(lines, cur)
			}
			next := w.text
			if i == 0 {
				next = w.gap + w.text
			}
			open = true
			if fits(next) {
				cur = next
				continue
			}
			pieces := splitRunes(next, maxWidth, measure)
			lines = append(lines, pieces[:len(pieces)-1]...)
			cur = pieces[len(pieces)-1]
		}
		lines = append(lines, cur)
	}
	return lines
}

type word struct {
	gap  string // whitespace before the word
	text string
}

// splitWords splits s into words with the whitespace preceding each.
// Trailing whitespace is dropped.
func splitWords(s string) []word {
	var out []word
	i := 0
	for i < len(s) {
		j := i
		for j < len(s) {
			r, n := utf8.DecodeRuneInString(s[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += n
		}
		k := j
		for k < len(s) {
			r, n := utf8.DecodeRuneInString(s[k:])
			if unicode.IsSpace(r) {
				break
			}
			k += n
		}
		if k == j {
			break
		}
		out = append(out, word{gap: s[i:j], text: s[j:k]})
		i = k
	}
	return out
}

// splitRunes cuts w into pieces that fit maxWidth; every piece holds at least one rune.
func splitRunes(w string, maxWidth float64, measure func(string) float64) []string {
	var out []string
	start := 0
	for i := 0; i < len(w); {
		_, size := utf8.DecodeRuneInString(w[i:])
		if i > start && measure(w[start:i+size]) > maxWidth {
			out = append(out, w[start:i])
			start = i
		}
		i += size
	}
	return append(out, w[start:])
}

// Block is a laid out text box. Offsets are measured down from the box top.
type Block struct {
	Lines []string
	// Baseline of the first line.
	Baseline float64
	// LineAdvance between consecutive baselines.
	LineAdvance float64
	Width       float64
	Height      float64
}

// BaselineAt returns the offset of line i's baseline from the box top.
func (b Block) BaselineAt(i int) float64 { return b.Baseline + float64(i)*b.LineAdvance }

// LayoutBlock wraps text to maxWidth with r's metrics.
func LayoutBlock(r Resolved, text string, maxWidth float64) Block {
	lines := Wrap(r.Face, text, maxWidth)
	b := Block{Lines: lines, Baseline: r.Ascent, LineAdvance: r.LineHeight}
	for _, l := range lines {
		if w := r.Measure(l); w > b.Width {
			b.Width = w
		}
	}
	if n := len(lines); n > 0 {
		b.Height = float64(n-1)*r.LineHeight + r.Ascent + r.Descent
	}
	return b
}
