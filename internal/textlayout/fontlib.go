/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is the family of the bundled Go fonts. It is always available.
const DefaultFamily = "Go"

// FontLibrary holds parsed TrueType/OpenType fonts keyed by family, weight
// class and slant. The raw bytes are kept so exporters can embed the exact
// face whose metrics were used for layout.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*loadedFont
}

type fontKey struct {
	family string // lower-cased
	bold   bool
	italic bool
}

type loadedFont struct {
	family string
	weight int
	italic bool
	data   []byte
	sfnt   *opentype.Font
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*loadedFont)} }

var (
	goLibOnce sync.Once
	goLib     *FontLibrary
)

// GoFonts returns a shared library holding the four bundled Go faces.
func GoFonts() *FontLibrary {
	goLibOnce.Do(func() {
		goLib = NewFontLibrary()
		for _, f := range []struct {
			data   []byte
			weight int
			italic bool
		}{
			{goregular.TTF, 400, false},
			{gobold.TTF, 700, false},
			{goitalic.TTF, 400, true},
			{gobolditalic.TTF, 700, true},
		} {
			if err := goLib.Add(DefaultFamily, f.weight, f.italic, f.data); err != nil {
				panic(fmt.Sprintf("bundled Go font: %v", err))
			}
		}
	})
	return goLib
}

// LoadTTF reads and registers a font file.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.Add(family, weight, italic, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Add registers font bytes under family. A later Add for the same family,
// weight class and slant replaces the earlier one.
func (fl *FontLibrary) Add(family string, weight int, italic bool, data []byte) error {
	family = strings.TrimSpace(family)
	if family == "" {
		return fmt.Errorf("font family is empty")
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	if weight <= 0 {
		weight = 400
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*loadedFont)
	}
	fl.fonts[fontKey{family: strings.ToLower(family), bold: IsBoldWeight(weight), italic: italic}] = &loadedFont{
		family: family, weight: weight, italic: italic, data: data, sfnt: f,
	}
	return nil
}

// Families lists registered family names, sorted.
func (fl *FontLibrary) Families() []string {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, f := range fl.fonts {
		if !seen[f.family] {
			seen[f.family] = true
			out = append(out, f.family)
		}
	}
	sort.Strings(out)
	return out
}

// find returns the best face of spec's family: exact style first, then the
// upright regular face, then any face of that family.
func (fl *FontLibrary) find(spec FontSpec) *loadedFont {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	fam := strings.ToLower(strings.TrimSpace(spec.Family))
	bold := IsBoldWeight(spec.Weight)
	for _, k := range []fontKey{
		{fam, bold, spec.Italic},
		{fam, bold, false},
		{fam, false, spec.Italic},
		{fam, false, false},
	} {
		if f, ok := fl.fonts[k]; ok {
			return f
		}
	}
	for k, f := range fl.fonts {
		if k.family == fam {
			return f
		}
	}
	return nil
}
