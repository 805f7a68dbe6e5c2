/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"redactor/internal/document"
	"redactor/internal/domain"
	"redactor/internal/store"
	"redactor/internal/surface"
)

// PreviewOptions controls PNG preview output.
// - Width: display width each page is rendered at (default 800)
// - Pages: if empty, every annotated page
// - Surface: live rendering options, as in the editor
type PreviewOptions struct {
	Width   int
	Pages   []int
	Surface surface.Options
}

// PreviewPNG writes page-<n>.png files into outDir showing each page the way
// the interactive editor composes it. It returns the written paths.
func PreviewPNG(ctx context.Context, doc document.Document, overlays domain.Overlays, outDir string, opt PreviewOptions) ([]string, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	width := opt.Width
	if width <= 0 {
		width = 800
	}
	pages := opt.Pages
	if len(pages) == 0 {
		pages = overlays.Pages()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}

	st := store.New(store.Options{})
	st.Load(overlays)
	sf := surface.New(st, opt.Surface)
	var written []string
	for _, page := range pages {
		size, err := doc.PageSize(page)
		if err != nil {
			return written, fmt.Errorf("page %d: %w", page, err)
		}
		bitmap, err := doc.Render(ctx, page, width)
		if err != nil {
			return written, fmt.Errorf("render page %d: %w", page, err)
		}
		sf.ShowPage(page, bitmap, size)
		img := sf.Flatten()

		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", page))
		f, err := os.Create(name)
		if err != nil {
			return written, fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return written, fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("close png: %w", err)
		}
		written = append(written, name)
	}
	return written, nil
}
