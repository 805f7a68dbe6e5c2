/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document adapts source documents to the two collaborator roles the
// annotation pipeline needs: a renderer that paints a page to a bitmap at a
// requested width, and a mutator that applies absolute draw commands given in
// native page units (bottom-left origin) and re-serializes the document.
//
// PDFs are parsed and stamped with pdfcpu, overlays are drawn with gofpdf and
// pages are rasterized by an external command. Raster images (PNG, JPEG, GIF,
// TIFF, BMP, WebP) are single-page documents whose native unit is the pixel.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
)

// Format identifies a source document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatWebP Format = "webp"
)

// Ext returns the file extension, with dot, used when writing this format.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatTIFF:
		return ".tiff"
	case FormatWebP:
		return ".png"
	case "":
		return ""
	default:
		return "." + string(f)
	}
}

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrPageOutOfRange    = errors.New("page out of range")
)

// Size is a page size in native units.
type Size struct {
	Width, Height float64
}

// Document is a paged source that can be rendered.
type Document interface {
	Format() Format
	PageCount() int
	// PageSize returns the native size of a 1-based page.
	PageSize(page int) (Size, error)
	// Render paints a page at the given pixel width; height follows the page aspect.
	Render(ctx context.Context, page, width int) (image.Image, error)
}

// Mutator applies per-page draw commands to the source and writes the result.
type Mutator interface {
	Apply(ctx context.Context, pages []PageCommands, w io.Writer) error
}

// Options configures Open.
type Options struct {
	// Renderer rasterizes PDF pages. Nil selects DefaultCommandRenderer.
	Renderer PDFRenderer
}

// Open sniffs data and returns the document together with its mutator.
// Parse failures are fatal for the whole document.
func Open(data []byte, opts Options) (Document, Mutator, error) {
	if bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), []byte("%PDF-")) {
		d, err := openPDF(data, opts)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}
	d, err := openRaster(data)
	if err != nil {
		return nil, nil, err
	}
	return d, d, nil
}

// OpenFile reads path and calls Open.
func OpenFile(path string, opts Options) (Document, Mutator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	d, m, err := Open(data, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, m, nil
}

func checkPage(page, count int) error {
	if page < 1 || page > count {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, count)
	}
	return nil
}
