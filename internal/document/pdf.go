/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"redactor/internal/textlayout"
)

// PDF is a parsed PDF source. Native units are PDF points.
type PDF struct {
	data     []byte
	dims     []types.Dim
	renderer PDFRenderer
}

func openPDF(data []byte, opts Options) (*PDF, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("pdf page dims: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	r := opts.Renderer
	if r == nil {
		r = DefaultCommandRenderer()
	}
	return &PDF{data: data, dims: dims, renderer: r}, nil
}

func (d *PDF) Format() Format { return FormatPDF }
func (d *PDF) PageCount() int { return len(d.dims) }

func (d *PDF) PageSize(page int) (Size, error) {
	if err := checkPage(page, len(d.dims)); err != nil {
		return Size{}, err
	}
	dim := d.dims[page-1]
	return Size{Width: dim.Width, Height: dim.Height}, nil
}

func (d *PDF) Render(ctx context.Context, page, width int) (image.Image, error) {
	if err := checkPage(page, len(d.dims)); err != nil {
		return nil, err
	}
	return d.renderer.RenderPDF(ctx, d.data, page, width)
}

// stampDesc places an overlay page unscaled on the lower-left corner, on top
// of the page content.
const stampDesc = "position:bl, scalefactor:1 abs, rotation:0"

// Apply draws each page's commands into one overlay page and stamps the
// overlays onto the source pages. The source is copied unchanged when there
// is nothing to draw.
func (d *PDF) Apply(ctx context.Context, pages []PageCommands, w io.Writer) error {
	var todo []PageCommands
	for _, pc := range pages {
		if err := checkPage(pc.Page, len(d.dims)); err != nil {
			return err
		}
		if len(pc.Commands) > 0 {
			todo = append(todo, pc)
		}
	}
	if len(todo) == 0 {
		_, err := w.Write(d.data)
		return err
	}

	overlay, err := buildOverlay(todo)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "redactor-overlay-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	overlayPath := filepath.Join(dir, "overlay.pdf")
	if err := os.WriteFile(overlayPath, overlay, 0o600); err != nil {
		return err
	}

	stamps := make(map[int]*model.Watermark, len(todo))
	for i, pc := range todo {
		wm, err := api.PDFWatermark(overlayPath+":"+strconv.Itoa(i+1), stampDesc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("overlay page %d: %w", pc.Page, err)
		}
		stamps[pc.Page] = wm
	}
	if err := api.AddWatermarksMap(bytes.NewReader(d.data), w, stamps, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("stamp overlays: %w", err)
	}
	return nil
}

// buildOverlay renders one transparent PDF page per PageCommands with gofpdf.
// gofpdf uses a top-left origin, so boxes are flipped back from the command frame.
func buildOverlay(pages []PageCommands) ([]byte, error) {
	first := pages[0].Size
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("redactor", true)

	fonts := map[string]bool{}
	images := 0
	for _, pc := range pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pc.Size.Width, Ht: pc.Size.Height})
		for _, c := range pc.Commands {
			x, y := c.topLeft(pc.Size.Height)
			switch c.Op {
			case OpRect:
				fill := nrgba(c.Fill, nrgbaBlack)
				setFillColor(pdf, fill)
				pdf.Rect(x, y, c.Width, c.Height, "F")
				pdf.SetAlpha(1, "Normal")
			case OpImage:
				if c.Image == nil {
					continue
				}
				var buf bytes.Buffer
				if err := png.Encode(&buf, c.Image); err != nil {
					return nil, fmt.Errorf("encode overlay image: %w", err)
				}
				images++
				name := "img" + strconv.Itoa(images)
				opt := gofpdf.ImageOptions{ImageType: "PNG"}
				pdf.RegisterImageOptionsReader(name, opt, &buf)
				pdf.ImageOptions(name, x, y, c.Width, c.Height, false, opt, 0, "")
			case OpText:
				if c.Text == "" || len(c.Font.Data) == 0 {
					continue
				}
				selectFont(pdf, fonts, c.Font, c.FontSize)
				col := nrgba(c.Color, nrgbaBlack)
				pdf.SetTextColor(int(col.R), int(col.G), int(col.B))
				pdf.Text(x, y, c.Text)
			}
			if err := pdf.Error(); err != nil {
				return nil, fmt.Errorf("overlay page %d: %w", pc.Page, err)
			}
		}
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}
	return out.Bytes(), nil
}

// selectFont makes r the current font. Faces gofpdf cannot embed are
// replaced by the bundled Go face so a single mark never fails the page.
func selectFont(pdf *gofpdf.Fpdf, fonts map[string]bool, r textlayout.Resolved, size float64) {
	if !r.Embeddable() {
		r = textlayout.Substitute(r)
	}
	if trySetFont(pdf, fonts, r, size) {
		return
	}
	pdf.ClearError()
	trySetFont(pdf, fonts, textlayout.Substitute(r), size)
}

func trySetFont(pdf *gofpdf.Fpdf, fonts map[string]bool, r textlayout.Resolved, size float64) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
		}
	}()
	key := r.Key()
	if !fonts[key] {
		pdf.AddUTF8FontFromBytes(key, "", r.Data)
		fonts[key] = true
	}
	pdf.SetFont(key, "", size)
	return !pdf.Err()
}

var nrgbaBlack = color.NRGBA{A: 255}

func setFillColor(pdf *gofpdf.Fpdf, c color.NRGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	if c.A < 255 {
		pdf.SetAlpha(float64(c.A)/255, "Normal")
	}
}
