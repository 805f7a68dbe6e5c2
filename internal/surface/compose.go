/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"

	"redactor/internal/document"
	"redactor/internal/domain"
	"redactor/internal/projector"
	"redactor/internal/textlayout"
)

var (
	dragFill    = color.RGBA{R: 0x1e, G: 0x63, B: 0xd6, A: 0x40}
	dragStroke  = color.RGBA{R: 0x1e, G: 0x63, B: 0xd6, A: 0xff}
	selectColor = color.RGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}
	editorBox   = color.RGBA{R: 0x64, G: 0x64, B: 0x64, A: 0xff}
)

const handleSize = 6

// Compose renders the two layers of the shown page. The background is the
// page bitmap with every stored mark applied; the foreground is transparent
// and carries the drag rectangle, the selection handles and the text editor.
func (s *Surface) Compose() (background, foreground *image.RGBA) {
	if s.bitmap == nil {
		return nil, nil
	}
	background = document.Scale(s.bitmap, 0)
	foreground = image.NewRGBA(background.Bounds())
	list, _ := s.st.DisplayAnnotations(s.page)
	for i, a := range list {
		if s.editor != nil && s.editor.Index == i {
			continue
		}
		switch a.Kind {
		case domain.KindBlur:
			liveBlur(background, projector.R(a.X, a.Y, a.Width, a.Height).Pixels(), s.opts.LiveBlurRadius)
		case domain.KindErase:
			r := projector.R(a.X, a.Y, a.Width, a.Height).Pixels().Intersect(background.Bounds())
			draw.Draw(background, r, image.NewUniform(s.opts.EraseColor), image.Point{}, draw.Src)
		case domain.KindText:
			s.drawText(background, a)
		}
	}
	if r, ok := s.DragRect(); ok {
		px := r.Pixels()
		fillRect(foreground, px.Min.X, px.Min.Y, px.Max.X-1, px.Max.Y-1, dragFill)
		strokeRect(foreground, px.Min.X, px.Min.Y, px.Max.X-1, px.Max.Y-1, dragStroke)
	}
	if s.selected >= 0 && s.selected < len(list) && s.editor == nil {
		a := list[s.selected]
		drawHandles(foreground, projector.R(a.X, a.Y, a.Width, a.Height).Pixels())
	}
	if ed := s.editor; ed != nil {
		px := ed.Rect.Pixels()
		strokeRect(foreground, px.Min.X, px.Min.Y, px.Max.X-1, px.Max.Y-1, editorBox)
		a := s.style
		a.Text = ed.Text
		a.X, a.Y, a.Width, a.Height = ed.Rect.X, ed.Rect.Y, ed.Rect.W, ed.Rect.H
		s.drawText(foreground, a)
	}
	return background, foreground
}

// Flatten returns the foreground composited over the background.
func (s *Surface) Flatten() *image.RGBA {
	bg, fg := s.Compose()
	if bg == nil {
		return nil
	}
	draw.Draw(bg, bg.Bounds(), fg, image.Point{}, draw.Over)
	return bg
}

// liveBlur approximates a gaussian blur cheaply: the region is shrunk by
// radius, blurred and stretched back.
func liveBlur(dst *image.RGBA, r image.Rectangle, radius int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	w, h := r.Dx(), r.Dy()
	small := imaging.Resize(imaging.Crop(dst, r), max(1, w/radius), max(1, h/radius), imaging.Box)
	small = imaging.Blur(small, 1.5)
	up := imaging.Resize(small, w, h, imaging.Linear)
	draw.Draw(dst, r, up, image.Point{}, draw.Src)
}

// drawText lays a text mark out with the display font size and paints it
// clipped to its box.
func (s *Surface) drawText(dst *image.RGBA, a domain.DisplayAnnotation) {
	if a.Text == "" {
		return
	}
	font, err := s.opts.Fonts.Resolve(textlayout.SpecFor(a.FontFamily, a.FontWeight, a.FontStyle, a.FontSize))
	if err != nil {
		s.log.Warn("text font unavailable", slog.String("family", a.FontFamily), slog.Any("err", err))
		return
	}
	box := projector.R(a.X, a.Y, a.Width, a.Height).Pixels().Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	clip, ok := dst.SubImage(box).(*image.RGBA)
	if !ok {
		return
	}
	col := domain.ParseColor(a.Color, color.RGBA{A: 0xff})
	block := textlayout.LayoutBlock(font, a.Text, a.Width)
	pageH := float64(dst.Bounds().Dy())
	cmds := make([]document.Command, 0, len(block.Lines))
	for i, line := range block.Lines {
		cmds = append(cmds, document.Text(a.X, pageH-(a.Y+block.BaselineAt(i)), line, font, col))
	}
	paintClipped(clip, dst.Bounds(), cmds)
}

// paintClipped paints commands expressed against full onto a sub-image of it.
func paintClipped(clip *image.RGBA, full image.Rectangle, cmds []document.Command) {
	// Paint measures Y from the bottom of its destination; shift the
	// commands so the clip's bottom edge becomes the origin.
	dy := float64(full.Max.Y - clip.Bounds().Max.Y)
	dx := float64(clip.Bounds().Min.X - full.Min.X)
	for i := range cmds {
		cmds[i].X -= dx
		cmds[i].Y -= dy
	}
	view := &image.RGBA{
		Pix:    clip.Pix,
		Stride: clip.Stride,
		Rect:   image.Rect(0, 0, clip.Bounds().Dx(), clip.Bounds().Dy()),
	}
	document.Paint(view, cmds)
}

func drawHandles(img *image.RGBA, r image.Rectangle) {
	strokeRect(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, selectColor)
	for _, p := range []image.Point{r.Min, {X: r.Max.X - 1, Y: r.Min.Y}, {X: r.Min.X, Y: r.Max.Y - 1}, r.Max.Sub(image.Pt(1, 1))} {
		fillRect(img, p.X-handleSize/2, p.Y-handleSize/2, p.X+handleSize/2, p.Y+handleSize/2, selectColor)
	}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	b := img.Bounds()
	for x := x0; x <= x1; x++ {
		setClipped(img, b, x, y0, col)
		setClipped(img, b, x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		setClipped(img, b, x0, y, col)
		setClipped(img, b, x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func setClipped(img *image.RGBA, b image.Rectangle, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(b) {
		img.SetRGBA(x, y, col)
	}
}
