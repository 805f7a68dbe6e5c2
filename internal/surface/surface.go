/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface is the interactive editing mode. It owns every piece of
// transient UI state (active tool, drag in progress, open text editor,
// selection) and talks to the store only at commit boundaries, always in
// display pixels of the bitmap currently shown.
package surface

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"redactor/internal/document"
	"redactor/internal/domain"
	applog "redactor/internal/log"
	"redactor/internal/projector"
	"redactor/internal/store"
	"redactor/internal/textlayout"
)

// Tool is the active pointer tool.
type Tool string

const (
	ToolView  Tool = "view"
	ToolBlur  Tool = "blur"
	ToolErase Tool = "erase"
	ToolText  Tool = "text"
)

// ParseTool accepts tool names including the kind aliases understood by domain.ParseKind.
func ParseTool(s string) (Tool, bool) {
	if strings.EqualFold(strings.TrimSpace(s), string(ToolView)) {
		return ToolView, true
	}
	k, ok := domain.ParseKind(s)
	if !ok {
		return "", false
	}
	return Tool(k), true
}

// Key is a keyboard key relevant to text editing.
type Key int

const (
	KeyEnter Key = iota
	KeyEscape
	KeyBackspace
)

// Options tunes rendering and defaults. Zero values select defaults.
type Options struct {
	// LiveBlurRadius is the downscale factor of the on-screen blur approximation.
	LiveBlurRadius int
	EraseColor     color.Color
	Fonts          textlayout.Provider
	FontSizePx     float64
	FontFamily     string
	TextColor      string
}

// Editor describes the open text editor.
type Editor struct {
	// Index is the annotation being edited, or -1 for a new one.
	Index int
	Rect  projector.Rect
	Text  string
}

// Surface hosts one page at a time.
type Surface struct {
	st   *store.Store
	opts Options
	log  *slog.Logger

	page   int
	bitmap *image.RGBA
	native document.Size

	tool     Tool
	dragging bool
	start    projector.Pt
	end      projector.Pt

	editor   *Editor
	style    domain.DisplayAnnotation
	selected int
}

func New(st *store.Store, opts Options) *Surface {
	if opts.LiveBlurRadius <= 0 {
		opts.LiveBlurRadius = 4
	}
	if opts.EraseColor == nil {
		opts.EraseColor = color.White
	}
	if opts.Fonts == nil {
		opts.Fonts = textlayout.FallbackProvider{}
	}
	if opts.FontSizePx <= 0 {
		opts.FontSizePx = domain.DefaultFontSizePx
	}
	if opts.FontFamily == "" {
		opts.FontFamily = domain.DefaultFontFamily
	}
	if opts.TextColor == "" {
		opts.TextColor = domain.DefaultTextColor
	}
	return &Surface{st: st, opts: opts, tool: ToolView, selected: -1, log: applog.WithComponent("surface")}
}

// ShowPage displays bitmap as the given page and records the page's
// dimensions. An open text editor on the previous page is committed first.
func (s *Surface) ShowPage(page int, bitmap image.Image, native document.Size) {
	if s.editor != nil {
		s.CommitText()
	}
	s.dragging = false
	if page != s.page {
		s.selected = -1
	}
	s.page = page
	s.bitmap = document.Scale(bitmap, 0)
	s.native = native
	b := s.bitmap.Bounds()
	s.st.SetPageDimensions(page, s.Dims())
	s.log.Debug("page shown", slog.Int("page", page), slog.Int("w", b.Dx()), slog.Int("h", b.Dy()))
}

func (s *Surface) Page() int { return s.page }

// Dims returns the dimension record of the shown page.
func (s *Surface) Dims() domain.PageDims {
	if s.bitmap == nil {
		return domain.PageDims{}
	}
	b := s.bitmap.Bounds()
	return domain.PageDims{
		DisplayWidth:  float64(b.Dx()),
		DisplayHeight: float64(b.Dy()),
		NativeWidth:   s.native.Width,
		NativeHeight:  s.native.Height,
	}
}

func (s *Surface) Tool() Tool { return s.tool }

// SetTool switches tools. A drag in progress is cancelled and an open text
// editor is abandoned without committing.
func (s *Surface) SetTool(t Tool) {
	if t == s.tool {
		return
	}
	s.dragging = false
	s.editor = nil
	s.tool = t
}

// Selected returns the selected annotation index, or -1.
func (s *Surface) Selected() int { return s.selected }

func (s *Surface) Select(index int) {
	if index < 0 || index >= len(s.st.Annotations(s.page)) {
		index = -1
	}
	s.selected = index
}

// Dragging reports whether a rectangle capture is in progress.
func (s *Surface) Dragging() bool { return s.dragging }

// DragRect returns the live selection rectangle.
func (s *Surface) DragRect() (projector.Rect, bool) {
	if !s.dragging {
		return projector.Rect{}, false
	}
	return projector.NormalizeRect(s.start.X, s.start.Y, s.end.X, s.end.Y), true
}

// Editor returns the open text editor, if any.
func (s *Surface) Editor() (Editor, bool) {
	if s.editor == nil {
		return Editor{}, false
	}
	return *s.editor, true
}

// PointerDown starts a rectangle capture for region tools, opens a text
// editor for the text tool and selects for the view tool.
func (s *Surface) PointerDown(x, y float64) {
	if s.bitmap == nil {
		return
	}
	if s.editor != nil {
		if s.editor.Rect.Contains(projector.Pt{X: x, Y: y}) {
			return
		}
		s.CommitText()
	}
	hit := s.HitTest(x, y)
	switch s.tool {
	case ToolBlur, ToolErase:
		s.dragging = true
		s.start = projector.Pt{X: x, Y: y}
		s.end = s.start
	case ToolText:
		if hit >= 0 && s.st.Annotations(s.page)[hit].Kind == domain.KindText {
			s.OpenText(hit)
			return
		}
		s.openNewText(x, y)
	default:
		s.selected = hit
	}
}

// PointerMove updates the live end point of a capture.
func (s *Surface) PointerMove(x, y float64) {
	if s.dragging {
		s.end = projector.Pt{X: x, Y: y}
	}
}

// PointerUp finalizes a capture. The store discards rectangles below its
// minimum size. It reports whether an annotation was added.
func (s *Surface) PointerUp(x, y float64) bool {
	if !s.dragging {
		return false
	}
	s.end = projector.Pt{X: x, Y: y}
	s.dragging = false
	r := projector.NormalizeRect(s.start.X, s.start.Y, s.end.X, s.end.Y)
	ok := s.st.AddAnnotation(s.page, domain.DisplayAnnotation{
		Kind: domain.Kind(s.tool), X: r.X, Y: r.Y, Width: r.W, Height: r.H,
	}, s.Dims())
	if ok {
		s.selected = len(s.st.Annotations(s.page)) - 1
	}
	return ok
}

func (s *Surface) openNewText(x, y float64) {
	d := s.Dims()
	w := math.Min(200, d.DisplayWidth)
	h := math.Min(2*s.opts.FontSizePx, d.DisplayHeight)
	x = math.Max(0, math.Min(x, d.DisplayWidth-w))
	y = math.Max(0, math.Min(y, d.DisplayHeight-h))
	s.style = domain.DisplayAnnotation{
		Kind:       domain.KindText,
		FontSize:   s.opts.FontSizePx,
		FontFamily: s.opts.FontFamily,
		FontWeight: domain.DefaultFontWeight,
		FontStyle:  domain.DefaultFontStyle,
		Color:      s.opts.TextColor,
	}
	s.editor = &Editor{Index: -1, Rect: projector.R(x, y, w, h)}
	s.selected = -1
}

// OpenText opens the editor on an existing text annotation.
func (s *Surface) OpenText(index int) bool {
	list, ok := s.st.DisplayAnnotations(s.page)
	if !ok || index < 0 || index >= len(list) || list[index].Kind != domain.KindText {
		return false
	}
	a := list[index]
	s.dragging = false
	s.style = a
	s.editor = &Editor{Index: index, Rect: projector.R(a.X, a.Y, a.Width, a.Height), Text: a.Text}
	s.selected = index
	return true
}

// TypeText appends input to the open editor.
func (s *Surface) TypeText(in string) {
	if s.editor != nil {
		s.editor.Text += in
	}
}

// SetEditorText replaces the editor buffer, e.g. from a native input widget.
func (s *Surface) SetEditorText(text string) {
	if s.editor != nil {
		s.editor.Text = text
	}
}

// Key handles editor keys: Enter commits, Shift+Enter inserts a newline,
// Escape discards and Backspace deletes the last rune.
func (s *Surface) Key(k Key, shift bool) {
	if s.editor == nil {
		return
	}
	switch k {
	case KeyEnter:
		if shift {
			s.editor.Text += "\n"
			return
		}
		s.CommitText()
	case KeyEscape:
		s.CancelText()
	case KeyBackspace:
		r := []rune(s.editor.Text)
		if len(r) > 0 {
			s.editor.Text = string(r[:len(r)-1])
		}
	}
}

// CommitText stores the editor content and closes the editor. Whitespace-only
// text is discarded; an existing annotation is then left unchanged.
func (s *Surface) CommitText() bool {
	ed := s.editor
	if ed == nil {
		return false
	}
	s.editor = nil
	if strings.TrimSpace(ed.Text) == "" {
		return false
	}
	a := s.style
	a.Kind = domain.KindText
	a.Text = ed.Text
	a.X, a.Y, a.Width, a.Height = ed.Rect.X, ed.Rect.Y, ed.Rect.W, ed.Rect.H
	if ed.Index < 0 {
		ok := s.st.AddAnnotation(s.page, a, s.Dims())
		if ok {
			s.selected = len(s.st.Annotations(s.page)) - 1
		}
		return ok
	}
	return s.st.UpdateAnnotation(s.page, ed.Index, a, s.Dims())
}

// CancelText closes the editor without storing anything.
func (s *Surface) CancelText() { s.editor = nil }

// Blur is focus loss of the editor; it commits like Enter.
func (s *Surface) Blur() bool { return s.CommitText() }

// MoveResize applies a resize-stop from the drag UI as one history step.
func (s *Surface) MoveResize(index int, r projector.Rect) bool {
	list, ok := s.st.DisplayAnnotations(s.page)
	if !ok || index < 0 || index >= len(list) {
		return false
	}
	a := list[index]
	a.X, a.Y, a.Width, a.Height = r.X, r.Y, r.W, r.H
	if s.editor != nil && s.editor.Index == index {
		s.editor.Rect = r
	}
	return s.st.UpdateAnnotation(s.page, index, a, s.Dims())
}

// Delete removes an annotation of the shown page.
func (s *Surface) Delete(index int) bool {
	if !s.st.RemoveAnnotation(s.page, index) {
		return false
	}
	switch {
	case s.selected == index:
		s.selected = -1
	case s.selected > index:
		s.selected--
	}
	if s.editor != nil && s.editor.Index >= 0 {
		s.editor = nil
	}
	return true
}

// HitTest returns the topmost annotation under a display point, or -1.
func (s *Surface) HitTest(x, y float64) int {
	list, ok := s.st.DisplayAnnotations(s.page)
	if !ok {
		return -1
	}
	p := projector.Pt{X: x, Y: y}
	for i := len(list) - 1; i >= 0; i-- {
		a := list[i]
		if projector.R(a.X, a.Y, a.Width, a.Height).Contains(p) {
			return i
		}
	}
	return -1
}

// Undo reverts the last store mutation, dropping any transient edit state.
func (s *Surface) Undo() bool { return s.afterHistory(s.st.Undo()) }

// Redo reapplies the last undone mutation.
func (s *Surface) Redo() bool { return s.afterHistory(s.st.Redo()) }

func (s *Surface) afterHistory(changed bool) bool {
	if !changed {
		return false
	}
	s.dragging = false
	s.editor = nil
	if s.selected >= len(s.st.Annotations(s.page)) {
		s.selected = -1
	}
	return true
}
