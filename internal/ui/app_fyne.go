//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	rapp "redactor/internal/app"
	"redactor/internal/config"
	"redactor/internal/crash"
	"redactor/internal/export"
	applog "redactor/internal/log"
	"redactor/internal/surface"
	"redactor/internal/version"
)

// Run starts the Fyne-based desktop editor. docPath may be empty, in which
// case a file dialog is shown.
func Run(docPath string, cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cc := &crash.Context{}
	defer crash.Recover(cc)

	fyneApp := app.NewWithID("io.redactor.editor")
	w := fyneApp.NewWindow("Redactor")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1100), 640)
	winH := max(prefs.IntWithFallback("window.height", 900), 480)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	ed := newEditor(w, cfg, l)
	cc.Session = ed.sessionJSON
	ed.onOpen = func(path string) { cc.Document = path }

	w.SetContent(ed.build())
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	if docPath != "" {
		ed.open(docPath)
	} else {
		ed.showOpenDialog()
	}
	w.ShowAndRun()
	return nil
}

// editor binds one workspace to the window.
type editor struct {
	w   fyne.Window
	cfg config.AppConfig
	log *slog.Logger

	mu     sync.Mutex
	ws     *rapp.Workspace
	page   int
	onOpen func(string)

	canvas   *PageCanvas
	viewport *viewportLayout
	resizeMu sync.Mutex
	pending  *time.Timer
	entry    *editorEntry
	status   *widget.Label
	pageLbl  *widget.Label
	tools    *widget.RadioGroup
	undoBtn  *widget.Button
	redoBtn  *widget.Button
}

func newEditor(w fyne.Window, cfg config.AppConfig, l *slog.Logger) *editor {
	return &editor{w: w, cfg: cfg, log: l, page: 1}
}

var toolNames = []string{"View", "Blur", "Erase", "Text"}

func (e *editor) build() fyne.CanvasObject {
	e.status = widget.NewLabel("Open a document to start")
	e.pageLbl = widget.NewLabel("-")
	e.canvas = NewPageCanvas()
	e.canvas.surf = e.surface
	e.canvas.OnChanged = e.refresh
	e.viewport = &viewportLayout{onResize: e.viewportResized}
	e.entry = newEditorEntry()
	e.entry.Hide()
	e.entry.OnChanged = func(s string) {
		if sf := e.surface(); sf != nil {
			sf.SetEditorText(s)
		}
	}
	e.entry.onCommit = func() { e.withSurface(func(sf *surface.Surface) { sf.CommitText() }) }
	e.entry.onCancel = func() { e.withSurface(func(sf *surface.Surface) { sf.CancelText() }) }

	e.tools = widget.NewRadioGroup(toolNames, func(name string) {
		t, ok := surface.ParseTool(name)
		if !ok {
			return
		}
		e.withSurface(func(sf *surface.Surface) { sf.SetTool(t) })
	})
	e.tools.Horizontal = true
	e.tools.Required = true
	e.tools.SetSelected("View")

	e.undoBtn = widget.NewButton("Undo", func() { e.withSurface(func(sf *surface.Surface) { sf.Undo() }) })
	e.redoBtn = widget.NewButton("Redo", func() { e.withSurface(func(sf *surface.Surface) { sf.Redo() }) })
	clearBtn := widget.NewButton("Clear", func() {
		dialog.ShowConfirm("Clear", "Remove all marks on all pages? You can Undo this action.", func(ok bool) {
			if ok {
				e.withSurface(func(*surface.Surface) { e.ws.Store().ClearAll() })
			}
		}, e.w)
	})
	prev := widget.NewButton("<", func() { e.gotoPage(e.page - 1) })
	next := widget.NewButton(">", func() { e.gotoPage(e.page + 1) })
	openBtn := widget.NewButton("Open…", e.showOpenDialog)
	saveBtn := widget.NewButton("Save", e.save)

	e.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		e.withSurface(func(sf *surface.Surface) { sf.Undo() })
	})
	e.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		e.withSurface(func(sf *surface.Surface) { sf.Redo() })
	})
	e.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		e.save()
	})
	e.w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		switch k.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			e.withSurface(func(sf *surface.Surface) { sf.Delete(sf.Selected()) })
		case fyne.KeyPageDown:
			e.gotoPage(e.page + 1)
		case fyne.KeyPageUp:
			e.gotoPage(e.page - 1)
		}
	})

	toolbar := container.NewHBox(openBtn, saveBtn, widget.NewSeparator(), e.tools, widget.NewSeparator(),
		e.undoBtn, e.redoBtn, clearBtn, widget.NewSeparator(), prev, e.pageLbl, next)
	stage := container.NewWithoutLayout(e.canvas, e.entry)
	e.canvas.stage = stage
	view := container.New(e.viewport, container.NewScroll(stage))
	return container.NewBorder(toolbar, e.status, nil, nil, view)
}

// viewportResized re-renders the page at the new width once the user stops
// resizing. Stored marks are unaffected; only the page dimensions change.
func (e *editor) viewportResized(fyne.Size) {
	w := e.viewport.Width()
	if e.canvas.renderW == 0 || w <= 0 || absInt(w-e.canvas.renderW) < 8 {
		return
	}
	e.resizeMu.Lock()
	defer e.resizeMu.Unlock()
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = time.AfterFunc(200*time.Millisecond, func() { fyne.Do(e.rerender) })
}

// viewportLayout fills its area with the single child and reports width changes.
type viewportLayout struct {
	onResize func(fyne.Size)
	last     fyne.Size
}

func (l *viewportLayout) Layout(objs []fyne.CanvasObject, size fyne.Size) {
	for _, o := range objs {
		o.Move(fyne.NewPos(0, 0))
		o.Resize(size)
	}
	if size.Width != l.last.Width {
		l.last = size
		if l.onResize != nil {
			l.onResize(size)
		}
	}
}

func (l *viewportLayout) MinSize([]fyne.CanvasObject) fyne.Size { return fyne.NewSize(320, 240) }

// Width is the page render width: the viewport minus room for a scroll bar.
func (l *viewportLayout) Width() int { return int(l.last.Width) - 16 }

func (e *editor) surface() *surface.Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ws == nil {
		return nil
	}
	return e.ws.Surface()
}

// withSurface runs fn against the open document and redraws.
func (e *editor) withSurface(fn func(*surface.Surface)) {
	sf := e.surface()
	if sf == nil {
		return
	}
	fn(sf)
	e.refresh()
}

func (e *editor) showOpenDialog() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.w)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		_ = r.Close()
		e.open(path)
	}, e.w)
	d.Show()
}

func (e *editor) open(path string) {
	ws, err := rapp.Open(e.cfg, path, rapp.OpenOptions{})
	if err != nil {
		e.log.Error("open failed", slog.String("doc", path), slog.Any("err", err))
		dialog.ShowError(err, e.w)
		return
	}
	e.mu.Lock()
	e.ws = ws
	e.page = 1
	e.mu.Unlock()
	if e.onOpen != nil {
		e.onOpen(path)
	}
	e.w.SetTitle(fmt.Sprintf("Redactor - %s", filepath.Base(path)))
	if t, ok := surface.ParseTool(e.tools.Selected); ok {
		ws.Surface().SetTool(t)
	}
	e.rerender()
}

func (e *editor) gotoPage(page int) {
	e.mu.Lock()
	ws := e.ws
	if ws == nil || page < 1 || page > ws.PageCount() {
		e.mu.Unlock()
		return
	}
	e.page = page
	e.mu.Unlock()
	e.rerender()
}

// rerender renders the current page at the canvas width off the UI thread
// and installs it on the surface from the UI thread.
func (e *editor) rerender() {
	e.mu.Lock()
	ws, page := e.ws, e.page
	e.mu.Unlock()
	if ws == nil {
		return
	}
	width := e.viewport.Width()
	e.status.SetText(fmt.Sprintf("Rendering page %d…", page))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		err := ws.ShowPage(ctx, page, width)
		fyne.Do(func() {
			if err != nil {
				e.log.Error("render failed", slog.Int("page", page), slog.Any("err", err))
				e.status.SetText(err.Error())
				return
			}
			e.refresh()
		})
	}()
}

// refresh recomposes the page and syncs the widgets with the surface state.
func (e *editor) refresh() {
	sf := e.surface()
	if sf == nil {
		return
	}
	bg, fg := sf.Compose()
	e.canvas.SetLayers(bg, fg)

	if ed, ok := sf.Editor(); ok {
		e.entry.Move(fyne.NewPos(float32(ed.Rect.X), float32(ed.Rect.Y)))
		e.entry.Resize(fyne.NewSize(float32(math.Max(ed.Rect.W, 40)), float32(math.Max(ed.Rect.H, 28))))
		if !e.entry.Visible() {
			e.entry.SetText(ed.Text)
			e.entry.active = true
			e.entry.Show()
			e.w.Canvas().Focus(e.entry)
		}
	} else if e.entry.Visible() {
		e.entry.active = false
		e.entry.Hide()
		e.w.Canvas().Unfocus()
	}

	st := e.ws.Store()
	if st.CanUndo() {
		e.undoBtn.Enable()
	} else {
		e.undoBtn.Disable()
	}
	if st.CanRedo() {
		e.redoBtn.Enable()
	} else {
		e.redoBtn.Disable()
	}
	e.pageLbl.SetText(fmt.Sprintf("%d / %d", sf.Page(), e.ws.PageCount()))
	e.status.SetText(fmt.Sprintf("%d marks on this page, %d total", len(st.Annotations(sf.Page())), st.Len()))
}

func (e *editor) sessionJSON() ([]byte, error) {
	e.mu.Lock()
	ws := e.ws
	e.mu.Unlock()
	if ws == nil {
		return nil, nil
	}
	return ws.SessionJSON()
}

// save writes the session file and exports the document. A fatal failure
// is reported once; skipped marks are listed afterwards.
func (e *editor) save() {
	e.mu.Lock()
	ws := e.ws
	e.mu.Unlock()
	if ws == nil {
		dialog.ShowInformation("Save", "No document open.", e.w)
		return
	}
	if sf := ws.Surface(); sf != nil {
		sf.CommitText()
	}
	e.status.SetText("Exporting…")
	go func() {
		err := ws.SaveSession()
		var skipped []string
		if err == nil {
			var rep export.Report
			rep, err = ws.Export(context.Background())
			for _, s := range rep.Skipped {
				skipped = append(skipped, s.String())
			}
		}
		fyne.Do(func() {
			if err != nil {
				e.log.Error("save failed", slog.Any("err", err))
				e.status.SetText("Save failed")
				dialog.ShowError(err, e.w)
				return
			}
			msg := "Saved to " + ws.OutputPath()
			if len(skipped) > 0 {
				msg += fmt.Sprintf("\n\n%d marks could not be applied:\n%s", len(skipped), strings.Join(skipped, "\n"))
			}
			e.status.SetText("Saved")
			dialog.ShowInformation("Save", msg, e.w)
		})
	}()
}

// PageCanvas shows the composed page layers and turns mouse input into
// surface pointer events. One canvas unit is one display pixel.
type PageCanvas struct {
	widget.BaseWidget

	bg, fg *canvas.Image
	size   fyne.Size
	stage  *fyne.Container

	surf    func() *surface.Surface
	last    fyne.Position
	renderW int

	OnChanged func()
}

func NewPageCanvas() *PageCanvas {
	pc := &PageCanvas{}
	pc.bg = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	pc.fg = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	for _, img := range []*canvas.Image{pc.bg, pc.fg} {
		img.FillMode = canvas.ImageFillStretch
		img.ScaleMode = canvas.ImageScalePixels
	}
	pc.ExtendBaseWidget(pc)
	return pc
}

// SetLayers replaces both layers; the widget takes the bitmap size.
func (p *PageCanvas) SetLayers(bg, fg *image.RGBA) {
	if bg == nil {
		return
	}
	p.bg.Image, p.fg.Image = bg, fg
	b := bg.Bounds()
	p.size = fyne.NewSize(float32(b.Dx()), float32(b.Dy()))
	p.renderW = b.Dx()
	p.Resize(p.size)
	if p.stage != nil {
		p.stage.Resize(p.size)
	}
	p.Refresh()
}

func (p *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &pageCanvasRenderer{pc: p, objects: []fyne.CanvasObject{p.bg, p.fg}}
}

func (p *PageCanvas) MinSize() fyne.Size { return p.size }

func (p *PageCanvas) pointer(fn func(sf *surface.Surface, x, y float64), pos fyne.Position) {
	if p.surf == nil {
		return
	}
	sf := p.surf()
	if sf == nil {
		return
	}
	p.last = pos
	fn(sf, float64(pos.X), float64(pos.Y))
	if p.OnChanged != nil {
		p.OnChanged()
	}
}

func (p *PageCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p.pointer(func(sf *surface.Surface, x, y float64) { sf.PointerDown(x, y) }, ev.Position)
}

func (p *PageCanvas) MouseUp(ev *desktop.MouseEvent) {
	p.pointer(func(sf *surface.Surface, x, y float64) { sf.PointerUp(x, y) }, ev.Position)
}

func (p *PageCanvas) Dragged(ev *fyne.DragEvent) {
	p.pointer(func(sf *surface.Surface, x, y float64) { sf.PointerMove(x, y) }, ev.Position)
}

func (p *PageCanvas) DragEnd() {
	p.pointer(func(sf *surface.Surface, x, y float64) { sf.PointerUp(x, y) }, p.last)
}

type pageCanvasRenderer struct {
	pc      *PageCanvas
	objects []fyne.CanvasObject
}

func (r *pageCanvasRenderer) Destroy()                     {}
func (r *pageCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *pageCanvasRenderer) MinSize() fyne.Size           { return r.pc.size }
func (r *pageCanvasRenderer) Refresh() {
	r.Layout(r.pc.Size())
	canvas.Refresh(r.pc.bg)
	canvas.Refresh(r.pc.fg)
}

func (r *pageCanvasRenderer) Layout(fyne.Size) {
	for _, o := range r.objects {
		o.Move(fyne.NewPos(0, 0))
		o.Resize(r.pc.size)
	}
}

// editorEntry is the multi-line text input placed over a text mark.
// Enter commits, Shift+Enter breaks the line, Escape discards and losing
// focus commits.
type editorEntry struct {
	widget.Entry
	shift    bool
	active   bool
	onCommit func()
	onCancel func()
}

func newEditorEntry() *editorEntry {
	e := &editorEntry{}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapWord
	e.ExtendBaseWidget(e)
	return e
}

func (e *editorEntry) KeyDown(k *fyne.KeyEvent) {
	if k.Name == desktop.KeyShiftLeft || k.Name == desktop.KeyShiftRight {
		e.shift = true
	}
	e.Entry.KeyDown(k)
}

func (e *editorEntry) KeyUp(k *fyne.KeyEvent) {
	if k.Name == desktop.KeyShiftLeft || k.Name == desktop.KeyShiftRight {
		e.shift = false
	}
	e.Entry.KeyUp(k)
}

func (e *editorEntry) TypedKey(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		if !e.shift {
			e.finish(e.onCommit)
			return
		}
	case fyne.KeyEscape:
		e.finish(e.onCancel)
		return
	}
	e.Entry.TypedKey(k)
}

func (e *editorEntry) FocusLost() {
	e.Entry.FocusLost()
	e.finish(e.onCommit)
}

func (e *editorEntry) finish(fn func()) {
	if !e.active {
		return
	}
	e.active = false
	if fn != nil {
		fn()
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
