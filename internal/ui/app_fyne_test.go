//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based editor widgets. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"redactor/internal/document"
	"redactor/internal/store"
	"redactor/internal/surface"
)

func shownSurface(t *testing.T) (*surface.Surface, *store.Store) {
	t.Helper()
	st := store.New(store.Options{})
	sf := surface.New(st, surface.Options{})
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	sf.ShowPage(1, img, document.Size{Width: 600, Height: 400})
	return sf, st
}

func TestPageCanvas_SetLayersSizesWidget(t *testing.T) {
	test.NewTempApp(t)
	pc := NewPageCanvas()
	sf, _ := shownSurface(t)
	bg, fg := sf.Compose()
	pc.SetLayers(bg, fg)
	if got := pc.MinSize(); got.Width != 300 || got.Height != 200 {
		t.Fatalf("unexpected MinSize: %v", got)
	}
	if pc.renderW != 300 {
		t.Fatalf("render width not tracked: %d", pc.renderW)
	}
}

func TestPageCanvas_DragAddsMark(t *testing.T) {
	test.NewTempApp(t)
	sf, st := shownSurface(t)
	sf.SetTool(surface.ToolErase)
	changes := 0
	pc := NewPageCanvas()
	pc.surf = func() *surface.Surface { return sf }
	pc.OnChanged = func() { changes++ }

	pc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	pc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(110, 60)}})
	pc.DragEnd()
	pc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(110, 60)}, Button: desktop.MouseButtonPrimary})

	if st.Len() != 1 {
		t.Fatalf("expected one mark, got %d", st.Len())
	}
	a := st.Annotations(1)[0]
	if a.Width < 0.33 || a.Width > 0.34 || a.Height != 0.25 {
		t.Fatalf("unexpected geometry: %+v", a)
	}
	if changes < 3 {
		t.Fatalf("expected change callbacks, got %d", changes)
	}
}

func TestEditorEntry_KeysCommitAndCancel(t *testing.T) {
	test.NewTempApp(t)
	commits, cancels := 0, 0
	e := newEditorEntry()
	e.onCommit = func() { commits++ }
	e.onCancel = func() { cancels++ }

	e.active = true
	e.KeyDown(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	e.KeyUp(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	if commits != 0 {
		t.Fatalf("shift+enter must not commit")
	}
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	if commits != 1 {
		t.Fatalf("enter should commit once, got %d", commits)
	}
	// already finished: focus loss does nothing
	e.FocusLost()
	if commits != 1 {
		t.Fatalf("focus loss after commit should be ignored")
	}

	e.active = true
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyEscape})
	if cancels != 1 || commits != 1 {
		t.Fatalf("escape should cancel: commits=%d cancels=%d", commits, cancels)
	}
}

func TestViewportLayout_ReportsWidthChanges(t *testing.T) {
	var calls int
	l := &viewportLayout{onResize: func(fyne.Size) { calls++ }}
	l.Layout(nil, fyne.NewSize(800, 600))
	l.Layout(nil, fyne.NewSize(800, 500))
	l.Layout(nil, fyne.NewSize(900, 500))
	if calls != 2 {
		t.Fatalf("expected 2 width changes, got %d", calls)
	}
	if l.Width() != 884 {
		t.Fatalf("unexpected render width %d", l.Width())
	}
}
