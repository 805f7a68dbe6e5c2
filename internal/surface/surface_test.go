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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redactor/internal/document"
	"redactor/internal/domain"
	"redactor/internal/projector"
	"redactor/internal/store"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/2+y/2)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return img
}

func newSurface(t *testing.T) (*Surface, *store.Store) {
	t.Helper()
	st := store.New(store.Options{})
	s := New(st, Options{})
	s.ShowPage(1, checker(600, 776), document.Size{Width: 408, Height: 527.68})
	return s, st
}

func TestShowPageRecordsDims(t *testing.T) {
	s, st := newSurface(t)
	d, ok := st.PageDimensions(1)
	require.True(t, ok)
	assert.Equal(t, domain.PageDims{DisplayWidth: 600, DisplayHeight: 776, NativeWidth: 408, NativeHeight: 527.68}, d)
	assert.Equal(t, 1, s.Page())
}

func TestDragAddsRegion(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolBlur)
	s.PointerDown(180, 300)
	s.PointerMove(100, 200)
	r, ok := s.DragRect()
	require.True(t, ok)
	assert.Equal(t, projector.R(100, 200, 80, 100), r)
	require.True(t, s.PointerUp(60, 200))

	got := st.Annotations(1)
	require.Len(t, got, 1)
	assert.Equal(t, domain.KindBlur, got[0].Kind)
	assert.InDelta(t, 0.1, got[0].X, 1e-9)
	assert.InDelta(t, 0.2, got[0].Width, 1e-9)
	assert.False(t, s.Dragging())
	assert.Equal(t, 0, s.Selected())
}

func TestTinyDragIsDiscarded(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolErase)
	s.PointerDown(10, 10)
	assert.False(t, s.PointerUp(12, 40))
	assert.Equal(t, 0, st.Len())
}

func TestSetToolCancelsDrag(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolBlur)
	s.PointerDown(10, 10)
	s.SetTool(ToolErase)
	assert.False(t, s.Dragging())
	assert.False(t, s.PointerUp(200, 200))
	assert.Equal(t, 0, st.Len())
}

func TestTextEditorCommitOnEnter(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolText)
	s.PointerDown(50, 60)
	ed, ok := s.Editor()
	require.True(t, ok)
	assert.Equal(t, projector.R(50, 60, 200, 32), ed.Rect)

	s.TypeText("Hello")
	s.Key(KeyEnter, true)
	s.TypeText("world")
	s.Key(KeyEnter, false)

	_, open := s.Editor()
	assert.False(t, open)
	got := st.Annotations(1)
	require.Len(t, got, 1)
	assert.Equal(t, "Hello\nworld", got[0].Text)
	assert.InDelta(t, 16.0/776, got[0].FontSizeFraction, 1e-12)
	assert.Equal(t, "Go", got[0].FontFamily)
}

func TestTextEditorClampsToPage(t *testing.T) {
	s, _ := newSurface(t)
	s.SetTool(ToolText)
	s.PointerDown(590, 770)
	ed, ok := s.Editor()
	require.True(t, ok)
	assert.Equal(t, projector.R(400, 744, 200, 32), ed.Rect)
}

func TestTextEditorEscapeAndBlank(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolText)
	s.PointerDown(50, 60)
	s.TypeText("discard me")
	s.Key(KeyEscape, false)
	assert.Equal(t, 0, st.Len())

	s.PointerDown(50, 60)
	s.TypeText("   ")
	assert.False(t, s.Blur())
	assert.Equal(t, 0, st.Len())
}

func TestEditExistingText(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolText)
	s.PointerDown(50, 60)
	s.TypeText("draft")
	require.True(t, s.CommitText())

	s.PointerDown(60, 70)
	ed, ok := s.Editor()
	require.True(t, ok)
	assert.Equal(t, 0, ed.Index)
	assert.Equal(t, "draft", ed.Text)
	s.Key(KeyBackspace, false)
	s.TypeText("t!")
	require.True(t, s.CommitText())

	got := st.Annotations(1)
	require.Len(t, got, 1)
	assert.Equal(t, "draft!", got[0].Text)

	// clearing an existing annotation's text is a discard
	require.True(t, s.OpenText(0))
	for range "draft!" {
		s.Key(KeyBackspace, false)
	}
	assert.False(t, s.CommitText())
	assert.Equal(t, "draft!", st.Annotations(1)[0].Text)
}

func TestMoveResizeAndDelete(t *testing.T) {
	s, st := newSurface(t)
	s.SetTool(ToolErase)
	s.PointerDown(0, 0)
	require.True(t, s.PointerUp(60, 80))

	require.True(t, s.MoveResize(0, projector.R(300, 388, 120, 155.2)))
	a := st.Annotations(1)[0]
	assert.InDelta(t, 0.5, a.X, 1e-9)
	assert.InDelta(t, 0.5, a.Y, 1e-9)
	assert.InDelta(t, 0.2, a.Width, 1e-9)

	assert.Equal(t, 0, s.HitTest(310, 400))
	assert.Equal(t, -1, s.HitTest(10, 10))

	require.True(t, s.Undo())
	assert.InDelta(t, 0, st.Annotations(1)[0].X, 1e-9)

	require.True(t, s.Delete(0))
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, -1, s.Selected())
}

func TestComposeErase(t *testing.T) {
	s, _ := newSurface(t)
	s.SetTool(ToolErase)
	s.PointerDown(10, 10)
	require.True(t, s.PointerUp(110, 110))

	bg, fg := s.Compose()
	require.NotNil(t, bg)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, bg.RGBAAt(50, 50))
	// outside the mark the checker survives
	assert.Equal(t, color.RGBA{A: 255}, bg.RGBAAt(200, 200))
	// selection handles on the foreground
	assert.Equal(t, selectColor, fg.RGBAAt(10, 10))
	assert.Equal(t, uint8(0), fg.RGBAAt(300, 300).A)
}

func TestComposeBlurSmoothsRegion(t *testing.T) {
	s, _ := newSurface(t)
	s.SetTool(ToolBlur)
	s.PointerDown(100, 100)
	require.True(t, s.PointerUp(300, 300))
	s.Select(-1)

	bg := s.Flatten()
	require.NotNil(t, bg)
	grey := 0
	for y := 150; y < 250; y++ {
		for x := 150; x < 250; x++ {
			if r := bg.RGBAAt(x, y).R; r > 40 && r < 215 {
				grey++
			}
		}
	}
	assert.Greater(t, grey, 5000)
	assert.Equal(t, color.RGBA{A: 255}, bg.RGBAAt(500, 500))
}

func TestComposeDrawsText(t *testing.T) {
	s, _ := newSurface(t)
	white := image.NewRGBA(image.Rect(0, 0, 600, 776))
	draw.Draw(white, white.Bounds(), image.White, image.Point{}, draw.Src)
	s.ShowPage(1, white, document.Size{Width: 408, Height: 527.68})
	s.SetTool(ToolText)
	s.PointerDown(20, 20)
	s.TypeText("MMMM")
	require.True(t, s.CommitText())
	s.Select(-1)

	bg, _ := s.Compose()
	dark := 0
	for y := 20; y < 52; y++ {
		for x := 20; x < 220; x++ {
			if bg.RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 20)
	for y := 60; y < 776; y++ {
		require.Equal(t, uint8(255), bg.RGBAAt(10, y).R)
	}
}

func TestComposeWithoutPage(t *testing.T) {
	s := New(store.New(store.Options{}), Options{})
	bg, fg := s.Compose()
	assert.Nil(t, bg)
	assert.Nil(t, fg)
	s.PointerDown(1, 1)
	assert.False(t, s.PointerUp(100, 100))
}

func TestParseTool(t *testing.T) {
	for in, want := range map[string]Tool{"view": ToolView, "addText": ToolText, "region-blur": ToolBlur, "erase": ToolErase} {
		got, ok := ParseTool(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseTool("lasso")
	assert.False(t, ok)
}

func TestSetEditorTextReplacesBuffer(t *testing.T) {
	s, st := newSurface(t)
	s.SetEditorText("ignored without editor")
	s.SetTool(ToolText)
	s.PointerDown(10, 10)
	s.TypeText("abc")
	s.SetEditorText("line one\nline two")
	require.True(t, s.CommitText())
	assert.Equal(t, "line one\nline two", st.Annotations(1)[0].Text)
}
