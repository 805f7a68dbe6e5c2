/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redactor/internal/domain"
)

var letter = domain.PageDims{DisplayWidth: 300, DisplayHeight: 388, NativeWidth: 612, NativeHeight: 792}

func rect(kind domain.Kind, x, y, w, h float64) domain.DisplayAnnotation {
	return domain.DisplayAnnotation{Kind: kind, X: x, Y: y, Width: w, Height: h}
}

func TestAddStoresFractions(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 30, 40, 60, 60), letter))

	got := s.Annotations(1)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.10, got[0].X, 1e-9)
	assert.InDelta(t, 40.0/388, got[0].Y, 1e-9)
	assert.InDelta(t, 0.20, got[0].Width, 1e-9)
	assert.InDelta(t, 60.0/388, got[0].Height, 1e-9)
}

func TestAddNormalizesReverseDrag(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindErase, 90, 100, -60, -60), letter))
	got := s.Annotations(1)[0]
	assert.InDelta(t, 0.10, got.X, 1e-9)
	assert.InDelta(t, 0.20, got.Width, 1e-9)
}

func TestAddRejections(t *testing.T) {
	s := New(Options{MinSizePx: 5})
	assert.False(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 4, 50), letter), "narrow drag")
	assert.False(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 4.9), letter), "short drag")
	assert.False(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), domain.PageDims{}), "missing dims")
	assert.False(t, s.AddAnnotation(0, rect(domain.KindBlur, 10, 10, 50, 50), letter), "bad page")
	assert.False(t, s.AddAnnotation(1, rect("stamp", 10, 10, 50, 50), letter), "unknown kind")
	assert.False(t, s.AddAnnotation(1, rect(domain.KindBlur, 400, 500, 50, 50), letter), "off page")

	txt := rect(domain.KindText, 10, 10, 100, 30)
	txt.Text = " \n\t "
	assert.False(t, s.AddAnnotation(1, txt, letter), "blank text")

	assert.Zero(t, s.Len())
	assert.False(t, s.CanUndo(), "rejected input must not push history")
}

func TestAddClampsToPage(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 280, 10, 50, 50), letter))
	a := s.Annotations(1)[0]
	assert.InDelta(t, 1.0, a.X+a.Width, 1e-9)
}

func TestTextDefaultsAndFontFraction(t *testing.T) {
	s := New(Options{})
	txt := rect(domain.KindText, 10, 10, 100, 30)
	txt.Text = "hello\nworld"
	require.True(t, s.AddAnnotation(2, txt, letter))
	a := s.Annotations(2)[0]
	assert.Equal(t, "hello\nworld", a.Text)
	assert.InDelta(t, 16.0/388, a.FontSizeFraction, 1e-9)
	assert.Equal(t, domain.DefaultFontFamily, a.FontFamily)
	assert.Equal(t, domain.DefaultTextColor, a.Color)
}

func TestUndoRestoresPriorStateAndRedoReapplies(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	require.True(t, s.AddAnnotation(3, rect(domain.KindErase, 10, 10, 50, 50), letter))
	before := s.Snapshot()

	require.True(t, s.AddAnnotation(1, rect(domain.KindErase, 100, 100, 20, 20), letter))
	after := s.Snapshot()

	require.True(t, s.Undo())
	assert.True(t, before.Equal(s.Snapshot()))

	require.True(t, s.Redo())
	assert.True(t, after.Equal(s.Snapshot()))
}

func TestNewMutationClearsRedo(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())
	require.True(t, s.AddAnnotation(1, rect(domain.KindErase, 20, 20, 50, 50), letter))
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
	require.Len(t, s.Annotations(1), 1)
	assert.Equal(t, domain.KindErase, s.Annotations(1)[0].Kind)
}

func TestHistoryUnderflowIsNoop(t *testing.T) {
	s := New(Options{})
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
}

func TestClearAllAndSingleUndo(t *testing.T) {
	s := New(Options{})
	for _, page := range []int{1, 2, 3} {
		require.True(t, s.AddAnnotation(page, rect(domain.KindBlur, 10, 10, 50, 50), letter))
		require.True(t, s.AddAnnotation(page, rect(domain.KindErase, 60, 60, 50, 50), letter))
	}
	before := s.Snapshot()
	require.True(t, s.ClearAll())
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Pages())

	require.True(t, s.Undo())
	assert.Equal(t, []int{1, 2, 3}, s.Pages())
	assert.True(t, before.Equal(s.Snapshot()))
}

func TestUpdateIsOneHistoryStep(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	require.True(t, s.UpdateAnnotation(1, 0, rect(domain.KindBlur, 20, 30, 70, 80), letter))
	a := s.Annotations(1)[0]
	assert.InDelta(t, 20.0/300, a.X, 1e-9)
	assert.InDelta(t, 80.0/388, a.Height, 1e-9)

	require.True(t, s.Undo())
	a = s.Annotations(1)[0]
	assert.InDelta(t, 10.0/300, a.X, 1e-9)
	assert.InDelta(t, 50.0/388, a.Height, 1e-9)
}

func TestUpdateOutOfRangeIsIgnored(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	assert.False(t, s.UpdateAnnotation(1, 5, rect(domain.KindBlur, 20, 30, 70, 80), letter))
	assert.False(t, s.UpdateAnnotation(2, 0, rect(domain.KindBlur, 20, 30, 70, 80), letter))
	assert.False(t, s.UpdateAnnotationFraction(1, -1, domain.Annotation{Kind: domain.KindBlur, Width: 0.1, Height: 0.1}))
	require.True(t, s.Undo())
	assert.Zero(t, s.Len(), "only the add should be in history")
}

func TestUpdateFraction(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	require.True(t, s.UpdateAnnotationFraction(1, 0, domain.Annotation{Kind: domain.KindBlur, X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}))
	assert.InDelta(t, 0.5, s.Annotations(1)[0].X, 1e-12)
	assert.False(t, s.UpdateAnnotationFraction(1, 0, domain.Annotation{Kind: domain.KindBlur, X: 2, Y: 2, Width: 0.1, Height: 0.1}))
}

func TestRemove(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	require.True(t, s.AddAnnotation(1, rect(domain.KindErase, 60, 60, 50, 50), letter))
	assert.False(t, s.RemoveAnnotation(1, 2))
	require.True(t, s.RemoveAnnotation(1, 0))
	require.Len(t, s.Annotations(1), 1)
	assert.Equal(t, domain.KindErase, s.Annotations(1)[0].Kind)
	require.True(t, s.RemoveAnnotation(1, 0))
	assert.Empty(t, s.Pages())
	require.True(t, s.Undo())
	assert.Len(t, s.Annotations(1), 1)
}

func TestResizeKeepsAnnotationsAndReprojects(t *testing.T) {
	s := New(Options{})
	s.SetPageDimensions(1, letter)
	require.True(t, s.Add(1, rect(domain.KindBlur, 30, 40, 60, 60)))
	stored := s.Snapshot()

	bigger := domain.PageDims{DisplayWidth: 900, DisplayHeight: 1164, NativeWidth: 612, NativeHeight: 792}
	s.SetPageDimensions(1, bigger)
	assert.True(t, stored.Equal(s.Snapshot()), "dimension change must not touch stored data")

	disp, ok := s.DisplayAnnotations(1)
	require.True(t, ok)
	assert.InDelta(t, 90, disp[0].X, 1e-9)
	assert.InDelta(t, 120, disp[0].Y, 1e-9)
	assert.InDelta(t, 180, disp[0].Width, 1e-9)

	native, ok := s.NativeAnnotations(1)
	require.True(t, ok)
	assert.InDelta(t, 61.2, native[0].X, 1e-9)

	_, ok = s.DisplayAnnotations(7)
	assert.False(t, ok)
}

func TestSubscribersSeeAppliedChangesOnly(t *testing.T) {
	s := New(Options{})
	var events []Event
	cancel := s.Subscribe(func(e Event) { events = append(events, e) })

	s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 2, 2), letter)
	s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter)
	s.Undo()
	s.Undo()
	cancel()
	s.Redo()

	require.Len(t, events, 2)
	assert.Equal(t, Event{Op: OpAdd, Page: 1}, events[0])
	assert.Equal(t, OpUndo, events[1].Op)
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := New(Options{})
	seen := -1
	s.Subscribe(func(Event) { seen = s.Len() })
	s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter)
	assert.Equal(t, 1, seen)
}

func TestLoadReplacesAndResetsHistory(t *testing.T) {
	s := New(Options{})
	require.True(t, s.AddAnnotation(1, rect(domain.KindBlur, 10, 10, 50, 50), letter))
	s.Load(domain.Overlays{
		2: {
			{Kind: domain.KindErase, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
			{Kind: domain.KindText, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, Text: "  "},
			{Kind: domain.KindBlur, X: 1.5, Y: 0.1, Width: 0.2, Height: 0.2},
		},
		0: {{Kind: domain.KindErase, Width: 0.2, Height: 0.2}},
	})
	assert.Equal(t, []int{2}, s.Pages())
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.CanUndo())
}
