/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store holds the normalized annotation model of an editing session:
// per-page annotations in fractional page coordinates, the page dimension
// records needed to project them, and a linear undo/redo history of
// full-store snapshots.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"redactor/internal/domain"
	applog "redactor/internal/log"
	"redactor/internal/projector"
	"redactor/internal/undo"
)

// DefaultMinSizePx is the smallest drag, in display pixels, that creates an annotation.
const DefaultMinSizePx = 5

// Op names the transition that produced an Event.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
	OpUndo   Op = "undo"
	OpRedo   Op = "redo"
	OpLoad   Op = "load"
	OpDims   Op = "dims"
)

// Event is delivered to subscribers after an applied change.
// Page is 0 when the change may touch every page.
type Event struct {
	Op   Op
	Page int
}

// Options configures a Store.
type Options struct {
	MinSizePx       float64
	HistoryDepth    int
	HistoryMaxBytes int
}

// Store exclusively owns annotation lifetime. Mutations are atomic: one call
// pushes at most one history snapshot. Rejected input is a silent no-op and is
// reported only through the boolean result.
type Store struct {
	mu       sync.Mutex
	minSize  float64
	overlays domain.Overlays
	dims     map[int]domain.PageDims
	history  *undo.History

	subs    map[int]func(Event)
	nextSub int
	log     *slog.Logger
}

func New(opts Options) *Store {
	if opts.MinSizePx <= 0 {
		opts.MinSizePx = DefaultMinSizePx
	}
	return &Store{
		minSize:  opts.MinSizePx,
		overlays: domain.Overlays{},
		dims:     make(map[int]domain.PageDims),
		history:  undo.NewHistory(undo.Config{MaxDepth: opts.HistoryDepth, MaxBytes: opts.HistoryMaxBytes}),
		subs:     make(map[int]func(Event)),
		log:      applog.WithComponent("store"),
	}
}

// Subscribe registers fn for change notifications and returns a cancel func.
// fn runs on the goroutine that performed the mutation, after the store lock is released.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// AddAnnotation normalizes a rectangle captured in display pixels against dims and
// appends it to the page. It rejects missing dims, degenerate geometry and blank text.
func (s *Store) AddAnnotation(page int, a domain.DisplayAnnotation, dims domain.PageDims) bool {
	n, ok := s.normalize(page, a, dims)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.history.Push(s.overlays.Clone())
	s.overlays[page] = append(s.overlays[page], n)
	s.mu.Unlock()
	s.notify(Event{Op: OpAdd, Page: page})
	return true
}

// Add is AddAnnotation using the page's recorded dimensions.
func (s *Store) Add(page int, a domain.DisplayAnnotation) bool {
	d, _ := s.PageDimensions(page)
	return s.AddAnnotation(page, a, d)
}

// UpdateAnnotation replaces overlays[page][index] with a display-pixel rectangle.
// An out-of-range index is a caller bug and is ignored.
func (s *Store) UpdateAnnotation(page, index int, a domain.DisplayAnnotation, dims domain.PageDims) bool {
	n, ok := s.normalize(page, a, dims)
	if !ok {
		return false
	}
	return s.replace(page, index, n, OpUpdate)
}

// Update is UpdateAnnotation using the page's recorded dimensions.
func (s *Store) Update(page, index int, a domain.DisplayAnnotation) bool {
	d, _ := s.PageDimensions(page)
	return s.UpdateAnnotation(page, index, a, d)
}

// UpdateAnnotationFraction replaces overlays[page][index] with an annotation that is
// already in fractional space, e.g. from a keyboard nudge.
func (s *Store) UpdateAnnotationFraction(page, index int, a domain.Annotation) bool {
	a = projector.ClampFraction(a)
	if a.Width <= 0 || a.Height <= 0 {
		return false
	}
	if a.Kind == domain.KindText && strings.TrimSpace(a.Text) == "" {
		return false
	}
	if !a.Kind.IsRegion() && a.Kind != domain.KindText {
		return false
	}
	return s.replace(page, index, a, OpUpdate)
}

func (s *Store) replace(page, index int, a domain.Annotation, op Op) bool {
	s.mu.Lock()
	list := s.overlays[page]
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		s.log.Debug("update ignored: index out of range", slog.Int("page", page), slog.Int("index", index))
		return false
	}
	s.history.Push(s.overlays.Clone())
	s.overlays[page][index] = a
	s.mu.Unlock()
	s.notify(Event{Op: op, Page: page})
	return true
}

// RemoveAnnotation deletes overlays[page][index]. Out of range is a no-op.
func (s *Store) RemoveAnnotation(page, index int) bool {
	s.mu.Lock()
	list := s.overlays[page]
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		return false
	}
	s.history.Push(s.overlays.Clone())
	list = append(list[:index:index], list[index+1:]...)
	if len(list) == 0 {
		delete(s.overlays, page)
	} else {
		s.overlays[page] = list
	}
	s.mu.Unlock()
	s.notify(Event{Op: OpRemove, Page: page})
	return true
}

// ClearAll empties every page as a single undoable step.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	s.history.Push(s.overlays.Clone())
	s.overlays = domain.Overlays{}
	s.mu.Unlock()
	s.notify(Event{Op: OpClear})
	return true
}

// Undo restores the most recent snapshot. No-op when the history is empty.
func (s *Store) Undo() bool {
	s.mu.Lock()
	prev, ok := s.history.Undo(s.overlays.Clone())
	if ok {
		s.overlays = prev.Clone()
	}
	s.mu.Unlock()
	if ok {
		s.notify(Event{Op: OpUndo})
	}
	return ok
}

// Redo restores the most recently undone state. No-op when the redo stack is empty.
func (s *Store) Redo() bool {
	s.mu.Lock()
	next, ok := s.history.Redo(s.overlays.Clone())
	if ok {
		s.overlays = next.Clone()
	}
	s.mu.Unlock()
	if ok {
		s.notify(Event{Op: OpRedo})
	}
	return ok
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// Load replaces all annotations, e.g. when a session file is opened. Geometry is
// clamped to the page, degenerate entries are dropped and history is reset.
func (s *Store) Load(o domain.Overlays) {
	clean := domain.Overlays{}
	for page, list := range o {
		if page < 1 {
			continue
		}
		for _, a := range list {
			a = projector.ClampFraction(a)
			if a.Width <= 0 || a.Height <= 0 {
				continue
			}
			if a.Kind == domain.KindText && strings.TrimSpace(a.Text) == "" {
				continue
			}
			clean[page] = append(clean[page], a)
		}
	}
	s.mu.Lock()
	s.overlays = clean
	s.history.Clear()
	s.mu.Unlock()
	s.notify(Event{Op: OpLoad})
}

// SetPageDimensions upserts the page's dimension record. Stored annotations are
// untouched: they are resolution independent.
func (s *Store) SetPageDimensions(page int, d domain.PageDims) {
	s.mu.Lock()
	prev, had := s.dims[page]
	s.dims[page] = d
	s.mu.Unlock()
	if !had || prev != d {
		s.notify(Event{Op: OpDims, Page: page})
	}
}

// PageDimensions returns the page's dimension record if one was recorded.
func (s *Store) PageDimensions(page int) (domain.PageDims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dims[page]
	return d, ok
}

// Annotations returns a copy of the page's fractional annotations.
func (s *Store) Annotations(page int) []domain.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Annotation(nil), s.overlays[page]...)
}

// Snapshot returns a deep copy of all annotations.
func (s *Store) Snapshot() domain.Overlays {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays.Clone()
}

// Pages returns the pages holding annotations, ascending.
func (s *Store) Pages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays.Pages()
}

// Len returns the total annotation count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays.Count()
}

// DisplayAnnotations projects the page's annotations onto its current display
// bitmap. It reports false when no dimension record exists for the page.
func (s *Store) DisplayAnnotations(page int) ([]domain.DisplayAnnotation, bool) {
	return s.project(page, projector.AnnotationToDisplay)
}

// NativeAnnotations projects the page's annotations onto native document units.
func (s *Store) NativeAnnotations(page int) ([]domain.DisplayAnnotation, bool) {
	return s.project(page, projector.AnnotationToNative)
}

func (s *Store) project(page int, fn func(domain.Annotation, domain.PageDims) domain.DisplayAnnotation) ([]domain.DisplayAnnotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dims[page]
	if !ok {
		return nil, false
	}
	list := s.overlays[page]
	out := make([]domain.DisplayAnnotation, len(list))
	for i, a := range list {
		out[i] = fn(a, d)
	}
	return out, true
}

func (s *Store) normalize(page int, a domain.DisplayAnnotation, dims domain.PageDims) (domain.Annotation, bool) {
	l := applog.WithOperation(s.log, "normalize").With(slog.Int("page", page), slog.String("kind", string(a.Kind)))
	if page < 1 {
		l.Debug("rejected: invalid page")
		return domain.Annotation{}, false
	}
	if dims.DisplayWidth <= 0 || dims.DisplayHeight <= 0 {
		l.Debug("rejected: no page dimensions")
		return domain.Annotation{}, false
	}
	if !a.Kind.IsRegion() && a.Kind != domain.KindText {
		l.Debug("rejected: unknown kind")
		return domain.Annotation{}, false
	}
	r := projector.NormalizeRect(a.X, a.Y, a.X+a.Width, a.Y+a.Height)
	if r.W < s.minSize || r.H < s.minSize {
		l.Debug("rejected: below minimum size", slog.Float64("w", r.W), slog.Float64("h", r.H))
		return domain.Annotation{}, false
	}
	a.X, a.Y, a.Width, a.Height = r.X, r.Y, r.W, r.H
	if a.Kind == domain.KindText {
		if strings.TrimSpace(a.Text) == "" {
			l.Debug("rejected: empty text")
			return domain.Annotation{}, false
		}
		applyTextDefaults(&a)
	}
	n := projector.ClampFraction(projector.FromDisplay(a, dims))
	if n.Width <= 0 || n.Height <= 0 {
		l.Debug("rejected: outside page")
		return domain.Annotation{}, false
	}
	return n, true
}

func applyTextDefaults(a *domain.DisplayAnnotation) {
	if a.FontSize <= 0 {
		a.FontSize = domain.DefaultFontSizePx
	}
	if strings.TrimSpace(a.FontFamily) == "" {
		a.FontFamily = domain.DefaultFontFamily
	}
	if a.FontWeight == "" {
		a.FontWeight = domain.DefaultFontWeight
	}
	if a.FontStyle == "" {
		a.FontStyle = domain.DefaultFontStyle
	}
	if a.Color == "" {
		a.Color = domain.DefaultTextColor
	}
}

func (s *Store) notify(e Event) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
