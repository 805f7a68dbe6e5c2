/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"redactor/internal/domain"
)

// Snapshot is a deep copy of the full annotation map taken immediately before a mutation.
// TS is when the snapshot was captured.
type Snapshot struct {
	Overlays domain.Overlays
	TS       time.Time
	size     int
}

// Config controls memory and depth caps.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo entries kept (0 means the default of 100).
	MaxDepth int
}

// History provides linear undo/redo over full-store snapshots.
// A push after an undo discards the redo stack; there is no branching.
// It is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
	// accounting for the undo stack only
	totalBytes int
	now        func() time.Time
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 100
	}
	return &History{cfg: cfg, now: time.Now}
}

// Push records the state that existed before a mutation and clears the redo stack.
// The caller hands over ownership of o; pass a clone.
func (h *History) Push(o domain.Overlays) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.snapshot(o)
	h.undo = append(h.undo, s)
	h.totalBytes += s.size
	// Any new change invalidates redo
	h.redo = nil
	h.enforceCapsLocked()
}

// Undo stores current on the redo stack and returns the most recent snapshot.
// It reports false and leaves both stacks untouched when there is nothing to undo.
func (h *History) Undo(current domain.Overlays) (domain.Overlays, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return nil, false
	}
	s := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.totalBytes -= s.size
	h.redo = append(h.redo, h.snapshot(current))
	return s.Overlays, true
}

// Redo stores current on the undo stack and returns the most recently undone state.
func (h *History) Redo(current domain.Overlays) (domain.Overlays, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return nil, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	cur := h.snapshot(current)
	h.undo = append(h.undo, cur)
	h.totalBytes += cur.size
	h.enforceCapsLocked()
	return s.Overlays, true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
	h.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes, undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.undo), len(h.redo)
}

func (h *History) snapshot(o domain.Overlays) Snapshot {
	return Snapshot{Overlays: o, TS: h.now(), size: estimateSize(o)}
}

func (h *History) enforceCapsLocked() {
	if extra := len(h.undo) - h.cfg.MaxDepth; extra > 0 {
		for i := 0; i < extra; i++ {
			h.totalBytes -= h.undo[i].size
		}
		h.undo = append([]Snapshot(nil), h.undo[extra:]...)
	}
	// Global memory cap: prune oldest, but always keep the newest entry
	for h.totalBytes > h.cfg.MaxBytes && len(h.undo) > 1 {
		h.totalBytes -= h.undo[0].size
		h.undo = h.undo[1:]
	}
}

// estimateSize approximates the heap footprint of a snapshot.
func estimateSize(o domain.Overlays) int {
	const perPage, perAnnotation = 48, 128
	n := 0
	for _, list := range o {
		n += perPage
		for _, a := range list {
			n += perAnnotation + len(a.Text) + len(a.FontFamily) + len(a.FontWeight) + len(a.FontStyle) + len(a.Color)
		}
	}
	return n
}
