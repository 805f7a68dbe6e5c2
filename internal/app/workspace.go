/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"redactor/internal/config"
	"redactor/internal/document"
	"redactor/internal/domain"
	"redactor/internal/export"
	applog "redactor/internal/log"
	"redactor/internal/session"
	"redactor/internal/store"
	"redactor/internal/surface"
	"redactor/internal/textlayout"
)

// SessionPathFor returns the default session file next to a document.
func SessionPathFor(docPath string) string { return docPath + ".redactor.json" }

// OutputPathFor returns the default export destination for a document.
func OutputPathFor(docPath string, f document.Format) string {
	ext := filepath.Ext(docPath)
	base := strings.TrimSuffix(docPath, ext)
	if out := f.Ext(); out != "" {
		ext = out
	}
	return base + ".redacted" + ext
}

// Workspace is one open document with its annotations and the editing surface.
type Workspace struct {
	cfg     config.AppConfig
	path    string
	session string
	output  string

	doc   document.Document
	mut   document.Mutator
	store *store.Store
	surf  *surface.Surface
	exp   *export.Exporter
	fonts textlayout.Provider
	log   *slog.Logger
}

// OpenOptions override the default session and output paths.
type OpenOptions struct {
	SessionPath string
	OutputPath  string
	Preset      string
	Multiplier  float64
}

// Open loads the document at path and, when present, its session file.
func Open(cfg config.AppConfig, path string, opt OpenOptions) (*Workspace, error) {
	doc, mut, err := document.OpenFile(path, DocumentOptions(cfg))
	if err != nil {
		return nil, err
	}
	fonts, err := Fonts(cfg)
	if err != nil {
		return nil, err
	}
	eo, err := ExportOptions(cfg, fonts, opt.Preset, opt.Multiplier)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		cfg:     cfg,
		path:    path,
		session: opt.SessionPath,
		output:  opt.OutputPath,
		doc:     doc,
		mut:     mut,
		store:   store.New(StoreOptions(cfg)),
		exp:     export.New(eo),
		fonts:   fonts,
		log:     applog.WithComponent("workspace").With(slog.String("doc", path)),
	}
	if w.session == "" {
		w.session = SessionPathFor(path)
	}
	if w.output == "" {
		w.output = OutputPathFor(path, doc.Format())
	}
	w.surf = surface.New(w.store, SurfaceOptions(cfg, fonts))
	f, err := session.ReadFile(w.session)
	switch {
	case err == nil:
		w.store.Load(f.Pages)
		w.log.Info("session loaded", slog.String("session", w.session), slog.Int("annotations", w.store.Len()))
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}
	return w, nil
}

func (w *Workspace) Path() string                { return w.path }
func (w *Workspace) SessionPath() string         { return w.session }
func (w *Workspace) OutputPath() string          { return w.output }
func (w *Workspace) Document() document.Document { return w.doc }
func (w *Workspace) Store() *store.Store         { return w.store }
func (w *Workspace) Surface() *surface.Surface   { return w.surf }
func (w *Workspace) PageCount() int              { return w.doc.PageCount() }

// ShowPage renders page at width display pixels and hands it to the surface.
// Rendering again at another width only replaces the page dimensions.
func (w *Workspace) ShowPage(ctx context.Context, page, width int) error {
	img, size, err := w.RenderPage(ctx, page, width)
	if err != nil {
		return err
	}
	w.surf.ShowPage(page, img, size)
	return nil
}

// RenderPage rasterizes page at width display pixels without touching the
// surface, so it can run off the UI goroutine.
func (w *Workspace) RenderPage(ctx context.Context, page, width int) (image.Image, document.Size, error) {
	if width <= 0 {
		width = w.cfg.Editor.DisplayWidth
	}
	size, err := w.doc.PageSize(page)
	if err != nil {
		return nil, document.Size{}, err
	}
	img, err := w.doc.Render(applog.WithPage(applog.WithDocument(ctx, w.path), page), page, width)
	if err != nil {
		return nil, document.Size{}, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, size, nil
}

// SessionJSON returns the current annotations in session file form.
func (w *Workspace) SessionJSON() ([]byte, error) {
	return session.Marshal(w.store.Snapshot(), filepath.Base(w.path))
}

// SaveSession writes the annotations to the session file.
func (w *Workspace) SaveSession() error {
	return session.WriteFile(w.session, w.store.Snapshot(), filepath.Base(w.path))
}

// Export writes the redacted document to the output path. Nothing is written
// when the export fails.
func (w *Workspace) Export(ctx context.Context) (export.Report, error) {
	ctx = applog.WithDocument(ctx, w.path)
	var buf bytes.Buffer
	rep, err := w.exp.Export(ctx, w.doc, w.mut, w.store.Snapshot(), &buf)
	if err != nil {
		return rep, err
	}
	if err := WriteOutput(w.output, buf.Bytes()); err != nil {
		return rep, err
	}
	return rep, nil
}

// Preview writes flattened editor renders of the annotated pages into dir.
func (w *Workspace) Preview(ctx context.Context, dir string, width int) ([]string, error) {
	if width <= 0 {
		width = w.cfg.Editor.DisplayWidth
	}
	return export.PreviewPNG(ctx, w.doc, w.store.Snapshot(), dir, export.PreviewOptions{
		Width:   width,
		Surface: SurfaceOptions(w.cfg, w.fonts),
	})
}

// WriteOutput writes data to path through a temporary file in the same
// directory so readers never observe a partial document.
func WriteOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".redactor-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close output: %w", err)
	}
	_ = os.Chmod(name, 0o644)
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Overlays exposes the annotation snapshot, mainly to report counts.
func (w *Workspace) Overlays() domain.Overlays { return w.store.Snapshot() }
