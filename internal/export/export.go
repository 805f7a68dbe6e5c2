/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export bakes a session's annotations into a document at high
// resolution. Failures of single annotations are recorded and skipped; only
// failures affecting the whole document abort the run.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/disintegration/imaging"

	"redactor/internal/document"
	"redactor/internal/domain"
	applog "redactor/internal/log"
	"redactor/internal/projector"
	"redactor/internal/telemetry"
	"redactor/internal/textlayout"
)

// ErrNoDocument is returned when Export is called without a document or mutator.
var ErrNoDocument = errors.New("export: no document")

// Skip records one annotation left out of the output.
type Skip struct {
	Page  int
	Index int
	Kind  domain.Kind
	Err   error
}

func (s Skip) String() string {
	return fmt.Sprintf("page %d #%d (%s): %v", s.Page, s.Index, s.Kind, s.Err)
}

// Report summarizes an export run.
type Report struct {
	Pages    int
	Commands int
	Skipped  []Skip
	// FontFallbacks lists requested families that were replaced by the default font.
	FontFallbacks []string
}

// Exporter runs exports with fixed options.
type Exporter struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Exporter {
	return &Exporter{opts: opts.withDefaults(), log: applog.WithComponent("export")}
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// Export writes doc with the overlays applied to w. Output is buffered and
// written only after the mutator succeeded, so w never receives a partial
// document.
func (e *Exporter) Export(ctx context.Context, doc document.Document, m document.Mutator, overlays domain.Overlays, w io.Writer) (rep Report, err error) {
	start := time.Now()
	defer func() {
		telemetry.Default().Export(telemetry.ExportEvent{
			Format:      formatName(doc),
			Preset:      string(e.opts.Preset),
			Pages:       rep.Pages,
			Annotations: overlays.Count(),
			Skipped:     len(rep.Skipped),
			Fallbacks:   len(rep.FontFallbacks),
			Duration:    time.Since(start),
			Failed:      err != nil,
		})
	}()
	if doc == nil || m == nil {
		return rep, ErrNoDocument
	}
	l := applog.WithOperation(e.log, "export")

	var pages []document.PageCommands
	fallbacks := map[string]bool{}
	for _, page := range overlays.Pages() {
		list := overlays[page]
		if len(list) == 0 {
			continue
		}
		if page < 1 || page > doc.PageCount() {
			return rep, fmt.Errorf("page %d of %d: %w", page, doc.PageCount(), document.ErrPageOutOfRange)
		}
		size, err := doc.PageSize(page)
		if err != nil {
			return rep, fmt.Errorf("page %d size: %w", page, err)
		}
		pc := e.page(ctx, doc, page, size, list, &rep, fallbacks)
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Pages++
		rep.Commands += len(pc.Commands)
		pages = append(pages, pc)
	}
	for f := range fallbacks {
		rep.FontFallbacks = append(rep.FontFallbacks, f)
	}
	slices.Sort(rep.FontFallbacks)

	var buf bytes.Buffer
	if err := m.Apply(ctx, pages, &buf); err != nil {
		return rep, fmt.Errorf("write document: %w", err)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return rep, fmt.Errorf("write output: %w", err)
	}
	l.InfoContext(ctx, "export finished",
		slog.Int("pages", rep.Pages),
		slog.Int("commands", rep.Commands),
		slog.Int("skipped", len(rep.Skipped)),
		slog.Duration("took", time.Since(start)))
	return rep, nil
}

// hiRes renders a page once, on first use.
type hiRes struct {
	doc   document.Document
	page  int
	width int
	done  bool
	img   image.Image
	err   error
}

func (h *hiRes) get(ctx context.Context) (image.Image, error) {
	if !h.done {
		h.done = true
		h.img, h.err = h.doc.Render(ctx, h.page, h.width)
		if h.err == nil && (h.img == nil || h.img.Bounds().Empty()) {
			h.err = errors.New("renderer returned an empty bitmap")
		}
	}
	return h.img, h.err
}

func (e *Exporter) page(ctx context.Context, doc document.Document, page int, size document.Size, list []domain.Annotation, rep *Report, fallbacks map[string]bool) document.PageCommands {
	dims := domain.PageDims{DisplayWidth: size.Width, DisplayHeight: size.Height, NativeWidth: size.Width, NativeHeight: size.Height}
	hr := &hiRes{doc: doc, page: page, width: int(math.Round(size.Width * e.opts.Multiplier))}
	// PDF output embeds the font, which needs TrueType outlines
	embed := doc.Format() == document.FormatPDF
	pc := document.PageCommands{Page: page, Size: size}
	for i, a := range list {
		na := projector.AnnotationToNative(a, dims)
		cmds, fallback, err := e.annotation(ctx, hr, size, na, embed)
		if err != nil {
			rep.Skipped = append(rep.Skipped, Skip{Page: page, Index: i, Kind: a.Kind, Err: err})
			e.log.WarnContext(ctx, "skipped annotation",
				slog.Int("page", page), slog.Int("index", i),
				slog.String("kind", string(a.Kind)), slog.Any("err", err))
			continue
		}
		if fallback {
			fallbacks[a.FontFamily] = true
		}
		pc.Commands = append(pc.Commands, cmds...)
	}
	return pc
}

// annotation builds the draw commands of one mark in native units with a
// bottom-left origin. A panic while processing is reported as an error.
func (e *Exporter) annotation(ctx context.Context, hr *hiRes, size document.Size, na domain.DisplayAnnotation, embed bool) (cmds []document.Command, fallback bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			cmds, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	bottom := projector.FlipY(na.Y, na.Height, size.Height)
	switch na.Kind {
	case domain.KindErase:
		return []document.Command{document.Rect(na.X, bottom, na.Width, na.Height, e.opts.EraseColor)}, false, nil
	case domain.KindBlur:
		img, err := hr.get(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("render page: %w", err)
		}
		blurred, err := e.blurRegion(img, size, na)
		if err != nil {
			return nil, false, err
		}
		return []document.Command{document.Image(na.X, bottom, na.Width, na.Height, blurred)}, false, nil
	case domain.KindText:
		return e.text(size, na, embed)
	}
	return nil, false, fmt.Errorf("unknown kind %q", na.Kind)
}

func (e *Exporter) blurRegion(img image.Image, size document.Size, na domain.DisplayAnnotation) (image.Image, error) {
	r := projector.ToBitmapRect(projector.R(na.X, na.Y, na.Width, na.Height), size.Width, size.Height, img.Bounds())
	if r.Empty() {
		return nil, errors.New("region outside rendered page")
	}
	scale := float64(img.Bounds().Dx()) / size.Width
	return imaging.Blur(imaging.Crop(img, r), e.opts.BlurSigma*scale), nil
}

func (e *Exporter) text(size document.Size, na domain.DisplayAnnotation, embed bool) ([]document.Command, bool, error) {
	font, err := e.opts.Fonts.Resolve(textlayout.SpecFor(na.FontFamily, na.FontWeight, na.FontStyle, na.FontSize))
	if err != nil {
		return nil, false, fmt.Errorf("font %q: %w", na.FontFamily, err)
	}
	if embed && !font.Embeddable() {
		font = textlayout.Substitute(font)
	}
	col := domain.ParseColor(na.Color, e.opts.TextColor)
	block := textlayout.LayoutBlock(font, na.Text, na.Width)
	cmds := make([]document.Command, 0, len(block.Lines))
	for i, line := range block.Lines {
		if line == "" {
			continue
		}
		baseline := size.Height - (na.Y + block.BaselineAt(i))
		cmds = append(cmds, document.Text(na.X, baseline, line, font, col))
	}
	return cmds, font.Fallback, nil
}

func formatName(doc document.Document) string {
	if doc == nil {
		return ""
	}
	return string(doc.Format())
}
