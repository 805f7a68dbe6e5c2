/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redactor/internal/config"
	"redactor/internal/document"
	"redactor/internal/export"
	"redactor/internal/surface"
)

func writePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestOutputPathFor(t *testing.T) {
	assert.Equal(t, "/d/a.redacted.pdf", OutputPathFor("/d/a.pdf", document.FormatPDF))
	assert.Equal(t, "/d/a.redacted.jpg", OutputPathFor("/d/a.jpeg", document.FormatJPEG))
	assert.Equal(t, "/d/a.redacted.png", OutputPathFor("/d/a.webp", document.FormatWebP))
	assert.Equal(t, "/d/a.pdf.redactor.json", SessionPathFor("/d/a.pdf"))
}

func TestExportOptionsPrecedence(t *testing.T) {
	cfg := config.Defaults()
	cfg.Export.ResolutionMultiplier = 3
	cfg.Export.EraseColor = "#000"

	o, err := ExportOptions(cfg, nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, export.PresetPrint, o.Preset)
	assert.Equal(t, 3.0, o.Multiplier)
	assert.Equal(t, 12.0, o.BlurSigma)
	assert.Equal(t, color.RGBA{A: 0xff}, o.EraseColor)

	o, err = ExportOptions(cfg, nil, "screen", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, o.Multiplier)
	assert.Equal(t, 6.0, o.BlurSigma)

	_, err = ExportOptions(cfg, nil, "poster", 0)
	require.Error(t, err)
}

func TestFontsReportsBrokenFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Fonts = []config.FontConfig{{Family: "Gone", Weight: 400, Path: filepath.Join(t.TempDir(), "gone.ttf")}}
	_, err := Fonts(cfg)
	require.ErrorContains(t, err, "Gone")

	cfg.Fonts = nil
	p, err := Fonts(cfg)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestDocumentOptionsUsesRenderSection(t *testing.T) {
	cfg := config.Defaults()
	cfg.Render.Command = "mutool"
	cfg.Render.Args = []string{"draw", "-o", "{output}", "{input}", "{page}"}
	cfg.Render.TimeoutMs = 1500
	r, ok := DocumentOptions(cfg).Renderer.(document.CommandRenderer)
	require.True(t, ok)
	assert.Equal(t, "mutool", r.Command)
	assert.Len(t, r.Args, 5)
	assert.Equal(t, "1.5s", r.Timeout.String())
}

func TestWorkspaceEditSaveExport(t *testing.T) {
	path := writePNG(t, 400, 200, color.Black)
	cfg := config.Defaults()
	ctx := context.Background()

	ws, err := Open(cfg, path, OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, ws.PageCount())
	require.NoError(t, ws.ShowPage(ctx, 1, 200))

	sf := ws.Surface()
	sf.SetTool(surface.ToolErase)
	sf.PointerDown(0, 0)
	require.True(t, sf.PointerUp(50, 100))
	require.NoError(t, ws.SaveSession())

	// a fresh workspace picks the session up again
	ws2, err := Open(cfg, path, OpenOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, ws2.Store().Len())
	assert.InDelta(t, 0.25, ws2.Overlays()[1][0].Width, 1e-9)

	rep, err := ws2.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pages)

	f, err := os.Open(ws2.OutputPath())
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.RGBAModel.Convert(color.White), color.RGBAModel.Convert(img.At(50, 100)))
	assert.Equal(t, color.RGBAModel.Convert(color.Black), color.RGBAModel.Convert(img.At(300, 100)))

	raw, err := ws2.SessionJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"scan.png"`)

	dir := t.TempDir()
	files, err := ws2.Preview(ctx, dir, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "page-1.png")}, files)
}

func TestWorkspaceRejectsBrokenSession(t *testing.T) {
	path := writePNG(t, 20, 20, color.White)
	require.NoError(t, os.WriteFile(SessionPathFor(path), []byte(`{"version": 9}`), 0o600))
	_, err := Open(config.Defaults(), path, OpenOptions{})
	require.Error(t, err)
}

func TestWorkspaceRejectsUnknownDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))
	_, err := Open(config.Defaults(), path, OpenOptions{})
	require.ErrorIs(t, err, document.ErrUnsupportedFormat)
}
