/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a throwaway config file.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	return execute(t, append([]string{"--config", cfgFile}, args...)...)
}

// execute runs the CLI with flags reset to their defaults between calls.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func writeScan(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestMarkValidateExport(t *testing.T) {
	doc := writeScan(t)

	out, err := run(t, "mark", doc, "--kind", "erase", "--width", "200", "--rect", "0,0,50,100")
	require.NoError(t, err)
	assert.Contains(t, out, "Added erase on page 1 (1 total)")

	out, err = run(t, "mark", doc, "--kind", "text", "--width", "200", "--rect", "100,20,100,40", "--text", "SECRET")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 total)")

	out, err = run(t, "validate", doc, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "valid (version 1, 2 annotations on 1 pages)")
	assert.Contains(t, out, `"SECRET"`)
	assert.Contains(t, out, "erase x=0.0000 y=0.0000 w=0.2500 h=1.0000")

	outPath := filepath.Join(t.TempDir(), "clean.png")
	out, err = run(t, "export", doc, "--out", outPath, "--preset", "screen")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+outPath+" (1 pages, ")
	assert.NotContains(t, out, "Skipped")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.RGBAModel.Convert(color.White), color.RGBAModel.Convert(img.At(40, 150)))
}

func TestMarkRejections(t *testing.T) {
	doc := writeScan(t)

	_, err := run(t, "mark", doc, "--kind", "smudge", "--rect", "0,0,10,10")
	require.ErrorContains(t, err, "unknown kind")

	_, err = run(t, "mark", doc, "--rect", "0,0,10")
	require.ErrorContains(t, err, "x,y,w,h")

	_, err = run(t, "mark", doc, "--width", "200", "--rect", "10,10,2,2")
	require.ErrorContains(t, err, "annotation rejected")

	_, err = run(t, "mark", doc, "--kind", "text", "--rect", "10,10,50,20")
	require.ErrorContains(t, err, "--text is required")

	_, err = os.Stat(doc + ".redactor.json")
	assert.True(t, os.IsNotExist(err))
}

func TestValidateRejectsBrokenSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"pages":{"1":[{"kind":"smudge"}]}}`), 0o644))
	_, err := run(t, "validate", path)
	require.Error(t, err)
}

func TestExportMissingDocument(t *testing.T) {
	_, err := run(t, "export", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "redactor ")
}

func TestParseRect(t *testing.T) {
	x, y, w, h, err := parseRect(" 1, 2.5,3 ,4")
	require.NoError(t, err)
	assert.Equal(t, [4]float64{1, 2.5, 3, 4}, [4]float64{x, y, w, h})
	_, _, _, _, err = parseRect("a,b,c,d")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"export", "preview", "mark", "validate", "watch", "ui", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestDefaultConfigLocation(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "redactor ")

	dir := filepath.Join(xdg, "redactor")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("general: [unclosed\n"), 0o644))
	_, err = execute(t, "version")
	require.ErrorContains(t, err, "load config")
}
