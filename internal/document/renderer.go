/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/tiff"
)

// PDFRenderer rasterizes one page of a PDF at a pixel width.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, pdf []byte, page, width int) (image.Image, error)
}

// RendererFunc adapts a function to PDFRenderer.
type RendererFunc func(ctx context.Context, pdf []byte, page, width int) (image.Image, error)

func (f RendererFunc) RenderPDF(ctx context.Context, pdf []byte, page, width int) (image.Image, error) {
	return f(ctx, pdf, page, width)
}

// ErrRendererUnavailable is returned when the render command is not installed.
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// DefaultRenderCommand and DefaultRenderArgs drive poppler's pdftoppm.
const DefaultRenderCommand = "pdftoppm"

var DefaultRenderArgs = []string{
	"-png", "-f", "{page}", "-l", "{page}",
	"-scale-to-x", "{width}", "-scale-to-y", "-1",
	"-singlefile", "{input}", "{output}",
}

// CommandRenderer runs an external rasterizer. Args may contain the
// placeholders {page}, {width}, {input} and {output}; {output} is a path
// prefix and the command may append any image extension to it.
type CommandRenderer struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// DefaultCommandRenderer returns a pdftoppm based renderer.
func DefaultCommandRenderer() CommandRenderer {
	return CommandRenderer{Command: DefaultRenderCommand, Args: DefaultRenderArgs, Timeout: 2 * time.Minute}
}

func (r CommandRenderer) RenderPDF(ctx context.Context, pdf []byte, page, width int) (image.Image, error) {
	bin := r.Command
	if bin == "" {
		bin = DefaultRenderCommand
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRendererUnavailable, bin, err)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "redactor-render-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, err
	}
	output := filepath.Join(dir, "page")

	args := r.Args
	if len(args) == 0 {
		args = DefaultRenderArgs
	}
	repl := strings.NewReplacer(
		"{page}", strconv.Itoa(page),
		"{width}", strconv.Itoa(width),
		"{input}", input,
		"{output}", output,
	)
	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = repl.Replace(a)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, expanded...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render page %d: %w: %s", page, err, strings.TrimSpace(stderr.String()))
	}

	matches, _ := filepath.Glob(output + "*")
	if len(matches) == 0 {
		return nil, fmt.Errorf("render page %d: no output from %s", page, bin)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render page %d: decode: %w", page, err)
	}
	return img, nil
}
