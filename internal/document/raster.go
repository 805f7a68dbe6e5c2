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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"redactor/internal/projector"
)

// Raster is a single-page image. Native units are source pixels.
type Raster struct {
	img    image.Image
	format Format
}

func openRaster(data []byte) (*Raster, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if err == image.ErrFormat {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode image: empty bitmap")
	}
	return &Raster{img: img, format: Format(name)}, nil
}

// NewRaster wraps an in-memory bitmap; Apply encodes the result as PNG.
func NewRaster(img image.Image) *Raster {
	return &Raster{img: img, format: FormatPNG}
}

func (d *Raster) Format() Format { return d.format }
func (d *Raster) PageCount() int { return 1 }

func (d *Raster) PageSize(page int) (Size, error) {
	if err := checkPage(page, 1); err != nil {
		return Size{}, err
	}
	b := d.img.Bounds()
	return Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

func (d *Raster) Render(ctx context.Context, page, width int) (image.Image, error) {
	if err := checkPage(page, 1); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Scale(d.img, width), nil
}

// Scale resizes img to width pixels keeping its aspect ratio. A width <= 0
// or equal to the source width returns an RGBA copy at 1:1.
func Scale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() {
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	height := int(math.Max(1, math.Round(float64(b.Dy())*float64(width)/float64(b.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Apply paints the commands of page 1 onto a copy of the image and encodes it
// in the source format.
func (d *Raster) Apply(ctx context.Context, pages []PageCommands, w io.Writer) error {
	canvas := Scale(d.img, 0)
	for _, pc := range pages {
		if err := checkPage(pc.Page, 1); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		Paint(canvas, pc.Commands)
	}
	return encodeRaster(w, canvas, d.format)
}

// Paint draws commands onto dst, whose pixels are the native units.
func Paint(dst *image.RGBA, cmds []Command) {
	pageH := float64(dst.Bounds().Dy())
	for _, c := range cmds {
		x, y := c.topLeft(pageH)
		box := projector.R(x, y, c.Width, c.Height).Pixels().Add(dst.Bounds().Min).Intersect(dst.Bounds())
		switch c.Op {
		case OpRect:
			if box.Empty() {
				continue
			}
			draw.Draw(dst, box, image.NewUniform(nrgba(c.Fill, color.NRGBA{A: 255})), image.Point{}, draw.Over)
		case OpImage:
			if box.Empty() || c.Image == nil {
				continue
			}
			full := projector.R(x, y, c.Width, c.Height).Pixels().Add(dst.Bounds().Min)
			xdraw.CatmullRom.Scale(dst, full, c.Image, c.Image.Bounds(), xdraw.Over, nil)
		case OpText:
			if c.Font.Face == nil || c.Text == "" {
				continue
			}
			dr := &font.Drawer{
				Dst:  dst,
				Src:  image.NewUniform(nrgba(c.Color, color.NRGBA{A: 255})),
				Face: c.Font.Face,
				Dot: fixed.Point26_6{
					X: fixed.Int26_6(math.Round((x + float64(dst.Bounds().Min.X)) * 64)),
					Y: fixed.Int26_6(math.Round((y + float64(dst.Bounds().Min.Y)) * 64)),
				},
			}
			dr.DrawString(c.Text)
		}
	}
}

func encodeRaster(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(95))
	case FormatGIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case FormatBMP:
		err = imaging.Encode(w, img, imaging.BMP)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}
