/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package projector converts annotation geometry between the three frames used
// by the editor: live display pixels, normalized fractions of the page and the
// document's native units. All functions are pure; nothing here holds state.
package projector

import (
	"image"
	"math"

	"redactor/internal/domain"
)

// ToFraction returns value/dimension, or 0 when the dimension is not positive.
func ToFraction(value, dimension float64) float64 {
	if dimension <= 0 {
		return 0
	}
	return value / dimension
}

// ToPixels returns fraction*dimension.
func ToPixels(fraction, dimension float64) float64 { return fraction * dimension }

// FromFrame normalizes an annotation given in a frame of width w and height h.
// Font size is normalized against the frame height, like vertical geometry.
func FromFrame(a domain.DisplayAnnotation, w, h float64) domain.Annotation {
	out := domain.Annotation{
		Kind:   a.Kind,
		X:      ToFraction(a.X, w),
		Y:      ToFraction(a.Y, h),
		Width:  ToFraction(a.Width, w),
		Height: ToFraction(a.Height, h),
	}
	if a.Kind == domain.KindText {
		out.Text = a.Text
		out.FontSizeFraction = ToFraction(a.FontSize, h)
		out.FontFamily = a.FontFamily
		out.FontWeight = a.FontWeight
		out.FontStyle = a.FontStyle
		out.Color = a.Color
	}
	return out
}

// ToFrame projects a normalized annotation into a frame of width w and height h.
func ToFrame(a domain.Annotation, w, h float64) domain.DisplayAnnotation {
	out := domain.DisplayAnnotation{
		Kind:   a.Kind,
		X:      ToPixels(a.X, w),
		Y:      ToPixels(a.Y, h),
		Width:  ToPixels(a.Width, w),
		Height: ToPixels(a.Height, h),
	}
	if a.Kind == domain.KindText {
		out.Text = a.Text
		out.FontSize = ToPixels(a.FontSizeFraction, h)
		out.FontFamily = a.FontFamily
		out.FontWeight = a.FontWeight
		out.FontStyle = a.FontStyle
		out.Color = a.Color
	}
	return out
}

// FromDisplay normalizes an annotation captured in live display pixels.
func FromDisplay(a domain.DisplayAnnotation, d domain.PageDims) domain.Annotation {
	return FromFrame(a, d.DisplayWidth, d.DisplayHeight)
}

// AnnotationToDisplay projects a stored annotation onto the current on-screen bitmap.
func AnnotationToDisplay(a domain.Annotation, d domain.PageDims) domain.DisplayAnnotation {
	return ToFrame(a, d.DisplayWidth, d.DisplayHeight)
}

// AnnotationToNative projects a stored annotation onto the document's native units.
// The result keeps a top-left origin; use FlipY for bottom-left drawing systems.
func AnnotationToNative(a domain.Annotation, d domain.PageDims) domain.DisplayAnnotation {
	return ToFrame(a, d.NativeWidth, d.NativeHeight)
}

// FlipY converts a top-left origin y of a box of height h into the distance of
// the box's bottom edge from the bottom of a page of height pageHeight.
func FlipY(y, h, pageHeight float64) float64 { return pageHeight - y - h }

// ToBitmapRect maps a rectangle in native units onto a bitmap rendered from the
// same page at an arbitrary resolution. The result is rounded outwards and
// clipped to the bitmap bounds; it is empty when the rect lies outside.
func ToBitmapRect(r Rect, nativeW, nativeH float64, bounds image.Rectangle) image.Rectangle {
	if nativeW <= 0 || nativeH <= 0 {
		return image.Rectangle{}
	}
	sx := float64(bounds.Dx()) / nativeW
	sy := float64(bounds.Dy()) / nativeH
	px := Rect{X: r.X * sx, Y: r.Y * sy, W: r.W * sx, H: r.H * sy}.Pixels()
	return px.Add(bounds.Min).Intersect(bounds)
}

// ClampFraction cuts an annotation so that it lies within the unit square.
// Width and height may become zero when the mark lies entirely off-page.
func ClampFraction(a domain.Annotation) domain.Annotation {
	x0 := clamp01(a.X)
	y0 := clamp01(a.Y)
	x1 := clamp01(a.X + a.Width)
	y1 := clamp01(a.Y + a.Height)
	a.X, a.Y = x0, y0
	a.Width = math.Max(0, x1-x0)
	a.Height = math.Max(0, y1-y0)
	return a
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
