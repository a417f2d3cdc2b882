// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rebuilder

import (
	"fmt"
	"image"
)

const (
	// HueDivisor is used to scale the average hue. Hues are in [0, 360), the
	// divisor 359 is kept for compatibility with fingerprints computed by
	// earlier versions of the rebuilder.
	HueDivisor = 359.0

	// VarianceLevels is the upper bound of the color variance of a cell.
	VarianceLevels = 10
)

// CellStats contains the averages of a grid cell, scaled to [0, maxValue].
//
// The mean color is stored unscaled and is used for color-only mosaics.
type CellStats struct {
	L, H, S, V, R, G, B int
	// Variance is the number of distinct colors in the cell scaled to
	// [0, VarianceLevels].
	Variance int
	// Mean is the average color of the cell.
	Mean RGB
}

// Channel returns the scaled average of the given channel.
func (s CellStats) Channel(c Channel) int {
	switch c {
	case Luminance:
		return s.L
	case Hue:
		return s.H
	case Saturation:
		return s.S
	case Value:
		return s.V
	case Red:
		return s.R
	case Green:
		return s.G
	case Blue:
		return s.B
	default:
		return 0
	}
}

// RGBToHSV converts an rgb color to hsv. h is in degrees [0, 360), s in [0, 1]
// and v is the maximum of the rgb components (that is in [0, 255]).
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	minRGB := MinUint8(r, g, b)
	maxRGB := MaxUint8(r, g, b)
	v = float64(maxRGB)
	if maxRGB == 0 {
		// r = g = b = 0, h is undefined
		return 0, 0, v
	}
	delta := float64(maxRGB) - float64(minRGB)
	s = delta / float64(maxRGB)

	fr, fg, fb := float64(r), float64(g), float64(b)
	switch {
	case minRGB == maxRGB:
		h = 0
	case r == maxRGB:
		// between yellow and magenta
		h = (fg - fb) / delta
	case g == maxRGB:
		// between cyan and yellow
		h = 2 + (fb-fr)/delta
	default:
		// between magenta and cyan
		h = 4 + (fr-fg)/delta
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// ComputeCellStats computes the statistics of the area r in img.
// The hsv conversion is done for each distinct color, not on the average rgb
// value.
//
// An error wrapping ErrEmptyCellRegion is returned if r contains no pixels of
// img.
func ComputeCellStats(img image.Image, r image.Rectangle, maxValue int) (CellStats, error) {
	hist := GenColorHistogram(img, r)
	if hist.Pixels == 0 {
		return CellStats{}, fmt.Errorf("Cell %v contains no pixels: %w", r, ErrEmptyCellRegion)
	}
	var rSum, gSum, bSum int64
	var hSum, sSum, vSum float64
	for _, entry := range hist.Entries {
		c, n := entry.Color, entry.Count
		rSum += int64(c.R) * int64(n)
		gSum += int64(c.G) * int64(n)
		bSum += int64(c.B) * int64(n)
		h, s, v := RGBToHSV(c.R, c.G, c.B)
		hSum += h * float64(n)
		sSum += s * float64(n)
		vSum += v * float64(n)
	}
	size := float64(hist.Pixels)
	avgR := float64(rSum) / size
	avgG := float64(gSum) / size
	avgB := float64(bSum) / size
	avgL := avgR*0.299 + avgG*0.587 + avgB*0.114
	avgH := hSum / size
	avgS := sSum / size
	avgV := vSum / size

	max := float64(maxValue)
	return CellStats{
		L:        int(avgL / 255.0 * max),
		H:        int(avgH / HueDivisor * max),
		S:        int(avgS * max),
		V:        int(avgV / 255.0 * max),
		R:        int(avgR / 255.0 * max),
		G:        int(avgG / 255.0 * max),
		B:        int(avgB / 255.0 * max),
		Variance: int(float64(hist.NumColors()) / size * VarianceLevels),
		Mean:     RGB{R: uint8(avgR), G: uint8(avgG), B: uint8(avgB)},
	}, nil
}
