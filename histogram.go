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
	"sort"
	"strings"
)

// ColorCount is an entry in a ColorHistogram: A color together with the number
// of pixels that have this color.
type ColorCount struct {
	Color RGB
	Count int
}

// ColorHistogram describes the colors that appear in an area of an image.
// Only colors that appear at least once are stored, each distinct color
// exactly once.
//
// Entries are sorted by the id of the color (see RGBID), thus two histograms
// of the same area always iterate the colors in the same order.
type ColorHistogram struct {
	Entries []ColorCount
	// Pixels is the number of pixels the histogram was created from.
	Pixels int
}

// GenColorHistogram counts the distinct colors in the area r of img.
// r is intersected with the bounds of the image first; if the intersection is
// empty the histogram is empty as well.
func GenColorHistogram(img image.Image, r image.Rectangle) *ColorHistogram {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return &ColorHistogram{}
	}
	counts := make(map[uint]int)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			counts[ConvertRGB(img.At(x, y)).ID()]++
		}
	}
	ids := make([]uint, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	entries := make([]ColorCount, len(ids))
	for i, id := range ids {
		c := RGB{
			R: uint8(id % ColorLevels),
			G: uint8((id / ColorLevels) % ColorLevels),
			B: uint8(id / (ColorLevels * ColorLevels)),
		}
		entries[i] = ColorCount{Color: c, Count: counts[id]}
	}
	return &ColorHistogram{Entries: entries, Pixels: r.Dx() * r.Dy()}
}

// NumColors returns the number of distinct colors.
func (h *ColorHistogram) NumColors() int {
	return len(h.Entries)
}

// String returns a tuple representation of the histogram.
func (h *ColorHistogram) String() string {
	strs := make([]string, len(h.Entries))
	for i, entry := range h.Entries {
		strs[i] = fmt.Sprintf("%v: %d", entry.Color, entry.Count)
	}
	return "〈" + strings.Join(strs, ", ") + "〉"
}
