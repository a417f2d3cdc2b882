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

// Package rebuilder rebuilds a "destination" image as a mosaic made entirely
// from tiles cut out of a single "source" image.
//
// Both images are divided into grids (see GridImage). For each grid cell a set
// of statistics is computed (luminance, hue, saturation, value and the red,
// green and blue channel). A combination of these statistics (for example
// "lh" for the mean of luminance and hue) yields a scalar fingerprint for each
// cell, the cells are then sorted by this fingerprint. The Composer replaces
// each destination cell by a source cell found through these sorted lookup
// tables, either by the fingerprint value itself (tone-matched) or by the rank
// of the destination cell (full-coverage, also called hdr).
//
// In detail mode three destination grids with decreasing cell sizes are
// painted on top of each other, cells with a low color variance are not
// refined any further.
//
// It ships with an executable program (cmd/rebuild) that generates all
// requested combinations and stores them as TIFF files.
package rebuilder
