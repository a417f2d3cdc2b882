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

import "sort"

// LUTEntry is an entry in a FingerprintLUT.
type LUTEntry struct {
	// Cell is the row-major index of the cell in its grid.
	Cell int
	// Score is the fingerprint of the cell.
	Score int
	// Variance is the color variance of the cell, see CellStats.
	Variance int
	// Color is the mean color of the cell, only set for color-only
	// combinations.
	Color RGB
}

// FingerprintLUT contains one entry for each cell of a grid, sorted by the
// score of the cells. Cells with equal scores keep their row-major order.
type FingerprintLUT []LUTEntry

// NewFingerprintLUT computes the fingerprint of each cell given the
// combination and returns the sorted lookup table.
func NewFingerprintLUT(stats []CellStats, comb Combination) (FingerprintLUT, error) {
	if err := comb.Validate(); err != nil {
		return nil, err
	}
	res := make(FingerprintLUT, len(stats))
	for i, s := range stats {
		entry := LUTEntry{
			Cell:     i,
			Score:    comb.Score(s),
			Variance: s.Variance,
		}
		if comb.ColorOnly {
			entry.Color = s.Mean
		}
		res[i] = entry
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Score < res[j].Score
	})
	return res, nil
}

// IsSorted checks if the scores are non-decreasing.
func (lut FingerprintLUT) IsSorted() bool {
	return sort.SliceIsSorted(lut, func(i, j int) bool {
		return lut[i].Score < lut[j].Score
	})
}

// Scores returns the scores of all entries in the order of the lookup table.
func (lut FingerprintLUT) Scores() []int {
	res := make([]int, len(lut))
	for i, entry := range lut {
		res[i] = entry.Score
	}
	return res
}
