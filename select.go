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

import "fmt"

// MatchPolicy describes how a destination cell is mapped to a source cell.
//
// ToneMatched uses the score of the destination cell as index in the source
// lookup table. Only source cells at indices that appear as destination scores
// are used, but tones are preserved.
//
// FullCoverage (also called hdr) scales the rank of the destination cell in
// its lookup table to the range of the source lookup table. Every part of the
// source range is used, but cells are matched by rank and not by value.
type MatchPolicy int

const (
	ToneMatched MatchPolicy = iota
	FullCoverage
)

// Policies contains both policies in the order outputs are generated.
var Policies = []MatchPolicy{ToneMatched, FullCoverage}

func (p MatchPolicy) String() string {
	switch p {
	case ToneMatched:
		return "tone-matched"
	case FullCoverage:
		return "hdr"
	default:
		return fmt.Sprintf("MatchPolicy(%d)", p)
	}
}

// HDR returns true for FullCoverage.
func (p MatchPolicy) HDR() bool {
	return p == FullCoverage
}

// selector returns 1 for FullCoverage and 0 otherwise.
func (p MatchPolicy) selector() int {
	if p.HDR() {
		return 1
	}
	return 0
}

// SourceIndex returns the index in the source lookup table for the destination
// entry at rank i with the given score.
// Both formulas are evaluated, the policy selects one of them by a factor
// 0 or 1.
//
// destCount must be > 0.
func (p MatchPolicy) SourceIndex(i, score, srcCount, destCount int) int {
	scaleMult := p.selector()
	destMult := 1 - scaleMult
	return (i*srcCount/destCount)*scaleMult + score*destMult
}

// Assignment maps a destination cell to a source cell.
type Assignment struct {
	// DestRank and SourceRank are the positions in the lookup tables.
	DestRank, SourceRank int
	// DestCell and SourceCell are the row-major cell indices.
	DestCell, SourceCell int
}

// Match computes the source cell of each destination cell given the lookup
// tables of both grids. The result is ordered as dest.
//
// An error wrapping ErrIndexOutOfRange is returned if a destination cell is
// mapped outside of src, this happens if the scores of dest exceed the size of
// src.
func Match(src, dest FingerprintLUT, policy MatchPolicy) ([]Assignment, error) {
	srcCount, destCount := len(src), len(dest)
	if srcCount == 0 || destCount == 0 {
		return nil, fmt.Errorf("Can't match %d source and %d destination cells: %w",
			srcCount, destCount, ErrInvalidGridGeometry)
	}
	res := make([]Assignment, destCount)
	for i, entry := range dest {
		j := policy.SourceIndex(i, entry.Score, srcCount, destCount)
		if j < 0 || j >= srcCount {
			return nil, fmt.Errorf("Destination cell %d mapped to source index %d of %d: %w",
				entry.Cell, j, srcCount, ErrIndexOutOfRange)
		}
		res[i] = Assignment{
			DestRank:   i,
			SourceRank: j,
			DestCell:   entry.Cell,
			SourceCell: src[j].Cell,
		}
	}
	return res, nil
}
