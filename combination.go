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
	"math/bits"
	"strings"
)

// Channel is one of the statistics computed for each cell.
type Channel uint8

const (
	Luminance Channel = 1 << iota
	Hue
	Saturation
	Value
	Red
	Green
	Blue
)

// ColorOnlyLetter is the name of the color-only combination.
const ColorOnlyLetter = 'c'

// AllChannels contains all channels in their canonical order "lhsvrgb".
var AllChannels = []Channel{Luminance, Hue, Saturation, Value, Red, Green, Blue}

// The following variables map channels to their one letter names.

var (
	channelLetters map[Channel]rune
	letterChannels map[rune]Channel
)

func init() {
	channelLetters = map[Channel]rune{
		Luminance:  'l',
		Hue:        'h',
		Saturation: 's',
		Value:      'v',
		Red:        'r',
		Green:      'g',
		Blue:       'b',
	}
	letterChannels = make(map[rune]Channel, len(channelLetters))
	for c, letter := range channelLetters {
		letterChannels[letter] = c
	}
}

// Letter returns the one letter name of the channel.
func (c Channel) Letter() rune {
	if letter, has := channelLetters[c]; has {
		return letter
	}
	return '?'
}

func (c Channel) String() string {
	return string(c.Letter())
}

// ChannelFromLetter returns the channel with the given name (one of
// "lhsvrgb"). The result is false if there is no such channel.
func ChannelFromLetter(letter rune) (Channel, bool) {
	c, has := letterChannels[letter]
	return c, has
}

// ChannelSet is a set of channels.
type ChannelSet uint8

// NewChannelSet returns the set containing all given channels.
func NewChannelSet(channels ...Channel) ChannelSet {
	var res ChannelSet
	for _, c := range channels {
		res |= ChannelSet(c)
	}
	return res
}

// Has checks if c is in the set.
func (set ChannelSet) Has(c Channel) bool {
	return set&ChannelSet(c) != 0
}

// Len returns the number of channels in the set.
func (set ChannelSet) Len() int {
	return bits.OnesCount8(uint8(set))
}

// Channels returns the channels of the set in canonical order.
func (set ChannelSet) Channels() []Channel {
	res := make([]Channel, 0, set.Len())
	for _, c := range AllChannels {
		if set.Has(c) {
			res = append(res, c)
		}
	}
	return res
}

// Combination describes how the fingerprint of a cell is computed: Either
// as the mean of the selected channels or, if ColorOnly is set, as the mean of
// the cell's r, g and b values. In the later case tiles are not cut from the
// source image but painted with the mean color of the source cell.
//
// ColorOnly is never combined with any channel.
type Combination struct {
	Channels  ChannelSet
	ColorOnly bool
}

// NewCombination returns the combination of the given channels.
func NewCombination(channels ...Channel) Combination {
	return Combination{Channels: NewChannelSet(channels...)}
}

// ColorOnlyCombination returns the color-only combination.
func ColorOnlyCombination() Combination {
	return Combination{ColorOnly: true}
}

// ParseCombination parses a combination from its name, for example "l",
// "hsv" or "c" for color-only.
func ParseCombination(s string) (Combination, error) {
	var res Combination
	for _, letter := range strings.ToLower(s) {
		if letter == ColorOnlyLetter {
			res.ColorOnly = true
			continue
		}
		c, has := ChannelFromLetter(letter)
		if !has {
			return Combination{}, fmt.Errorf("Unknown channel '%c' in %q: %w",
				letter, s, ErrCombinationMismatch)
		}
		res.Channels |= ChannelSet(c)
	}
	if err := res.Validate(); err != nil {
		return Combination{}, err
	}
	return res, nil
}

// Validate returns an error wrapping ErrCombinationMismatch if the combination
// is empty or color-only is combined with channels.
func (comb Combination) Validate() error {
	switch {
	case comb.ColorOnly && comb.Channels != 0:
		return fmt.Errorf("Color-only can't be combined with %q: %w",
			comb.channelString(), ErrCombinationMismatch)
	case !comb.ColorOnly && comb.Channels == 0:
		return fmt.Errorf("Empty combination: %w", ErrCombinationMismatch)
	default:
		return nil
	}
}

// Score computes the fingerprint of a cell: The integer mean of the selected
// channels, or for color-only the integer mean of r, g and b.
// The combination must be valid.
func (comb Combination) Score(stats CellStats) int {
	if comb.ColorOnly {
		return (stats.R + stats.G + stats.B) / 3
	}
	sum := 0
	for _, c := range comb.Channels.Channels() {
		sum += stats.Channel(c)
	}
	return sum / comb.Channels.Len()
}

func (comb Combination) channelString() string {
	var b strings.Builder
	for _, c := range comb.Channels.Channels() {
		b.WriteRune(c.Letter())
	}
	return b.String()
}

// String returns the name of the combination, for example "lh" or "c".
func (comb Combination) String() string {
	if comb.ColorOnly {
		return string(ColorOnlyLetter)
	}
	return comb.channelString()
}

// BuildCombinations returns all non-empty subsets of channels. The subsets
// are ordered by size first and then by the position of their elements in
// channels. For "lhs" this yields l, h, s, lh, ls, hs, lhs.
func BuildCombinations(channels []Channel) []Combination {
	n := len(channels)
	res := make([]Combination, 0, (1<<uint(n))-1)
	// indices of the current subset
	indices := make([]int, 0, n)
	var rec func(start, k int)
	rec = func(start, k int) {
		if len(indices) == k {
			comb := Combination{}
			for _, i := range indices {
				comb.Channels |= ChannelSet(channels[i])
			}
			res = append(res, comb)
			return
		}
		for i := start; i < n; i++ {
			indices = append(indices, i)
			rec(i+1, k)
			indices = indices[:len(indices)-1]
		}
	}
	for k := 1; k <= n; k++ {
		rec(0, k)
	}
	return res
}

// AllCombinations returns all 127 combinations of the channels "lhsvrgb".
func AllCombinations() []Combination {
	return BuildCombinations(AllChannels)
}
