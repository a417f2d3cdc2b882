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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// Default values of the configuration.
const (
	DefaultBlockSize      = 30
	DefaultMedThreshold   = 5
	DefaultSmallThreshold = 8
	DefaultOutDir         = "output"

	// MinBlockSize is the smallest block size without detail mode,
	// MinDetailBlockSize the smallest with detail mode.
	MinBlockSize       = 4
	MinDetailBlockSize = 8
)

// Config contains all options of a rebuild run.
type Config struct {
	// Source is the image tiles are cut from, Dest the image that is rebuilt.
	Source, Dest string

	// BlockSize is the size of the destination cells in pixels. In detail
	// mode it is the size of the medium cells, the first pass uses cells twice
	// as large and the last pass cells half as large.
	BlockSize int

	// Types contains the channel letters ("lhsvrgb") to combine. If empty all
	// combinations are generated (unless ColorOnly is set).
	Types string

	// ColorOnly additionally generates the color-only mosaic.
	ColorOnly bool

	// NonUniform moves the boundaries of destination cells randomly.
	NonUniform bool

	// Detail enables the three pass detail mode.
	Detail bool

	// MedThreshold and SmallThreshold are the color variance thresholds
	// (1 - 10) for the first and second pass in detail mode.
	MedThreshold, SmallThreshold int

	// OutDir is the directory the mosaics are written to.
	OutDir string

	// Interpolation is the quality of the interpolation used for resizing
	// tiles, see GetInterP.
	Interpolation uint

	// NumRoutines is the number of combinations processed concurrently.
	NumRoutines int

	// Seed initializes the random generators (boundary offsets and tile
	// transformations).
	Seed int64
}

// DefaultConfig returns a config with all default values.
func DefaultConfig() Config {
	numRoutines := runtime.NumCPU()
	if numRoutines <= 0 {
		// don't know if this can happen, better safe than sorry
		numRoutines = 4
	}
	return Config{
		BlockSize:      DefaultBlockSize,
		MedThreshold:   DefaultMedThreshold,
		SmallThreshold: DefaultSmallThreshold,
		OutDir:         DefaultOutDir,
		Interpolation:  0,
		NumRoutines:    numRoutines,
		Seed:           time.Now().UnixNano(),
	}
}

// ExpandPath expands the home directory in path and returns the absolute
// path.
func ExpandPath(path string) (string, error) {
	res, pathErr := homedir.Expand(path)
	if pathErr != nil {
		return "", pathErr
	}
	return filepath.Abs(res)
}

func checkFile(kind, path string) (string, error) {
	abs, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	fi, statErr := os.Stat(abs)
	if statErr != nil || fi.IsDir() {
		return "", fmt.Errorf("Invalid %s file '%s'", kind, path)
	}
	return abs, nil
}

// Normalize validates the configuration. Invalid block sizes, thresholds and
// channel letters are corrected (a warning is logged), missing input files
// result in an error.
func (cfg *Config) Normalize() error {
	var err error
	if cfg.Source, err = checkFile("source", cfg.Source); err != nil {
		return err
	}
	if cfg.Dest, err = checkFile("destination", cfg.Dest); err != nil {
		return err
	}
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}
	if cfg.OutDir, err = ExpandPath(cfg.OutDir); err != nil {
		return err
	}
	cfg.normalizeOptions()
	return nil
}

// normalizeOptions corrects all values that don't concern files.
func (cfg *Config) normalizeOptions() {
	if cfg.Detail {
		if cfg.BlockSize < MinDetailBlockSize {
			log.Warnf("Block size too small for detail option. Clamped to %d.", MinDetailBlockSize)
			cfg.BlockSize = MinDetailBlockSize
		} else if cfg.BlockSize%2 != 0 {
			cfg.BlockSize--
			log.Warnf("Even block size needed for detail. Block size changed to '%d'.", cfg.BlockSize)
		}
	} else if cfg.BlockSize < MinBlockSize {
		cfg.BlockSize = MinBlockSize
		log.Warnf("Block size too small. Clamped to '%d'.", cfg.BlockSize)
	}

	// check for duplicate and invalid letters
	var types strings.Builder
	seen := make(map[rune]bool)
	for _, letter := range cfg.Types {
		switch _, valid := ChannelFromLetter(letter); {
		case !valid:
			log.Warnf("Invalid type '%c' ignored.", letter)
		case seen[letter]:
			log.Warnf("Duplicate type '%c' ignored.", letter)
		default:
			seen[letter] = true
			types.WriteRune(letter)
		}
	}
	cfg.Types = types.String()

	if cfg.Detail {
		if cfg.MedThreshold < 1 || cfg.MedThreshold > VarianceLevels {
			cfg.MedThreshold = DefaultMedThreshold
			log.Warnf("Medium threshold out of 1-10 range, set to '%d'.", cfg.MedThreshold)
		}
		if cfg.SmallThreshold < 1 || cfg.SmallThreshold > VarianceLevels {
			cfg.SmallThreshold = DefaultSmallThreshold
			log.Warnf("Small threshold out of 1-10 range, set to '%d'.", cfg.SmallThreshold)
		}
	}
	if cfg.NumRoutines <= 0 {
		cfg.NumRoutines = 1
	}
}

// Channels returns the channels given by Types, in the order of Types.
// Invalid letters are ignored.
func (cfg Config) Channels() []Channel {
	res := make([]Channel, 0, len(cfg.Types))
	for _, letter := range cfg.Types {
		if c, valid := ChannelFromLetter(letter); valid {
			res = append(res, c)
		}
	}
	return res
}

// Combinations returns all combinations that should be generated:
// If exactly one channel is given only this channel, if more are given all
// combinations of these channels. If no channel is given all 127 combinations
// are used, unless ColorOnly is set. The color-only combination comes last.
func (cfg Config) Combinations() []Combination {
	channels := cfg.Channels()
	var res []Combination
	switch {
	case len(channels) == 1:
		res = []Combination{NewCombination(channels[0])}
	case len(channels) > 1:
		res = BuildCombinations(channels)
	case !cfg.ColorOnly:
		res = AllCombinations()
	}
	if cfg.ColorOnly {
		res = append(res, ColorOnlyCombination())
	}
	return res
}

// CellSizes returns the cell sizes of the destination grids: Only one size
// without detail mode, otherwise the size of the first, medium and high pass.
func (cfg Config) CellSizes() []int {
	if !cfg.Detail {
		return []int{cfg.BlockSize}
	}
	return []int{cfg.BlockSize * 2, cfg.BlockSize, cfg.BlockSize / 2}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// combinationName returns the name of comb with the letters in the order of
// Types. Channels not in Types are appended in canonical order.
func (cfg Config) combinationName(comb Combination) string {
	if comb.ColorOnly {
		return comb.String()
	}
	var b strings.Builder
	var done ChannelSet
	for _, c := range cfg.Channels() {
		if comb.Channels.Has(c) && !done.Has(c) {
			b.WriteRune(c.Letter())
			done |= ChannelSet(c)
		}
	}
	for _, c := range comb.Channels.Channels() {
		if !done.Has(c) {
			b.WriteRune(c.Letter())
		}
	}
	return b.String()
}

// OutputName returns the file name for the mosaic of the given combination
// and policy, for example "portrait_memory_30n_lh_hdr.tif".
func (cfg Config) OutputName(comb Combination, policy MatchPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s_%s_%d", baseName(cfg.Dest), baseName(cfg.Source), cfg.BlockSize)
	if cfg.NonUniform {
		b.WriteString("n")
	}
	if cfg.Detail {
		b.WriteString("d")
	}
	b.WriteString("_")
	b.WriteString(cfg.combinationName(comb))
	if policy.HDR() {
		b.WriteString("_hdr")
	}
	b.WriteString(".tif")
	return b.String()
}
