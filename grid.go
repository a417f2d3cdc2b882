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
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
)

// GridImage is an image together with a grid partition over it. It is used
// both for the source image (the tile donor) and the destination images.
//
// The workflow is as follows: Create a GridImage with NewGridImage, call
// Partition to compute the grid, ComputeStatistics to compute the averages of
// each cell and then BuildFingerprintLUT for each combination that should be
// processed. Each call of BuildFingerprintLUT replaces the previous lookup
// table.
//
// The image itself is never modified, several grids may share the same image
// (see Borrow).
type GridImage struct {
	// NumRoutines is the number of go routines used in ComputeStatistics.
	NumRoutines int

	img        image.Image
	nonUniform bool
	detail     bool
	geometry   GridGeometry
	stats      []CellStats
	lut        FingerprintLUT
	comb       Combination
}

// NewGridImage returns a new grid image. nonUniform describes whether the
// cell boundaries of a destination grid are moved randomly, detail whether
// the image is used in detail mode.
func NewGridImage(img image.Image, nonUniform, detail bool) *GridImage {
	return &GridImage{
		NumRoutines: 1,
		img:         img,
		nonUniform:  nonUniform,
		detail:      detail,
	}
}

// Borrow returns a new grid on the same image, the image is not copied.
// This is used for the medium and high resolution grids in detail mode.
func (g *GridImage) Borrow() *GridImage {
	res := NewGridImage(g.img, g.nonUniform, g.detail)
	res.NumRoutines = g.NumRoutines
	return res
}

// Partition computes the grid.
//
// If cellSize is 0 the image is treated as source image and divided into at
// most MaxSourceCells cells (see SourceGeometry).
// Otherwise the image is a destination image and divided into cells of size
// cellSize (see DestinationGeometry). widthOverride and heightOverride replace
// the size of the image if both are > 0, this is used to give grids with
// different cell sizes exactly the same extent.
//
// rnd is used to move the boundaries of non-uniform destination grids. If it
// is nil a new generator is created.
func (g *GridImage) Partition(cellSize, widthOverride, heightOverride int, rnd Intner) error {
	bounds := g.img.Bounds()
	var geometry GridGeometry
	var err error
	if cellSize <= 0 {
		geometry, err = SourceGeometry(bounds.Dx(), bounds.Dy())
	} else {
		width, height := bounds.Dx(), bounds.Dy()
		if widthOverride > 0 && heightOverride > 0 {
			width, height = widthOverride, heightOverride
		}
		var jitter Intner
		if g.nonUniform {
			jitter = rnd
			if jitter == nil {
				jitter = rand.New(rand.NewSource(time.Now().UnixNano()))
			}
		}
		geometry, err = DestinationGeometry(width, height, cellSize, jitter)
	}
	if err != nil {
		return err
	}
	g.geometry = geometry
	g.stats = nil
	g.lut = nil
	if Debug {
		log.WithFields(log.Fields{
			"rows":  geometry.NumRows,
			"cols":  geometry.NumCols,
			"cellW": geometry.CellWidth,
			"cellH": geometry.CellHeight,
		}).Debug("Partitioned image")
	}
	return nil
}

// ComputeStatistics computes the statistics of each cell, all values are
// scaled to [0, maxValue]. Partition must be called before.
// Cells are processed concurrently by NumRoutines go routines.
func (g *GridImage) ComputeStatistics(maxValue int) error {
	if err := g.geometry.Validate(); err != nil {
		return err
	}
	numRoutines := g.NumRoutines
	if numRoutines <= 0 {
		numRoutines = 1
	}
	numCells := g.geometry.NumCells()
	origin := g.img.Bounds().Min
	stats := make([]CellStats, numCells)

	jobs := make(chan int, BufferSize)
	errorChan := make(chan error, BufferSize)

	for w := 0; w < numRoutines; w++ {
		go func() {
			for i := range jobs {
				area := g.geometry.Cell(i).Add(origin)
				s, statsErr := ComputeCellStats(g.img, area, maxValue)
				stats[i] = s
				errorChan <- statsErr
			}
		}()
	}
	go func() {
		for i := 0; i < numCells; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	// any error that occurs sets this variable (first error)
	var err error
	for i := 0; i < numCells; i++ {
		nextErr := <-errorChan
		if nextErr != nil && err == nil {
			err = nextErr
		}
	}
	if err != nil {
		return err
	}
	g.stats = stats
	g.lut = nil
	return nil
}

// FingerprintLUT computes the lookup table for the given combination without
// storing it in the grid. It can be used concurrently as long as the grid
// isn't modified.
func (g *GridImage) FingerprintLUT(comb Combination) (FingerprintLUT, error) {
	if len(g.stats) != g.geometry.NumCells() || g.stats == nil {
		return nil, fmt.Errorf("Statistics for %d cells not computed: %w",
			g.geometry.NumCells(), ErrInvalidGridGeometry)
	}
	return NewFingerprintLUT(g.stats, comb)
}

// BuildFingerprintLUT computes the lookup table for comb and replaces the
// current lookup table with it.
func (g *GridImage) BuildFingerprintLUT(comb Combination) error {
	lut, err := g.FingerprintLUT(comb)
	if err != nil {
		return err
	}
	g.lut = lut
	g.comb = comb
	return nil
}

// WithLUT returns a shallow copy of the grid that uses lut as its lookup
// table. Image, geometry and statistics are shared with g.
//
// This way lookup tables for different combinations can be used at the same
// time.
func (g *GridImage) WithLUT(comb Combination, lut FingerprintLUT) *GridImage {
	res := *g
	res.lut = lut
	res.comb = comb
	return &res
}

// Image returns the underlying image.
func (g *GridImage) Image() image.Image {
	return g.img
}

// NonUniform returns true if the grid was created for non-uniform cells.
func (g *GridImage) NonUniform() bool {
	return g.nonUniform
}

// Detail returns true if the grid is used in detail mode.
func (g *GridImage) Detail() bool {
	return g.detail
}

// Geometry returns the grid geometry computed by Partition.
func (g *GridImage) Geometry() GridGeometry {
	return g.geometry
}

// NumCells returns the number of cells in the grid.
func (g *GridImage) NumCells() int {
	return g.geometry.NumCells()
}

// CellArea returns the area of cell i in the coordinates of the image.
func (g *GridImage) CellArea(i int) image.Rectangle {
	return g.geometry.Cell(i).Add(g.img.Bounds().Min)
}

// Stats returns the statistics computed by ComputeStatistics.
func (g *GridImage) Stats() []CellStats {
	return g.stats
}

// LUT returns the current lookup table, nil if none was built yet.
func (g *GridImage) LUT() FingerprintLUT {
	return g.lut
}

// Combination returns the combination of the current lookup table.
func (g *GridImage) Combination() Combination {
	return g.comb
}
