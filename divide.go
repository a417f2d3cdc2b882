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
	"math"
)

const (
	// MaxSourceCells is the maximal number of cells in a source grid.
	MaxSourceCells = 256
)

// Intner is a source of random numbers, *rand.Rand implements it.
// Intn returns a number in [0, n).
type Intner interface {
	Intn(n int) int
}

// TileDivision represents the divison of an image into rectangles.
//
// Tiles are not stored in the fashion (x, y) but (y, x). That means each entry
// in the division describes one row of the image.
// The get method does this correctly.
type TileDivision [][]image.Rectangle

// Get returns the rectangle at position div[y][x], that is the rectangle
// in row y and column x.
func (div TileDivision) Get(x, y int) image.Rectangle {
	return div[y][x]
}

// GridGeometry describes the partition of an image into a grid of cells.
//
// All cells have the nominal size CellWidth x CellHeight, but the boundaries
// between two rows (columns) can be moved by an offset. RowOffsets contains
// NumRows + 1 entries (one for each boundary), the first and last entry are
// always 0. The same holds for ColOffsets. For uniform grids all offsets are 0.
//
// Cells are identified by their row-major index i = row * NumCols + col.
type GridGeometry struct {
	CellWidth, CellHeight int
	NumRows, NumCols      int
	RowOffsets            []int
	ColOffsets            []int
}

// NumCells returns the number of cells in the grid.
func (g GridGeometry) NumCells() int {
	return g.NumRows * g.NumCols
}

// Validate returns an error wrapping ErrInvalidGridGeometry if the grid has no
// cells or the offset lists have the wrong length.
func (g GridGeometry) Validate() error {
	switch {
	case g.CellWidth <= 0 || g.CellHeight <= 0:
		return fmt.Errorf("Cell size must be positive, got %dx%d: %w",
			g.CellWidth, g.CellHeight, ErrInvalidGridGeometry)
	case g.NumRows <= 0 || g.NumCols <= 0:
		return fmt.Errorf("Grid must have at least one row and column, got %d rows and %d columns: %w",
			g.NumRows, g.NumCols, ErrInvalidGridGeometry)
	case len(g.RowOffsets) != g.NumRows+1 || len(g.ColOffsets) != g.NumCols+1:
		return fmt.Errorf("Expected %d row and %d column offsets, got %d and %d: %w",
			g.NumRows+1, g.NumCols+1, len(g.RowOffsets), len(g.ColOffsets),
			ErrInvalidGridGeometry)
	default:
		return nil
	}
}

// Cell returns the pixel area of cell i (relative to an image that starts
// at (0, 0)), including the offsets of its boundaries.
func (g GridGeometry) Cell(i int) image.Rectangle {
	row, col := i/g.NumCols, i%g.NumCols
	x0 := col*g.CellWidth + g.ColOffsets[col]
	x1 := col*g.CellWidth + g.CellWidth + g.ColOffsets[col+1]
	y0 := row*g.CellHeight + g.RowOffsets[row]
	y1 := row*g.CellHeight + g.CellHeight + g.RowOffsets[row+1]
	return image.Rect(x0, y0, x1, y1)
}

// Division returns the areas of all cells as a TileDivision.
func (g GridGeometry) Division() TileDivision {
	res := make(TileDivision, g.NumRows)
	for row := 0; row < g.NumRows; row++ {
		res[row] = make([]image.Rectangle, g.NumCols)
		for col := 0; col < g.NumCols; col++ {
			res[row][col] = g.Cell(row*g.NumCols + col)
		}
	}
	return res
}

// SourceGeometry divides an image of the given size into at most
// MaxSourceCells cells shaped to the aspect ratio of the image.
// Source grids are always uniform.
func SourceGeometry(width, height int) (GridGeometry, error) {
	if width <= 0 || height <= 0 {
		return GridGeometry{}, fmt.Errorf("Can't divide an image of size %dx%d: %w",
			width, height, ErrInvalidGridGeometry)
	}
	aspect := float64(width) / float64(height)
	rows := math.Sqrt(float64(MaxSourceCells) / aspect)
	cols := aspect * rows
	numRows := int(math.RoundToEven(rows))
	numCols := int(math.RoundToEven(cols))
	if numRows <= 0 || numCols <= 0 {
		return GridGeometry{}, fmt.Errorf("Image of size %dx%d is too narrow: %w",
			width, height, ErrInvalidGridGeometry)
	}
	res := GridGeometry{
		CellWidth:  width / numCols,
		CellHeight: height / numRows,
		NumRows:    numRows,
		NumCols:    numCols,
		RowOffsets: make([]int, numRows+1),
		ColOffsets: make([]int, numCols+1),
	}
	if err := res.Validate(); err != nil {
		return GridGeometry{}, err
	}
	return res, nil
}

// DestinationGeometry divides an area of the given size into square cells of
// size cellSize. Remaining pixels on the right and bottom are not covered.
//
// If rnd is not nil the grid becomes non-uniform: each inner boundary is moved
// by a random offset in [-cellSize/3, cellSize/3]. Note that for cell sizes
// smaller than 3 this range is empty and the grid stays uniform.
func DestinationGeometry(width, height, cellSize int, rnd Intner) (GridGeometry, error) {
	if cellSize <= 0 {
		return GridGeometry{}, fmt.Errorf("Cell size must be positive, got %d: %w",
			cellSize, ErrInvalidGridGeometry)
	}
	numRows, numCols := height/cellSize, width/cellSize
	res := GridGeometry{
		CellWidth:  cellSize,
		CellHeight: cellSize,
		NumRows:    numRows,
		NumCols:    numCols,
		RowOffsets: JitterOffsets(numRows+1, cellSize, rnd),
		ColOffsets: JitterOffsets(numCols+1, cellSize, rnd),
	}
	if err := res.Validate(); err != nil {
		return GridGeometry{}, err
	}
	return res, nil
}

// JitterOffsets returns n boundary offsets, each drawn uniformly from
// [-cellSize/3, cellSize/3]. The first and the last offset are always 0, so
// the grid never leaves the image.
// If rnd is nil all offsets are 0.
//
// Two neighbouring boundaries move at most 2/3 of the cell size towards each
// other, thus each cell keeps at least one pixel.
func JitterOffsets(n, cellSize int, rnd Intner) []int {
	res := make([]int, n)
	if rnd == nil || n == 0 {
		return res
	}
	bound := cellSize / 3
	for i := range res {
		res[i] = rnd.Intn(2*bound+1) - bound
	}
	res[0] = 0
	res[n-1] = 0
	return res
}
