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
	"sync"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

var (
	// ImageCacheSize is the size of tile caches. Cutting, transforming and
	// resizing source tiles is not very fast and the same source cell is
	// usually used many times, so composers cache the prepared tiles.
	// It must be a number ≥ 1.
	ImageCacheSize = 512
)

// tileKey identifies a prepared source tile.
type tileKey struct {
	cell          int
	transform     TileTransform
	width, height int
}

// ImageCache is used to cache prepared tiles during mosaic generation.
// If the cache is full the tile that was inserted first is removed.
//
// Caches are safe for concurrent use.
type ImageCache struct {
	m           *sync.Mutex
	size        int
	content     map[tileKey]image.Image
	insertOrder []tileKey
}

// NewImageCache returns an empty image cache. size is the number of images that
// will be cached. size must be ≥ 1.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = 1
	}
	var m sync.Mutex
	return &ImageCache{
		m:           &m,
		size:        size,
		content:     make(map[tileKey]image.Image, size),
		insertOrder: make([]tileKey, 0, size),
	}
}

// Put adds a tile to the cache. Usually Put is called after Get: If the
// tile was not found in the cache it is created and then added via Put.
func (cache *ImageCache) Put(cell int, t TileTransform, width, height int, img image.Image) {
	cache.m.Lock()
	defer cache.m.Unlock()
	key := tileKey{cell, t, width, height}
	// first check if image already in cache, if yes do nothing
	if _, has := cache.content[key]; has {
		return
	}
	// check if cache is full
	if len(cache.insertOrder) < cache.size {
		cache.insertOrder = append(cache.insertOrder, key)
		cache.content[key] = img
	} else {
		// cache full, remove first element form cache
		// since size must be >= 1 this should be fine
		fst := cache.insertOrder[0]
		cache.insertOrder = append(cache.insertOrder[1:], key)
		delete(cache.content, fst)
		cache.content[key] = img
	}
}

// Get returns the tile from the cache. If the return value is nil the tile
// was not found in the cache and should be added to the cache by Put.
func (cache *ImageCache) Get(cell int, t TileTransform, width, height int) image.Image {
	cache.m.Lock()
	defer cache.m.Unlock()
	return cache.content[tileKey{cell, t, width, height}]
}

// Len returns the number of cached tiles.
func (cache *ImageCache) Len() int {
	cache.m.Lock()
	defer cache.m.Unlock()
	return len(cache.insertOrder)
}

// SkipList is the set of destination cells of one pass that have a color
// variance below the threshold of that pass. The cells inside these cells
// are not painted in the next pass.
type SkipList map[int]struct{}

// Add adds a cell to the list.
func (l SkipList) Add(cell int) {
	l[cell] = struct{}{}
}

// Has checks if the cell is in the list.
func (l SkipList) Has(cell int) bool {
	_, has := l[cell]
	return has
}

// Sorted returns all cells in ascending order.
func (l SkipList) Sorted() []int {
	res := make([]int, 0, len(l))
	for cell := range l {
		res = append(res, cell)
	}
	sort.Ints(res)
	return res
}

// OuterCell returns the index of the cell in the previous (coarser) pass that
// contains cell. cols is the number of columns in the current pass, it must be
// twice the number of columns in the previous pass.
func OuterCell(cell, cols int) int {
	y := cell / (cols * 2)
	x := (cell % cols) / 2
	return y*(cols/2) + x
}

// Pass is one layer of the mosaic: A destination grid together with the
// variance threshold of that layer.
type Pass struct {
	Grid      *GridImage
	Threshold int
}

// SinglePass returns the passes for a mosaic without detail layers.
func SinglePass(dest *GridImage, threshold int) []Pass {
	return []Pass{{Grid: dest, Threshold: threshold}}
}

// DetailPasses returns the three passes used in detail mode: dest with
// medThreshold, med with smallThreshold and high without a threshold.
func DetailPasses(dest, med, high *GridImage, medThreshold, smallThreshold int) []Pass {
	return []Pass{
		{Grid: dest, Threshold: medThreshold},
		{Grid: med, Threshold: smallThreshold},
		{Grid: high, Threshold: 0},
	}
}

// Placement describes one tile painted into the mosaic.
type Placement struct {
	Pass       int
	DestCell   int
	SourceCell int
	// SourceRank is the index in the source lookup table.
	SourceRank int
	// Area is the area of the mosaic the tile was painted to.
	Area      image.Rectangle
	Transform TileTransform
}

// Composition is the result of Composer.Compose.
type Composition struct {
	Image *image.RGBA
	// SkipLists contains the skip list of each pass.
	SkipLists []SkipList
	// Placements lists all painted tiles in the order they were painted.
	Placements []Placement
}

// Composer builds mosaics from a source grid and one or more destination
// grids.
//
// A Composer is not safe for concurrent use because Picker usually isn't, but
// several composers may share the same Cache.
type Composer struct {
	Resizer ImageResizer
	Picker  TransformPicker
	Cache   *ImageCache
}

// NewComposer returns a new composer. If resizer is nil DefaultResizer is used,
// if picker is nil a RandomTransformPicker. If cache is nil a new cache of
// size ImageCacheSize is created.
func NewComposer(resizer ImageResizer, picker TransformPicker, cache *ImageCache) *Composer {
	if resizer == nil {
		resizer = DefaultResizer
	}
	if picker == nil {
		picker = NewRandomTransformPicker(nil)
	}
	if cache == nil {
		cache = NewImageCache(ImageCacheSize)
	}
	return &Composer{Resizer: resizer, Picker: picker, Cache: cache}
}

// sourceTile returns the source cell prepared for an area of the given size.
func (c *Composer) sourceTile(src *GridImage, cell int, t TileTransform, width, height int) image.Image {
	if tile := c.Cache.Get(cell, t, width, height); tile != nil {
		return tile
	}
	var tile image.Image = imaging.Crop(src.Image(), src.CellArea(cell))
	tile = t.Apply(tile)
	bounds := tile.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		tile = c.Resizer.Resize(uint(width), uint(height), tile)
	}
	c.Cache.Put(cell, t, width, height, tile)
	return tile
}

func checkPass(src *GridImage, passes []Pass, index int) error {
	p := passes[index]
	switch {
	case p.Grid == nil:
		return fmt.Errorf("Pass %d has no destination grid: %w", index, ErrInvalidGridGeometry)
	case p.Grid.LUT() == nil:
		return fmt.Errorf("Pass %d: %w", index, ErrNoLUT)
	case p.Grid.Combination() != src.Combination():
		return fmt.Errorf("Pass %d uses combination %v, source uses %v: %w",
			index, p.Grid.Combination(), src.Combination(), ErrCombinationMismatch)
	case index == 0:
		return nil
	}
	prev, cur := passes[index-1].Grid.Geometry(), p.Grid.Geometry()
	if cur.NumCols != 2*prev.NumCols || cur.NumRows != 2*prev.NumRows {
		return fmt.Errorf("Pass %d has %dx%d cells, want twice the %dx%d cells of pass %d: %w",
			index, cur.NumCols, cur.NumRows, prev.NumCols, prev.NumRows, index-1, ErrInvalidGridGeometry)
	}
	return nil
}

// Compose builds the mosaic. src is the source grid, its lookup table must be
// built for the same combination as the lookup tables of all passes.
//
// The size of the mosaic is given by the first pass: The number of columns
// times the cell size and the number of rows times the cell size.
//
// Passes are painted in order. If more than one pass is given each pass
// after the first must have twice the columns and rows of its predecessor.
// A cell with a color variance below the threshold of its pass is added to
// the skip list of that pass (but painted normally). A cell in a later pass
// whose containing cell in the previous pass is in the previous skip list is
// not painted at all and added to the skip list of its own pass.
func (c *Composer) Compose(src *GridImage, policy MatchPolicy, passes ...Pass) (*Composition, error) {
	if len(passes) == 0 {
		return nil, fmt.Errorf("No destination grid given: %w", ErrInvalidGridGeometry)
	}
	srcLUT := src.LUT()
	if srcLUT == nil {
		return nil, fmt.Errorf("Source grid: %w", ErrNoLUT)
	}
	srcCount := len(srcLUT)
	if srcCount == 0 {
		return nil, fmt.Errorf("Source grid has no cells: %w", ErrInvalidGridGeometry)
	}
	for i := range passes {
		if err := checkPass(src, passes, i); err != nil {
			return nil, err
		}
	}
	colorOnly := src.Combination().ColorOnly

	// the mosaic has the size given by the user, that is the number of cells
	// times the cell size of the first pass
	first := passes[0].Grid.Geometry()
	outBounds := image.Rect(0, 0, first.NumCols*first.CellWidth, first.NumRows*first.CellHeight)
	res := &Composition{
		Image:     image.NewRGBA(outBounds),
		SkipLists: make([]SkipList, 0, len(passes)),
	}

	// nil for the first pass, there is no coarser pass
	var lastSkipList SkipList

	for p, pass := range passes {
		destLUT := pass.Grid.LUT()
		geometry := pass.Grid.Geometry()
		cols := geometry.NumCols
		destCount := len(destLUT)
		if destCount == 0 {
			return nil, fmt.Errorf("Pass %d has no cells: %w", p, ErrInvalidGridGeometry)
		}
		skipList := make(SkipList)
		painted := 0

		for i, entry := range destLUT {
			destCell := entry.Cell

			if lastSkipList != nil && lastSkipList.Has(OuterCell(destCell, cols)) {
				skipList.Add(destCell)
				continue
			}
			if entry.Variance < pass.Threshold {
				skipList.Add(destCell)
			}

			j := policy.SourceIndex(i, entry.Score, srcCount, destCount)
			if j < 0 || j >= srcCount {
				return nil, fmt.Errorf("Pass %d: destination cell %d mapped to source index %d of %d: %w",
					p, destCell, j, srcCount, ErrIndexOutOfRange)
			}
			srcEntry := srcLUT[j]

			area := geometry.Cell(destCell)
			width, height := area.Dx(), area.Dy()
			if width <= 0 || height <= 0 {
				return nil, fmt.Errorf("Pass %d: cell %d has area %v: %w",
					p, destCell, area, ErrEmptyCellRegion)
			}

			var tile image.Image
			transform := IdentityTransform
			if colorOnly {
				tile = imaging.New(width, height, srcEntry.Color.RGBA())
			} else {
				transform = c.Picker.Pick()
				tile = c.sourceTile(src, srcEntry.Cell, transform, width, height)
			}

			xdraw.Draw(res.Image, area, tile, tile.Bounds().Min, xdraw.Src)
			res.Placements = append(res.Placements, Placement{
				Pass:       p,
				DestCell:   destCell,
				SourceCell: srcEntry.Cell,
				SourceRank: j,
				Area:       area,
				Transform:  transform,
			})
			painted++
		}

		if Debug {
			log.WithFields(log.Fields{
				"pass":    p,
				"cells":   destCount,
				"painted": painted,
				"skipped": len(skipList),
				"policy":  policy,
			}).Debug("Composed pass")
		}
		res.SkipLists = append(res.SkipLists, skipList)
		lastSkipList = skipList
	}
	return res, nil
}
