package rebuilder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// prepare partitions both images and returns the grids for comb.
func prepare(t *testing.T, src, dest image.Image, cfg Config, comb Combination) (*Grids, *GridImage, []Pass) {
	t.Helper()
	if cfg.NumRoutines == 0 {
		cfg.NumRoutines = 2
	}
	grids, err := PrepareGrids(src, dest, cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("PrepareGrids: %v", err)
	}
	srcGrid, passes, err := grids.ForCombination(comb, cfg)
	if err != nil {
		t.Fatalf("ForCombination: %v", err)
	}
	return grids, srcGrid, passes
}

// noiseImage creates an image with random colors in the right half and gray
// in the left half.
func noiseImage(width, height int, seed int64) *image.RGBA {
	rnd := rand.New(rand.NewSource(seed))
	img := solidImage(width, height, gray)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), 255})
		}
	}
	return img
}

func TestImageCache(t *testing.T) {
	cache := NewImageCache(2)
	a, b, c := solidImage(1, 1, red), solidImage(1, 1, green), solidImage(1, 1, blue)
	cache.Put(0, IdentityTransform, 10, 10, a)
	cache.Put(1, IdentityTransform, 10, 10, b)
	if cache.Get(0, IdentityTransform, 10, 10) == nil {
		t.Error("tile 0 not cached")
	}
	if cache.Get(0, TileTransform{FlipVertical, Rotate0}, 10, 10) != nil {
		t.Error("transform must be part of the key")
	}
	if cache.Get(0, IdentityTransform, 5, 10) != nil {
		t.Error("size must be part of the key")
	}
	cache.Put(2, IdentityTransform, 10, 10, c)
	if cache.Len() != 2 {
		t.Errorf("cache has %d entries, want 2", cache.Len())
	}
	if cache.Get(0, IdentityTransform, 10, 10) != nil {
		t.Error("first tile should have been removed")
	}
	if cache.Get(2, IdentityTransform, 10, 10) == nil {
		t.Error("last tile not cached")
	}
}

func TestOuterCell(t *testing.T) {
	// 4 columns in the current pass, 2 in the previous
	tests := []struct{ cell, want int }{
		{0, 0}, {1, 0}, {2, 1}, {3, 1},
		{4, 0}, {5, 0}, {6, 1},
		{8, 2}, {13, 2}, {15, 3},
	}
	for _, tt := range tests {
		if got := OuterCell(tt.cell, 4); got != tt.want {
			t.Errorf("OuterCell(%d, 4) = %d, want %d", tt.cell, got, tt.want)
		}
	}
}

func TestSkipList(t *testing.T) {
	l := make(SkipList)
	for _, cell := range []int{5, 1, 3, 1} {
		l.Add(cell)
	}
	if !l.Has(3) || l.Has(2) {
		t.Error("unexpected membership")
	}
	got := l.Sorted()
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("Sorted() = %v, want [1 3 5]", got)
	}
}

func TestCompose_ToneMatchedUniformDestination(t *testing.T) {
	cfg := Config{BlockSize: 10}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), solidImage(40, 40, gray), cfg, NewCombination(Luminance))
	composer := NewComposer(nil, NewSequenceTransformPicker(), nil)
	res, err := composer.Compose(srcGrid, ToneMatched, passes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Errorf("mosaic size = %dx%d, want 40x40", b.Dx(), b.Dy())
	}
	if len(res.Placements) != 16 {
		t.Fatalf("got %d placements, want 16", len(res.Placements))
	}
	sources := make(map[int]bool)
	for _, p := range res.Placements {
		sources[p.SourceCell] = true
		if p.SourceRank != passes[0].Grid.LUT()[0].Score {
			t.Errorf("source rank %d, want the destination score", p.SourceRank)
		}
	}
	if len(sources) != 1 {
		t.Errorf("used %d distinct source cells, want 1", len(sources))
	}
}

func TestCompose_FullCoverage(t *testing.T) {
	cfg := Config{BlockSize: 10}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), gradientImage(40, 40), cfg, NewCombination(Luminance, Hue))
	composer := NewComposer(nil, nil, nil)
	res, err := composer.Compose(srcGrid, FullCoverage, passes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srcCount := srcGrid.NumCells()
	prev := -1
	for i, p := range res.Placements {
		if p.SourceRank < prev || p.SourceRank >= srcCount {
			t.Errorf("placement %d: source rank %d (previous %d, %d source cells)", i, p.SourceRank, prev, srcCount)
		}
		if want := i * srcCount / 16; p.SourceRank != want {
			t.Errorf("placement %d: source rank %d, want %d", i, p.SourceRank, want)
		}
		prev = p.SourceRank
	}
}

func TestCompose_ColorOnly(t *testing.T) {
	cfg := Config{BlockSize: 10}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), gradientImage(40, 40), cfg, ColorOnlyCombination())
	composer := NewComposer(nil, nil, nil)
	for _, policy := range Policies {
		res, err := composer.Compose(srcGrid, policy, passes...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, p := range res.Placements {
			want := srcGrid.Stats()[p.SourceCell].Mean.RGBA()
		pixels:
			for y := p.Area.Min.Y; y < p.Area.Max.Y; y++ {
				for x := p.Area.Min.X; x < p.Area.Max.X; x++ {
					if got := res.Image.RGBAAt(x, y); got != want {
						t.Errorf("%v: pixel (%d, %d) of cell %d = %v, want %v", policy, x, y, p.DestCell, got, want)
						break pixels
					}
				}
			}
			if p.Transform != IdentityTransform {
				t.Errorf("color-only tiles must not be transformed, got %v", p.Transform)
			}
		}
	}
	if composer.Cache.Len() != 0 {
		t.Errorf("color-only mosaics must not cache tiles, cache has %d entries", composer.Cache.Len())
	}
}

func TestCompose_DetailSkipsUniformCells(t *testing.T) {
	cfg := Config{BlockSize: 10, Detail: true, MedThreshold: 5, SmallThreshold: 8}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), solidImage(80, 80, gray), cfg, NewCombination(Value))
	if len(passes) != 3 {
		t.Fatalf("got %d passes, want 3", len(passes))
	}
	composer := NewComposer(nil, NewSequenceTransformPicker(), nil)
	res, err := composer.Compose(srcGrid, ToneMatched, passes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantSkipped := []int{16, 64, 256}
	for p, l := range res.SkipLists {
		if len(l) != wantSkipped[p] {
			t.Errorf("pass %d skipped %d cells, want %d", p, len(l), wantSkipped[p])
		}
	}
	if len(res.Placements) != 16 {
		t.Errorf("got %d placements, want 16", len(res.Placements))
	}
	for _, p := range res.Placements {
		if p.Pass != 0 {
			t.Errorf("cell %d painted in pass %d", p.DestCell, p.Pass)
		}
	}
}

func TestCompose_DetailRefinesNoisyCells(t *testing.T) {
	cfg := Config{BlockSize: 10, Detail: true, MedThreshold: 5, SmallThreshold: 8}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), noiseImage(80, 80, 11), cfg, NewCombination(Red))
	composer := NewComposer(nil, NewSequenceTransformPicker(), nil)
	res, err := composer.Compose(srcGrid, FullCoverage, passes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	painted := make([]int, 3)
	for _, p := range res.Placements {
		painted[p.Pass]++
		if p.Pass > 0 && p.Area.Min.X < 40 {
			t.Errorf("pass %d painted cell %d in the uniform half", p.Pass, p.DestCell)
		}
	}
	want := []int{16, 32, 128}
	for p := range want {
		if painted[p] != want[p] {
			t.Errorf("pass %d painted %d cells, want %d", p, painted[p], want[p])
		}
	}
	// every cell of a later pass whose outer cell was skipped is skipped too
	for p := 1; p < 3; p++ {
		cols := passes[p].Grid.Geometry().NumCols
		for cell := 0; cell < passes[p].Grid.NumCells(); cell++ {
			if res.SkipLists[p-1].Has(OuterCell(cell, cols)) && !res.SkipLists[p].Has(cell) {
				t.Errorf("pass %d: cell %d not skipped", p, cell)
			}
		}
	}
}

func TestCompose_Deterministic(t *testing.T) {
	cfg := Config{BlockSize: 10, NonUniform: true}
	_, srcGrid, passes := prepare(t, quadrantImage(100, 50), gradientImage(50, 40), cfg, NewCombination(Luminance, Saturation))
	transforms := []TileTransform{{FlipHorizontal, Rotate90}, IdentityTransform, {FlipVertical, Rotate270}}
	var images [][]byte
	for run := 0; run < 2; run++ {
		composer := NewComposer(nil, NewSequenceTransformPicker(transforms...), NewImageCache(4))
		res, err := composer.Compose(srcGrid, ToneMatched, passes...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		images = append(images, res.Image.Pix)
	}
	if !bytes.Equal(images[0], images[1]) {
		t.Error("composing twice produced different mosaics")
	}
}

func TestCompose_Errors(t *testing.T) {
	cfg := Config{BlockSize: 10}
	grids, srcGrid, passes := prepare(t, quadrantImage(100, 50), gradientImage(40, 40), cfg, NewCombination(Luminance))
	composer := NewComposer(nil, nil, nil)

	if _, err := composer.Compose(srcGrid, ToneMatched); !errors.Is(err, ErrInvalidGridGeometry) {
		t.Errorf("no passes: err = %v, want ErrInvalidGridGeometry", err)
	}
	if _, err := composer.Compose(grids.Source, ToneMatched, passes...); !errors.Is(err, ErrNoLUT) {
		t.Errorf("missing source lookup table: err = %v, want ErrNoLUT", err)
	}
	_, otherPasses, err := grids.ForCombination(NewCombination(Hue), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := composer.Compose(srcGrid, ToneMatched, otherPasses...); !errors.Is(err, ErrCombinationMismatch) {
		t.Errorf("different combinations: err = %v, want ErrCombinationMismatch", err)
	}
}

func TestCompose_DetailGeometryMismatch(t *testing.T) {
	cfg := Config{BlockSize: 10, Detail: true, MedThreshold: 5, SmallThreshold: 8}
	grids, srcGrid, passes := prepare(t, quadrantImage(100, 50), solidImage(80, 80, gray), cfg, NewCombination(Value))
	composer := NewComposer(nil, NewSequenceTransformPicker(), nil)

	// 4, 16 columns: the medium pass is missing
	if _, err := composer.Compose(srcGrid, ToneMatched, passes[0], passes[2]); !errors.Is(err, ErrInvalidGridGeometry) {
		t.Errorf("skipped pass: err = %v, want ErrInvalidGridGeometry", err)
	}

	// a high grid with 20 instead of 16 columns, both counts are even
	high := grids.Dest.Borrow()
	if err := high.Partition(4, 80, 80, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := high.ComputeStatistics(grids.MaxValue); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grids.High = high
	srcGrid, passes, err := grids.ForCombination(NewCombination(Value), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols := passes[2].Grid.Geometry().NumCols; cols != 20 {
		t.Fatalf("high grid has %d columns, want 20", cols)
	}
	if _, err := composer.Compose(srcGrid, ToneMatched, passes...); !errors.Is(err, ErrInvalidGridGeometry) {
		t.Errorf("high grid of wrong size: err = %v, want ErrInvalidGridGeometry", err)
	}
}
