package rebuilder

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"testing"
)

// memoryStore keeps saved mosaics in memory.
type memoryStore struct {
	m      sync.Mutex
	images map[string]image.Image
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{images: make(map[string]image.Image)}
}

func (s *memoryStore) Save(ctx context.Context, name string, img image.Image) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	s.images[name] = img
	return nil
}

func (s *memoryStore) names() []string {
	s.m.Lock()
	defer s.m.Unlock()
	res := make([]string, 0, len(s.images))
	for name := range s.images {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func TestPrepareGrids_Detail(t *testing.T) {
	cfg := Config{BlockSize: 10, Detail: true, NonUniform: true, NumRoutines: 2, MedThreshold: 5, SmallThreshold: 8}
	grids, err := PrepareGrids(quadrantImage(100, 50), gradientImage(90, 70), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grids.MaxValue != grids.Source.NumCells()-1 {
		t.Errorf("max value = %d, want %d", grids.MaxValue, grids.Source.NumCells()-1)
	}
	coarse := grids.Dest.Geometry()
	if coarse.NumRows != 3 || coarse.NumCols != 4 || coarse.CellWidth != 20 {
		t.Errorf("coarse grid = %+v", coarse)
	}
	for i, g := range []*GridImage{grids.Med, grids.High} {
		geometry := g.Geometry()
		factor := 2 << uint(i)
		if geometry.NumRows != coarse.NumRows*factor || geometry.NumCols != coarse.NumCols*factor {
			t.Errorf("grid %d = %dx%d, want %dx%d", i+1, geometry.NumRows, geometry.NumCols,
				coarse.NumRows*factor, coarse.NumCols*factor)
		}
		if g.Image() != grids.Dest.Image() {
			t.Errorf("grid %d doesn't share the destination image", i+1)
		}
	}
	for _, st := range grids.Source.Stats() {
		if st.R > grids.MaxValue || st.H > grids.MaxValue {
			t.Fatalf("statistics %+v exceed max value %d", st, grids.MaxValue)
		}
	}
}

func TestPrepareGrids_OddDetailBlockSize(t *testing.T) {
	for _, size := range []int{1, 9, 15} {
		cfg := Config{BlockSize: size, Detail: true, NumRoutines: 1}
		if _, err := PrepareGrids(quadrantImage(100, 50), solidImage(80, 80, gray), cfg, nil); !errors.Is(err, ErrInvalidGridGeometry) {
			t.Errorf("block size %d: err = %v, want ErrInvalidGridGeometry", size, err)
		}
	}
	// without detail mode odd sizes are fine
	if _, err := PrepareGrids(quadrantImage(100, 50), solidImage(80, 80, gray), Config{BlockSize: 9, NumRoutines: 1}, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunnerRunImages(t *testing.T) {
	cfg := Config{
		Source:      "/images/src.png",
		Dest:        "/images/dest.jpg",
		BlockSize:   10,
		Types:       "lh",
		ColorOnly:   true,
		NumRoutines: 3,
		Seed:        17,
	}
	store := newMemoryStore()
	runner := NewRunner(cfg, store)
	var m sync.Mutex
	calls := 0
	runner.Progress = func(num int) {
		m.Lock()
		calls++
		m.Unlock()
	}
	saved, err := runner.RunImages(context.Background(), quadrantImage(100, 50), gradientImage(40, 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != 8 || calls != 8 {
		t.Errorf("saved %d mosaics with %d progress calls, want 8", saved, calls)
	}
	want := []string{
		"dest_src_10_c.tif", "dest_src_10_c_hdr.tif",
		"dest_src_10_h.tif", "dest_src_10_h_hdr.tif",
		"dest_src_10_l.tif", "dest_src_10_l_hdr.tif",
		"dest_src_10_lh.tif", "dest_src_10_lh_hdr.tif",
	}
	if got := store.names(); !equalStrings(got, want) {
		t.Errorf("saved %v, want %v", got, want)
	}
	for name, img := range store.images {
		if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
			t.Errorf("%s has size %dx%d, want 40x40", name, b.Dx(), b.Dy())
		}
	}
}

func TestRunnerRunImages_Reproducible(t *testing.T) {
	cfg := Config{BlockSize: 10, Types: "s", NonUniform: true, NumRoutines: 1, Seed: 99, Source: "a.png", Dest: "b.png"}
	var results []*memoryStore
	for run := 0; run < 2; run++ {
		store := newMemoryStore()
		if _, err := NewRunner(cfg, store).RunImages(context.Background(), quadrantImage(100, 50), gradientImage(50, 50)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		results = append(results, store)
	}
	for name, img := range results[0].images {
		other, ok := results[1].images[name].(*image.RGBA)
		if !ok {
			t.Fatalf("%s missing in second run", name)
		}
		if string(img.(*image.RGBA).Pix) != string(other.Pix) {
			t.Errorf("%s differs between runs with the same seed", name)
		}
	}
}

func TestRunnerRunImages_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	cfg := Config{BlockSize: 10, Types: "l", NumRoutines: 2, Seed: 1}
	_, err := NewRunner(cfg, store).RunImages(context.Background(), quadrantImage(100, 50), gradientImage(40, 40))
	if !errors.Is(err, store.err) {
		t.Errorf("err = %v, want the store error", err)
	}
}

func TestRunnerRunImages_Canceled(t *testing.T) {
	cfg := Config{BlockSize: 10, Types: "l", NumRoutines: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newMemoryStore()
	saved, err := NewRunner(cfg, store).RunImages(ctx, quadrantImage(100, 50), gradientImage(40, 40))
	if !errors.Is(err, context.Canceled) || saved != 0 {
		t.Errorf("saved %d, err = %v, want context.Canceled", saved, err)
	}
	if len(store.names()) != 0 {
		t.Errorf("canceled run saved %v", store.names())
	}
}
