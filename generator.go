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
	"context"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// OutputStore persists generated mosaics under a file name.
type OutputStore interface {
	Save(ctx context.Context, name string, img image.Image) error
}

// Grids contains the partitioned and analyzed images of one run.
type Grids struct {
	Source *GridImage
	// Dest is the destination grid, in detail mode the grid of the first
	// (coarse) pass.
	Dest *GridImage
	// Med and High are the grids of the second and third pass in detail mode,
	// nil otherwise.
	Med, High *GridImage
	// MaxValue is the number of source cells minus one, all statistics are
	// scaled to [0, MaxValue].
	MaxValue int
}

// destGrids returns all destination grids in pass order.
func (grids *Grids) destGrids() []*GridImage {
	if grids.Med == nil || grids.High == nil {
		return []*GridImage{grids.Dest}
	}
	return []*GridImage{grids.Dest, grids.Med, grids.High}
}

// PrepareGrids partitions both images and computes all cell statistics.
//
// In detail mode the medium and high grids are borrowed from the destination
// grid and get the exact extent of the coarse grid, so each coarse cell
// contains exactly four medium cells and each medium cell four high cells.
//
// rnd is used for non-uniform boundaries, nil creates a new generator.
func PrepareGrids(src, dest image.Image, cfg Config, rnd Intner) (*Grids, error) {
	res := &Grids{}

	res.Source = NewGridImage(src, false, cfg.Detail)
	res.Source.NumRoutines = cfg.NumRoutines
	if err := res.Source.Partition(0, 0, 0, nil); err != nil {
		return nil, fmt.Errorf("Can't partition source image: %w", err)
	}
	res.MaxValue = res.Source.NumCells() - 1
	if res.MaxValue <= 0 {
		return nil, fmt.Errorf("Source image has only %d cells: %w",
			res.Source.NumCells(), ErrInvalidGridGeometry)
	}

	if cfg.Detail && (cfg.BlockSize < 2 || cfg.BlockSize%2 != 0) {
		return nil, fmt.Errorf("Detail mode needs an even block size, got %d: %w",
			cfg.BlockSize, ErrInvalidGridGeometry)
	}
	sizes := cfg.CellSizes()
	res.Dest = NewGridImage(dest, cfg.NonUniform, cfg.Detail)
	res.Dest.NumRoutines = cfg.NumRoutines
	if err := res.Dest.Partition(sizes[0], 0, 0, rnd); err != nil {
		return nil, fmt.Errorf("Can't partition destination image: %w", err)
	}
	if cfg.Detail {
		coarse := res.Dest.Geometry()
		width := coarse.NumCols * coarse.CellWidth
		height := coarse.NumRows * coarse.CellHeight
		res.Med = res.Dest.Borrow()
		if err := res.Med.Partition(sizes[1], width, height, rnd); err != nil {
			return nil, fmt.Errorf("Can't partition medium grid: %w", err)
		}
		res.High = res.Dest.Borrow()
		if err := res.High.Partition(sizes[2], width, height, rnd); err != nil {
			return nil, fmt.Errorf("Can't partition high grid: %w", err)
		}
	}

	if err := res.Source.ComputeStatistics(res.MaxValue); err != nil {
		return nil, err
	}
	for _, g := range res.destGrids() {
		if err := g.ComputeStatistics(res.MaxValue); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ForCombination returns the source grid and the passes with lookup tables
// for comb. The grids in res are not modified, so this can be called
// concurrently for different combinations.
func (grids *Grids) ForCombination(comb Combination, cfg Config) (*GridImage, []Pass, error) {
	srcLUT, err := grids.Source.FingerprintLUT(comb)
	if err != nil {
		return nil, nil, err
	}
	src := grids.Source.WithLUT(comb, srcLUT)
	dests := grids.destGrids()
	views := make([]*GridImage, len(dests))
	for i, g := range dests {
		lut, lutErr := g.FingerprintLUT(comb)
		if lutErr != nil {
			return nil, nil, lutErr
		}
		views[i] = g.WithLUT(comb, lut)
	}
	if len(views) == 1 {
		return src, SinglePass(views[0], 0), nil
	}
	return src, DetailPasses(views[0], views[1], views[2], cfg.MedThreshold, cfg.SmallThreshold), nil
}

// Runner generates all mosaics of a configuration.
type Runner struct {
	Config   Config
	Store    OutputStore
	Resizer  ImageResizer
	Progress ProgressFunc
	// RunID is added to all log messages of this run.
	RunID uuid.UUID
}

// NewRunner returns a runner writing to store. The resizer is created from
// the interpolation quality of cfg.
func NewRunner(cfg Config, store OutputStore) *Runner {
	return &Runner{
		Config:   cfg,
		Store:    store,
		Resizer:  NewNfntResizer(GetInterP(cfg.Interpolation)),
		Progress: ProgressIgnore,
		RunID:    uuid.New(),
	}
}

func (r *Runner) logger() *log.Entry {
	return log.WithField("run", r.RunID.String())
}

// Run loads the source and destination image from the config and calls
// RunImages.
func (r *Runner) Run(ctx context.Context) (int, error) {
	start := time.Now()
	src, srcErr := LoadImage(r.Config.Source)
	if srcErr != nil {
		return 0, srcErr
	}
	dest, destErr := LoadImage(r.Config.Dest)
	if destErr != nil {
		return 0, destErr
	}
	r.logger().WithField("time", time.Since(start)).Info("Loaded images")
	return r.RunImages(ctx, src, dest)
}

// RunImages generates the tone-matched and the hdr mosaic for each
// combination of the config and saves them in the store. It returns the
// number of saved mosaics.
//
// Combinations are processed concurrently by Config.NumRoutines go routines.
// Each routine gets its own random generator derived from Config.Seed, all
// routines share one tile cache.
func (r *Runner) RunImages(ctx context.Context, src, dest image.Image) (int, error) {
	cfg := r.Config
	logger := r.logger()
	combinations := cfg.Combinations()
	if len(combinations) == 0 {
		logger.Warn("No combinations to generate")
		return 0, nil
	}

	start := time.Now()
	grids, prepErr := PrepareGrids(src, dest, cfg, rand.New(rand.NewSource(cfg.Seed)))
	if prepErr != nil {
		return 0, prepErr
	}
	logger.WithFields(log.Fields{
		"sourceCells": grids.Source.NumCells(),
		"destCells":   grids.Dest.NumCells(),
		"time":        time.Since(start),
	}).Info("Computed cell statistics")

	progress := r.Progress
	if progress == nil {
		progress = ProgressIgnore
	}
	resizer := r.Resizer
	if resizer == nil {
		resizer = DefaultResizer
	}
	cache := NewImageCache(ImageCacheSize)

	var m sync.Mutex
	saved := 0

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.NumRoutines > 0 {
		g.SetLimit(cfg.NumRoutines)
	} else {
		g.SetLimit(1)
	}
	for i, comb := range combinations {
		i, comb := i, comb
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			picker := NewRandomTransformPicker(rand.New(rand.NewSource(cfg.Seed + int64(i) + 1)))
			composer := NewComposer(resizer, picker, cache)
			srcGrid, passes, err := grids.ForCombination(comb, cfg)
			if err != nil {
				return err
			}
			for _, policy := range Policies {
				composition, composeErr := composer.Compose(srcGrid, policy, passes...)
				if composeErr != nil {
					return fmt.Errorf("Combination %v, %v: %w", comb, policy, composeErr)
				}
				name := cfg.OutputName(comb, policy)
				if saveErr := r.Store.Save(gCtx, name, composition.Image); saveErr != nil {
					return saveErr
				}
				m.Lock()
				saved++
				num := saved
				m.Unlock()
				logger.WithFields(log.Fields{
					"combination": comb,
					"policy":      policy,
					"file":        name,
				}).Debug("Saved mosaic")
				progress(num)
			}
			return nil
		})
	}
	err := g.Wait()
	logger.WithFields(log.Fields{
		"saved": saved,
		"time":  time.Since(start),
	}).Info("Generated mosaics")
	return saved, err
}
