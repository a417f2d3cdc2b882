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

package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/tilt-a-whirl/rebuilder"

	colorful "github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func hex(c rebuilder.RGB) string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

func main() {
	blockSize := flag.IntP("block", "b", 0, "cell size, 0 divides the image like a source image")
	nonUniform := flag.BoolP("nonuniform", "n", false, "move cell boundaries randomly")
	maxValue := flag.Int("max", rebuilder.MaxSourceCells-1, "statistics are scaled to [0, max]")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for non-uniform boundaries")
	types := flag.StringP("types", "t", "", "print the lookup table of this combination")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "[OPTIONS] <IMAGE>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path, pathErr := rebuilder.ExpandPath(flag.Arg(0))
	if pathErr != nil {
		log.WithField(log.ErrorKey, pathErr).Fatal("Invalid path")
	}
	start := time.Now()
	img, loadErr := rebuilder.LoadImage(path)
	if loadErr != nil {
		log.WithField(log.ErrorKey, loadErr).Fatal("Can't load image")
	}

	grid := rebuilder.NewGridImage(img, *nonUniform, false)
	grid.NumRoutines = runtime.NumCPU()
	if err := grid.Partition(*blockSize, 0, 0, rand.New(rand.NewSource(*seed))); err != nil {
		log.WithField(log.ErrorKey, err).Fatal("Can't partition image")
	}
	if err := grid.ComputeStatistics(*maxValue); err != nil {
		log.WithField(log.ErrorKey, err).Fatal("Can't compute statistics")
	}
	execTime := time.Since(start)

	geometry := grid.Geometry()
	bounds := img.Bounds()
	fmt.Printf("Image: %dx%d\n", bounds.Dx(), bounds.Dy())
	fmt.Printf("Grid: %d rows, %d columns, cells %dx%d\n",
		geometry.NumRows, geometry.NumCols, geometry.CellWidth, geometry.CellHeight)
	fmt.Println("Cell\tRow\tCol\tArea\tL\tH\tS\tV\tR\tG\tB\tVar\tMean")
	stats := grid.Stats()
	division := geometry.Division()
	for row := range division {
		for col := range division[row] {
			i := row*geometry.NumCols + col
			s := stats[i]
			fmt.Printf("%d\t%d\t%d\t%v\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				i, row, col, division.Get(col, row), s.L, s.H, s.S, s.V, s.R, s.G, s.B, s.Variance, hex(s.Mean))
		}
	}

	if *types != "" {
		comb, combErr := rebuilder.ParseCombination(*types)
		if combErr != nil {
			log.WithField(log.ErrorKey, combErr).Fatal("Invalid combination")
		}
		lut, lutErr := grid.FingerprintLUT(comb)
		if lutErr != nil {
			log.WithField(log.ErrorKey, lutErr).Fatal("Can't build lookup table")
		}
		fmt.Printf("Lookup table %v:\n", comb)
		for rank, entry := range lut {
			fmt.Printf("%d\tcell %d\tscore %d\tvariance %d\n", rank, entry.Cell, entry.Score, entry.Variance)
		}
	}
	fmt.Println("Done after", execTime)
}
