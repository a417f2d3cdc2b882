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

	"github.com/disintegration/imaging"
)

// Tiles cut from the source image are flipped and rotated before they're
// inserted in the mosaic. This gives some variety to mosaics that use the
// same source cell many times.

// Flip is a mirror operation applied to a tile.
type Flip int

const (
	FlipNone Flip = iota
	FlipHorizontal
	FlipVertical
	numFlips
)

func (f Flip) String() string {
	switch f {
	case FlipNone:
		return "none"
	case FlipHorizontal:
		return "horizontal"
	case FlipVertical:
		return "vertical"
	default:
		return fmt.Sprintf("Flip(%d)", f)
	}
}

// Rotation is a counter-clockwise rotation applied to a tile.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
	numRotations
)

func (r Rotation) String() string {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return fmt.Sprintf("%d°", int(r)*90)
	default:
		return fmt.Sprintf("Rotation(%d)", r)
	}
}

// TileTransform is a flip followed by a rotation.
type TileTransform struct {
	Flip     Flip
	Rotation Rotation
}

// IdentityTransform doesn't change a tile.
var IdentityTransform = TileTransform{FlipNone, Rotate0}

func (t TileTransform) String() string {
	return fmt.Sprintf("flip %v, rotate %v", t.Flip, t.Rotation)
}

// Apply returns the transformed image. For the identity img is returned
// unchanged.
func (t TileTransform) Apply(img image.Image) image.Image {
	res := img
	switch t.Flip {
	case FlipHorizontal:
		res = imaging.FlipH(res)
	case FlipVertical:
		res = imaging.FlipV(res)
	}
	switch t.Rotation {
	case Rotate90:
		res = imaging.Rotate90(res)
	case Rotate180:
		res = imaging.Rotate180(res)
	case Rotate270:
		res = imaging.Rotate270(res)
	}
	return res
}

// TransformPicker selects the transformation for the next tile.
//
// Implementations are not required to be safe for concurrent use.
type TransformPicker interface {
	Pick() TileTransform
}

// RandomTransformPicker implements TransformPicker by drawing flip and
// rotation independently and uniformly.
//
// Note that instances of this picker are not safe for concurrent use.
type RandomTransformPicker struct {
	randGen *rand.Rand
}

// NewRandomTransformPicker returns a new random picker.
// The provided random generator is used to generate random numbers. You can
// use nil and a random generator will be created.
//
// Note that rand.Rand instances are not safe for concurrent use.
// Thus using the same generator on two instances that run concurrently is
// not allowed.
func NewRandomTransformPicker(randGen *rand.Rand) *RandomTransformPicker {
	if randGen == nil {
		seed := time.Now().UnixNano()
		randGen = rand.New(rand.NewSource(seed))
	}
	return &RandomTransformPicker{randGen}
}

// Pick implements TransformPicker.
func (p *RandomTransformPicker) Pick() TileTransform {
	flip := Flip(p.randGen.Intn(int(numFlips)))
	rotation := Rotation(p.randGen.Intn(int(numRotations)))
	return TileTransform{Flip: flip, Rotation: rotation}
}

// SequenceTransformPicker returns the transformations from a fixed list,
// starting over when the end is reached. An empty list always yields the
// identity.
type SequenceTransformPicker struct {
	Transforms []TileTransform
	next       int
}

// NewSequenceTransformPicker returns a picker cycling through transforms.
func NewSequenceTransformPicker(transforms ...TileTransform) *SequenceTransformPicker {
	return &SequenceTransformPicker{Transforms: transforms}
}

// Pick implements TransformPicker.
func (p *SequenceTransformPicker) Pick() TileTransform {
	if len(p.Transforms) == 0 {
		return IdentityTransform
	}
	res := p.Transforms[p.next%len(p.Transforms)]
	p.next++
	return res
}
