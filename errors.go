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

import "errors"

// The errors below describe violated preconditions. Functions wrap them with
// more details, use errors.Is to test for them.
var (
	// ErrInvalidGridGeometry is returned if a grid has no rows or columns or
	// the cell size is not positive.
	ErrInvalidGridGeometry = errors.New("Invalid grid geometry")

	// ErrEmptyCellRegion is returned if a cell of a grid contains no pixels.
	ErrEmptyCellRegion = errors.New("Empty cell region")

	// ErrCombinationMismatch is returned for empty combinations and for
	// color-only combinations that also request a channel.
	ErrCombinationMismatch = errors.New("Invalid channel combination")

	// ErrIndexOutOfRange is returned if a destination cell is mapped to an
	// index outside of the source lookup table.
	ErrIndexOutOfRange = errors.New("Lookup index out of range")

	// ErrNoLUT is returned if a grid is used before its lookup table was
	// built.
	ErrNoLUT = errors.New("Fingerprint lookup table not built")
)
