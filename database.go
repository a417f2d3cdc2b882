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
	"os"
	"path/filepath"
	"strings"

	// These anonymous imports register handlers for the supported input
	// formats, that is the decode method from the image package can now read
	// these files.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageFunc is a function that takes a file extension and decides if
// this file extension is supported.
//
// The extension passed to this function could be for example ".txt" or ".jpg".
type SupportedImageFunc func(ext string) bool

// DecodableImage is an implementation of SupportedImageFunc accepting all
// formats LoadImage can read.
func DecodableImage(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	default:
		return false
	}
}

// SupportedInput decides which files LoadImage accepts.
var SupportedInput SupportedImageFunc = DecodableImage

// LoadImage opens and decodes the image file.
func LoadImage(path string) (image.Image, error) {
	if !SupportedInput(filepath.Ext(path)) {
		return nil, fmt.Errorf("Unsupported image format: %s", path)
	}
	r, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer r.Close()
	img, _, decodeErr := image.Decode(r)
	if decodeErr != nil {
		return nil, fmt.Errorf("Can't decode %s: %w", path, decodeErr)
	}
	return img, nil
}
