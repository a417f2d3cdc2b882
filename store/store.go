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

// Package store contains the destinations generated mosaics are written to.
// All stores write TIFF images.
package store

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/tiff"
)

// TIFFOptions are the options used to encode mosaics.
var TIFFOptions = &tiff.Options{Compression: tiff.Deflate, Predictor: true}

// EncodeTIFF writes img as TIFF to w.
func EncodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, TIFFOptions)
}

// encodeBuffer encodes img into a new buffer.
func encodeBuffer(img image.Image) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, img); err != nil {
		return nil, err
	}
	return &buf, nil
}

// FSStore writes images to a directory on the file system. The directory is
// created on the first call of Save.
type FSStore struct {
	Dir string
}

// NewFSStore returns a store writing to dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{Dir: dir}
}

// Path returns the path of the file with the given name.
func (s *FSStore) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Save writes img to the file name inside Dir, an existing file is replaced.
func (s *FSStore) Save(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("Can't create output directory: %w", err)
	}
	path := s.Path(name)
	f, createErr := os.Create(path)
	if createErr != nil {
		return createErr
	}
	if encodeErr := EncodeTIFF(f, img); encodeErr != nil {
		f.Close()
		return fmt.Errorf("Can't encode %s: %w", path, encodeErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		return closeErr
	}
	log.WithField("path", path).Debug("Wrote mosaic")
	return nil
}
