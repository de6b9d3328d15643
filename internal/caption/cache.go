// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package caption produces natural-language descriptions of images.
//
// Two paths share this package. The live request path describes uploaded
// images fresh on every request, since an upload has no stable identity
// to cache against. The offline batch path precomputes captions for corpus
// images and caches them by file path, persisting after every new entry so
// an interrupted run loses at most the caption in flight.
package caption

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// Cache maps an image's local file path to its generated caption. It is
// written only by the batch captioner; the serving process loads a
// snapshot at startup and never mutates it, so no locking is needed there.
type Cache struct {
	path     string
	captions map[string]string
}

// LoadCache reads the caption cache at path. A missing file starts an
// empty cache; a corrupt file is logged and discarded rather than aborting
// a batch run over bookkeeping.
func LoadCache(path string) *Cache {
	c := &Cache{path: path, captions: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("caption cache unreadable, starting fresh", "path", path, "error", err)
		}
		return c
	}

	if err := json.Unmarshal(data, &c.captions); err != nil {
		slog.Warn("caption cache corrupted, starting fresh", "path", path, "error", err)
		c.captions = make(map[string]string)
	}

	return c
}

// Get returns the cached caption for an image path.
func (c *Cache) Get(imagePath string) (string, bool) {
	caption, ok := c.captions[imagePath]
	return caption, ok
}

// Size returns the number of cached captions.
func (c *Cache) Size() int {
	return len(c.captions)
}

// Put records a caption and persists the cache synchronously via an
// atomic temp-file rename.
func (c *Cache) Put(imagePath, caption string) error {
	c.captions[imagePath] = caption
	return c.persist()
}

func (c *Cache) persist() error {
	data, err := json.MarshalIndent(c.captions, "", "  ")
	if err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeCaptionCachePersistFailure, "encoding caption cache")
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeCaptionCachePersistFailure, "creating temp file",
			vtaerr.FieldPath(c.path))
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeCaptionCachePersistFailure, "writing caption cache",
			vtaerr.FieldPath(c.path))
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeCaptionCachePersistFailure, "renaming temp file",
			vtaerr.FieldPath(c.path))
	}

	return nil
}
