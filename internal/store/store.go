// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package store loads and saves the persisted embedding stores consumed at
// startup. A store is a pair of parallel sequences (embedding vectors and
// the records describing them) serialized as a gzip-compressed JSON
// archive. Stores are validated at load time and immutable afterwards, so
// concurrent readers need no locking.
package store

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// archive is the on-disk layout of an embedding store.
type archive[R any] struct {
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Embeddings [][]float32 `json:"embeddings"`
	Records    []R         `json:"records"`
}

// Store holds embedding vectors with parallel metadata records.
// Records[i] describes the text that produced Embeddings[i]. The two
// sequences always have equal length and every vector has the store's
// dimension; both are checked when the archive is loaded.
type Store[R any] struct {
	model      string
	dimension  int
	embeddings [][]float32
	records    []R
}

// Load reads a gzip JSON archive from path. The name is used only in
// error context so a failed startup says which corpus was at fault.
func Load[R any](path, name string) (*Store[R], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeStoreLoadReadFailure, "opening embedding store",
			vtaerr.FieldStore(name), vtaerr.FieldPath(path))
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeStoreLoadParseInvalid, "reading gzip archive",
			vtaerr.FieldStore(name), vtaerr.FieldPath(path))
	}
	defer zr.Close()

	var a archive[R]
	if err := json.NewDecoder(zr).Decode(&a); err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeStoreLoadParseInvalid, "decoding embedding store",
			vtaerr.FieldStore(name), vtaerr.FieldPath(path))
	}

	s := &Store[R]{
		model:      a.Model,
		dimension:  a.Dimension,
		embeddings: a.Embeddings,
		records:    a.Records,
	}
	if err := s.validate(name); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store[R]) validate(name string) error {
	if len(s.embeddings) != len(s.records) {
		return vtaerr.New(vtaerr.CodeStoreLoadSchemaMismatch,
			"embeddings and records have different lengths",
			vtaerr.FieldStore(name),
			vtaerr.Field("embeddings", len(s.embeddings)),
			vtaerr.Field("records", len(s.records)))
	}

	if s.dimension <= 0 && len(s.embeddings) > 0 {
		return vtaerr.New(vtaerr.CodeStoreLoadSchemaMismatch,
			"archive declares no embedding dimension",
			vtaerr.FieldStore(name))
	}

	for i, v := range s.embeddings {
		if len(v) != s.dimension {
			return vtaerr.Errorf(vtaerr.CodeStoreLoadSchemaMismatch,
				"store %s: vector %d has dimension %d, expected %d", name, i, len(v), s.dimension)
		}
	}

	return nil
}

// Size returns the number of entries.
func (s *Store[R]) Size() int {
	return len(s.records)
}

// Dimension returns the embedding dimensionality declared by the archive.
func (s *Store[R]) Dimension() int {
	return s.dimension
}

// Model returns the embedding model name recorded at index-build time.
// Query vectors must come from the same model.
func (s *Store[R]) Model() string {
	return s.model
}

// Record returns the metadata at position i.
func (s *Store[R]) Record(i int) R {
	return s.records[i]
}

// Vector returns the embedding at position i. Callers must not mutate it.
func (s *Store[R]) Vector(i int) []float32 {
	return s.embeddings[i]
}

// New builds an in-memory store from already-parallel slices. Used by the
// index command and by tests; Load is the serving path.
func New[R any](model string, dimension int, embeddings [][]float32, records []R) (*Store[R], error) {
	s := &Store[R]{
		model:      model,
		dimension:  dimension,
		embeddings: embeddings,
		records:    records,
	}
	if err := s.validate(model); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the store to path as a gzip JSON archive. The write is
// atomic: content goes to a temp file in the same directory first and is
// renamed into place.
func (s *Store[R]) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeStoreSaveWriteFailure, "creating temp file", vtaerr.FieldPath(path))
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	enc := json.NewEncoder(zw)
	err = enc.Encode(archive[R]{
		Model:      s.model,
		Dimension:  s.dimension,
		Embeddings: s.embeddings,
		Records:    s.records,
	})
	if err == nil {
		err = zw.Close()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeStoreSaveWriteFailure, "writing embedding store", vtaerr.FieldPath(path))
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return vtaerr.Wrap(err, vtaerr.CodeStoreSaveWriteFailure, "renaming temp file", vtaerr.FieldPath(path))
	}

	return nil
}
