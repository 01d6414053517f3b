// Package filestore implements the material blob stores: a local directory and Cloudinary.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/material"
)

const tmpPrefix = ".upload-"

var errInvalidName = errors.New("invalid blob name")

// LocalStore keeps blobs as flat files in one directory.
type LocalStore struct {
	dir string
}

var (
	_ material.BlobStore  = (*LocalStore)(nil)
	_ material.BlobLister = (*LocalStore)(nil)
)

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

// path resolves name inside the store; temporary upload files only resolve when allowTmp is set.
func (s *LocalStore) path(name string, allowTmp bool) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errInvalidName
	}
	if !allowTmp && strings.HasPrefix(name, tmpPrefix) {
		return "", errInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Put writes r to a temporary file renamed to name once complete, so readers never see partial blobs.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) error {
	dst, err := s.path(name, false)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after the rename

	if _, err = io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing blob")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing blob")
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrap(err, "renaming blob")
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name, false)
	if err != nil {
		return nil, material.ErrFileNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, material.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening blob")
	}
	return f, nil
}

// Remove is a no-op when name does not exist. It also removes the temporary files listed by List.
func (s *LocalStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name, true)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing blob")
	}
	return nil
}

// List includes the temporary files of uploads that never completed: no material references
// them, so the reaper removes them once they are older than its grace period.
func (s *LocalStore) List(_ context.Context) ([]material.BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload dir")
	}
	blobs := make([]material.BlobInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed meanwhile
		}
		blobs = append(blobs, material.BlobInfo{Name: e.Name(), ModTime: info.ModTime()})
	}
	return blobs, nil
}

// ctxReader stops copying once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
