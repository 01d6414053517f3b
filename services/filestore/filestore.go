package filestore

import (
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
)

// New returns the blob store selected by conf.Storage.Driver.
func New(conf *core.Config) (material.BlobStore, error) {
	var (
		store material.BlobStore
		err   error
	)
	switch conf.Storage.Driver {
	case core.StorageLocal, "":
		store, err = NewLocalStore(conf.Storage.UploadDir)
	case core.StorageCloudinary:
		store, err = NewCloudinaryStore(conf.Storage.CloudinaryURL)
	default:
		err = errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
