package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
)

type materialRepository struct {
	db *DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) *materialRepository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) QueryMaterials(_ context.Context, filter material.QueryFilter, _ ...core.DBExecutor) ([]material.Material, error) {
	mats := make([]material.Material, 0)
	repo.db.read(func(t *tables) {
		for _, m := range t.materials {
			if filter.UploadedBy != 0 && m.UploadedBy != filter.UploadedBy {
				continue
			}
			if filter.SubjectArea != "" && t.teachers[m.UploadedBy].SubjectArea != filter.SubjectArea {
				continue
			}
			mats = append(mats, m)
		}
	})
	sort.Slice(mats, func(i, j int) bool {
		if mats[i].CreatedAt.Equal(mats[j].CreatedAt) {
			return mats[i].ID > mats[j].ID
		}
		return mats[i].CreatedAt.After(mats[j].CreatedAt)
	})
	return mats, nil
}

func (repo *materialRepository) GetMaterialByID(_ context.Context, id int64, _ ...core.DBExecutor) (mat material.Material, err error) {
	err = material.ErrNotFound
	repo.db.read(func(t *tables) {
		if m, ok := t.materials[id]; ok {
			mat, err = m, nil
		}
	})
	return mat, err
}

func (repo *materialRepository) CreateMaterial(_ context.Context, mat material.Material, exec ...core.DBExecutor) (material.Material, error) {
	repo.db.write(exec, func(t *tables) {
		mat.ID = t.nextID()
		t.materials[mat.ID] = mat
	})
	return mat, nil
}

func (repo *materialRepository) UpdateMaterial(_ context.Context, mat material.Material, exec ...core.DBExecutor) (material.Material, error) {
	err := material.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.materials[mat.ID]; ok {
			t.materials[mat.ID] = mat
			err = nil
		}
	})
	if err != nil {
		return material.Material{}, err
	}
	return mat, nil
}

func (repo *materialRepository) DeleteMaterial(_ context.Context, id int64, exec ...core.DBExecutor) error {
	err := material.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.materials[id]; ok {
			delete(t.materials, id)
			err = nil
		}
	})
	return err
}

func (repo *materialRepository) ListFilePaths(_ context.Context, _ ...core.DBExecutor) ([]string, error) {
	paths := make([]string, 0)
	repo.db.read(func(t *tables) {
		for _, m := range t.materials {
			if m.HasFile() {
				paths = append(paths, m.FilePath)
			}
		}
	})
	return paths, nil
}
