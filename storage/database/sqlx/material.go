package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
)

type materialRow struct {
	ID          int64       `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	FilePath    null.String `db:"file_path"`
	ContentType null.String `db:"content_type"`
	FileSize    int64       `db:"file_size"`
	UploadedBy  int64       `db:"uploaded_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

const materialColumns = "m.id, m.title, m.description, m.file_path, m.content_type, m.file_size, m.uploaded_by, m.created_at, m.updated_at"

func (r materialRow) unboil() material.Material {
	return material.Material{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		FilePath:    r.FilePath.String,
		ContentType: r.ContentType.String,
		FileSize:    r.FileSize,
		UploadedBy:  r.UploadedBy,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type materialRepository struct {
	repository
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(exec core.DBExecutor) *materialRepository {
	return &materialRepository{repository{exec: exec}}
}

func (repo materialRepository) QueryMaterials(ctx context.Context, filter material.QueryFilter, exec ...core.DBExecutor) ([]material.Material, error) {
	q := "SELECT " + materialColumns + " FROM learning_materials m"
	var wb whereBuilder
	if filter.SubjectArea != "" {
		q += " JOIN teacher_profiles tp ON tp.user_id = m.uploaded_by"
		wb.add("tp.subject_area = ?", filter.SubjectArea)
	}
	if filter.UploadedBy != 0 {
		wb.add("m.uploaded_by = ?", filter.UploadedBy)
	}
	q += wb.String() + " ORDER BY m.created_at DESC, m.id DESC"

	var rows []materialRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	mats := make([]material.Material, 0, len(rows))
	for _, r := range rows {
		mats = append(mats, r.unboil())
	}
	return mats, nil
}

func (repo materialRepository) GetMaterialByID(ctx context.Context, id int64, exec ...core.DBExecutor) (material.Material, error) {
	var r materialRow
	q := "SELECT " + materialColumns + " FROM learning_materials m WHERE m.id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &r, q, id); err != nil {
		return material.Material{}, trapNoRowsErr(err, material.ErrNotFound, "finding material")
	}
	return r.unboil(), nil
}

func (repo materialRepository) CreateMaterial(ctx context.Context, mat material.Material, exec ...core.DBExecutor) (material.Material, error) {
	q := `INSERT INTO learning_materials
		(title, description, file_path, content_type, file_size, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &mat.ID, q,
		mat.Title, mat.Description,
		null.NewString(mat.FilePath, mat.HasFile()), null.NewString(mat.ContentType, mat.ContentType != ""),
		mat.FileSize, mat.UploadedBy, mat.CreatedAt.UTC(), mat.UpdatedAt.UTC())
	if err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}

func (repo materialRepository) UpdateMaterial(ctx context.Context, mat material.Material, exec ...core.DBExecutor) (material.Material, error) {
	q := `UPDATE learning_materials SET title = $2, description = $3, file_path = $4, content_type = $5,
		file_size = $6, uploaded_by = $7, updated_at = $8 WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		mat.ID, mat.Title, mat.Description,
		null.NewString(mat.FilePath, mat.HasFile()), null.NewString(mat.ContentType, mat.ContentType != ""),
		mat.FileSize, mat.UploadedBy, mat.UpdatedAt.UTC())
	if err != nil {
		return material.Material{}, errors.Wrap(err, "updating material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return material.Material{}, material.ErrNotFound
	}
	return mat, nil
}

func (repo materialRepository) DeleteMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM learning_materials WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return material.ErrNotFound
	}
	return nil
}

func (repo materialRepository) ListFilePaths(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	paths := make([]string, 0)
	q := "SELECT file_path FROM learning_materials WHERE file_path IS NOT NULL AND file_path <> ''"
	if err := repo.getExec(exec).SelectContext(ctx, &paths, q); err != nil {
		return nil, errors.Wrap(err, "listing file paths")
	}
	return paths, nil
}
