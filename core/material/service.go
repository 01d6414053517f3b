package material

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("material")
	ErrFileNotFound = core.NewNotFoundError("file")
	ErrCannotList   = errors.New("blob store cannot list its blobs")

	newBlobID = uuid.NewString // mockable

	sniffLen = 3072 // bytes read to detect the content type
)

type (
	Repository interface {
		// QueryMaterials returns materials matching filter, newest first.
		QueryMaterials(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Material, error)
		GetMaterialByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Material, error)
		CreateMaterial(ctx context.Context, mat Material, exec ...core.DBExecutor) (Material, error)
		UpdateMaterial(ctx context.Context, mat Material, exec ...core.DBExecutor) (Material, error)
		DeleteMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) error
		// ListFilePaths returns every stored-file reference currently held by a material.
		ListFilePaths(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
	}

	// BlobStore persists uploaded content under flat names (no sub folders).
	BlobStore interface {
		Put(ctx context.Context, name string, r io.Reader) error
		// Open returns ErrFileNotFound when name does not exist.
		Open(ctx context.Context, name string) (io.ReadCloser, error)
		Remove(ctx context.Context, name string) error
	}

	// BlobLister is implemented by stores able to enumerate their blobs.
	BlobLister interface {
		List(ctx context.Context) ([]BlobInfo, error)
	}

	Service struct {
		repo   Repository
		blobs  BlobStore
		logger core.Logger
	}
)

func NewService(repo Repository, blobs BlobStore, logger core.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger}
}

func (svc *Service) ListAll(ctx context.Context) ([]Material, error) {
	return svc.query(ctx, QueryFilter{})
}

// ListBySubject lists the materials of teachers teaching subject.
// An empty subject or core.AllSubjects lists everything.
func (svc *Service) ListBySubject(ctx context.Context, subject string) ([]Material, error) {
	if core.IsAllSubjects(subject) {
		return svc.ListAll(ctx)
	}
	return svc.query(ctx, QueryFilter{SubjectArea: subject})
}

func (svc *Service) ListByUploader(ctx context.Context, uploaderID int64) ([]Material, error) {
	return svc.query(ctx, QueryFilter{UploadedBy: uploaderID})
}

func (svc *Service) query(ctx context.Context, filter QueryFilter) ([]Material, error) {
	mats, err := svc.repo.QueryMaterials(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	if mats == nil {
		mats = []Material{}
	}
	return mats, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Material, error) {
	return svc.repo.GetMaterialByID(ctx, id)
}

// Save inserts (zero ID) or updates mat on behalf of uploader.
//
// When up carries content, it is written under a fresh unique name before the record is persisted,
// and the previous blob is removed (best effort) once the record points at the new one.
// Without content, a new material has no file and an existing one keeps its current file.
func (svc *Service) Save(ctx context.Context, mat Material, up *Upload, uploader user.User) (Material, error) {
	isNew := mat.ID == 0
	var prev Material
	if isNew {
		mat.FilePath, mat.ContentType, mat.FileSize = "", "", 0
	} else {
		var err error
		if prev, err = svc.repo.GetMaterialByID(ctx, mat.ID); err != nil {
			return Material{}, err
		}
		mat.CreatedAt = prev.CreatedAt
		mat.FilePath, mat.ContentType, mat.FileSize = prev.FilePath, prev.ContentType, prev.FileSize
	}

	var newBlob string
	if up.present() {
		name, ct, size, err := svc.store(ctx, up)
		if err != nil {
			return Material{}, err
		}
		newBlob = name
		mat.FilePath, mat.ContentType, mat.FileSize = name, ct, size
	}

	now := time.Now().UTC()
	mat.UploadedBy = uploader.ID
	mat.UpdatedAt = now

	var err error
	if isNew {
		mat.CreatedAt = now
		mat, err = svc.repo.CreateMaterial(ctx, mat)
	} else {
		mat, err = svc.repo.UpdateMaterial(ctx, mat)
	}
	if err != nil {
		if newBlob != "" {
			svc.removeBlob(ctx, newBlob)
		}
		if core.IsNotFound(err) {
			return Material{}, err
		}
		return Material{}, errors.Wrap(err, "saving material")
	}

	if newBlob != "" && prev.HasFile() {
		svc.removeBlob(ctx, prev.FilePath)
	}
	return mat, nil
}

// store writes up's content under a new unique name and returns that name, the content type and the size.
func (svc *Service) store(ctx context.Context, up *Upload) (string, string, int64, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Reader, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", "", 0, core.NewStorageError("read upload", err)
	}
	header = header[:n]

	ct := core.CleanString(up.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(header).String()
	}

	name := StoredName(up.Filename)
	cr := &countingReader{r: io.MultiReader(bytes.NewReader(header), up.Reader)}
	if err := svc.blobs.Put(ctx, name, cr); err != nil {
		return "", "", 0, core.NewStorageError("write", err)
	}
	return name, ct, cr.n, nil
}

// StoredName builds the collision-free blob name "{uuid}_{original filename}".
func StoredName(filename string) string {
	return newBlobID() + "_" + cleanFilename(filename)
}

func cleanFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(core.CleanString(filename), `\`, "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

// removeBlob deletes name, logging (never returning) failures.
func (svc *Service) removeBlob(ctx context.Context, name string) {
	if err := svc.blobs.Remove(ctx, name); err != nil {
		svc.logger.Warn(fmt.Sprintf("could not delete blob %q: %v", name, err), err)
	}
}

// Delete removes the material's blob (best effort) then the record.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	mat, err := svc.repo.GetMaterialByID(ctx, id)
	if err != nil {
		return err
	}
	if mat.HasFile() {
		svc.removeBlob(ctx, mat.FilePath)
	}
	if err := svc.repo.DeleteMaterial(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return err
		}
		return errors.Wrap(err, "deleting material")
	}
	return nil
}

// OpenFile streams the file attached to mat. The caller must close the reader.
func (svc *Service) OpenFile(ctx context.Context, mat Material) (io.ReadCloser, error) {
	if !mat.HasFile() {
		return nil, ErrFileNotFound
	}
	rc, err := svc.blobs.Open(ctx, mat.FilePath)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrFileNotFound
		}
		return nil, core.NewStorageError("open", err)
	}
	return rc, nil
}

// ReapOrphanBlobs deletes the blobs older than grace that no material references.
// They are left behind when a save stops between the blob write and the record write.
func (svc *Service) ReapOrphanBlobs(ctx context.Context, grace time.Duration) (int, error) {
	lister, ok := svc.blobs.(BlobLister)
	if !ok {
		return 0, ErrCannotList
	}

	// list the blobs first: a blob written after the listing is never a candidate
	blobs, err := lister.List(ctx)
	if err != nil {
		return 0, core.NewStorageError("list", err)
	}
	paths, err := svc.repo.ListFilePaths(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing file paths")
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	cutoff := time.Now().Add(-grace)
	var reaped int
	for _, b := range blobs {
		if _, ok := referenced[b.Name]; ok || b.ModTime.After(cutoff) {
			continue
		}
		if err := svc.blobs.Remove(ctx, b.Name); err != nil {
			svc.logger.Warn(fmt.Sprintf("could not reap blob %q: %v", b.Name, err), err)
			continue
		}
		reaped++
	}
	return reaped, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
