package material

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
)

// Material is a teacher-uploaded resource, optionally with an attached file.
type Material struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"` // stored-file reference; "" until a file is attached
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (m Material) HasFile() bool { return m.FilePath != "" }

// Upload is a file supplied along with a material save.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string // optional; sniffed when empty
}

func (up *Upload) present() bool {
	return up != nil && up.Reader != nil && core.CleanString(up.Filename) != ""
}

// QueryFilter narrows material listings; zero fields do not filter.
type QueryFilter struct {
	SubjectArea string // exact match on the uploader's TeacherProfile.SubjectArea
	UploadedBy  int64
}

// MaterialData is what a teacher may set on a material.
type MaterialData struct {
	Title       string `json:"title" form:"title" validate:"required,notblank,max=255"`
	Description string `json:"description" form:"description" validate:"max=5000"`
}

func (md *MaterialData) Validate(validate *validator.Validate) error {
	md.Title = core.CleanString(md.Title)
	md.Description = core.CleanString(md.Description)
	return validate.Struct(md)
}

// Apply copies the editable fields onto mat.
func (md MaterialData) Apply(mat *Material) {
	mat.Title = md.Title
	mat.Description = md.Description
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name    string
	ModTime time.Time
}
