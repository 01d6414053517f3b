package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/material"
)

const (
	subjectParam = "subject"
	uploadField  = "file"
)

// SubjectFilter binds the catalog's ?subject= filter. Empty or "All Subjects" disables it.
type SubjectFilter struct {
	Subject string `query:"subject"`
}

func (sf *SubjectFilter) Bind(ctx echo.Context) {
	sf.Subject = ctx.QueryParam(subjectParam)
}

// pathID parses the int64 path parameter name; malformed IDs are reported as not found.
func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// bindUpload opens the optional multipart file of the request.
// up is nil when no file was sent; closer must always be called.
func bindUpload(ctx echo.Context) (up *material.Upload, closer func(), err error) {
	closer = func() {}
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, closer, nil
		}
		return nil, closer, errors.Wrap(err, "reading uploaded file")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, closer, errors.Wrap(err, "opening uploaded file")
	}
	return &material.Upload{
		Reader:      io.Reader(f),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, func() { _ = f.Close() }, nil
}
