package tests

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core/material"
	testutil "github.com/trezcool/classroom/tests"
)

var storedNameRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_`)

func materialPath(mat material.Material, suffix ...string) string {
	p := "/v1/materials/" + strconv.FormatInt(mat.ID, 10)
	if len(suffix) > 0 {
		p += suffix[0]
	}
	return p
}

func blobExists(t *testing.T, name string) bool {
	t.Helper()
	rc, err := blobs.Open(context.Background(), name)
	if err != nil {
		return false
	}
	_ = rc.Close()
	return true
}

func Test_materialApi(t *testing.T) {
	app := setup(t)
	math := testutil.CreateTeacher(t, usrRepo, "math", strongPwd, "Math")
	bio := testutil.CreateTeacher(t, usrRepo, "bio", strongPwd, "Biology")
	student := testutil.CreateStudent(t, usrRepo, "stud", strongPwd)
	mathToken, bioToken, studToken := getToken(t, math), getToken(t, bio), getToken(t, student)

	save := func(method, path, token, title, filename string, content []byte) material.Material {
		t.Helper()
		req, rec := newMultipartRequest(t, method, path, token, map[string]string{"title": title, "description": "desc"}, filename, content)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
			t.Fatalf("saving material failed: %d %s", rec.Code, rec.Body.String())
		}
		var mat material.Material
		unmarshal(t, rec, &mat)
		return mat
	}

	pdf := []byte("%PDF-1.4 algebra")
	algebra := save(http.MethodPost, "/v1/materials", mathToken, "Algebra", "algebra.pdf", pdf)
	cells := save(http.MethodPost, "/v1/materials", bioToken, "Cells", "", nil)

	t.Run("create with file", func(t *testing.T) {
		assert.Equal(t, math.User.ID, algebra.UploadedBy)
		assert.Regexp(t, storedNameRegex, algebra.FilePath)
		assert.Equal(t, "_algebra.pdf", storedNameRegex.ReplaceAllString(algebra.FilePath, "_"))
		assert.Equal(t, "application/pdf", algebra.ContentType)
		assert.Equal(t, int64(len(pdf)), algebra.FileSize)
		assert.True(t, blobExists(t, algebra.FilePath))
	})
	t.Run("create without file", func(t *testing.T) {
		assert.Empty(t, cells.FilePath)
		assert.False(t, cells.HasFile())
	})

	subjectPath := func(subject string) string {
		return "/v1/materials?" + url.Values{"subject": {subject}}.Encode()
	}
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/materials", wantCode: http.StatusUnauthorized},
		{name: "list all, newest first", path: "/v1/materials", token: studToken, wantData: marchallList(t, cells, algebra)},
		{name: "subject: All Subjects", path: subjectPath("All Subjects"), token: studToken, wantData: marchallList(t, cells, algebra)},
		{name: "subject: blank", path: subjectPath("  "), token: studToken, wantData: marchallList(t, cells, algebra)},
		{name: "subject: Math", path: subjectPath("Math"), token: studToken, wantData: marchallList(t, algebra)},
		{name: "subject: case sensitive", path: subjectPath("math"), token: studToken, wantData: marchallList(t)},
		{name: "subject: unknown", path: subjectPath("History"), token: studToken, wantData: marchallList(t)},
		{name: "mine", path: "/v1/materials/mine", token: bioToken, wantData: marchallList(t, cells)},
		{name: "mine: teachers only", path: "/v1/materials/mine", token: studToken, wantCode: http.StatusForbidden},
		{name: "retrieve", path: materialPath(algebra), token: studToken, wantData: marchallObj(t, algebra)},
		{name: "retrieve: unknown", path: "/v1/materials/999", token: studToken, wantCode: http.StatusNotFound},
		{
			name: "create: students forbidden", method: http.MethodPost, path: "/v1/materials", token: studToken,
			body: []byte(`{"title": "x"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "create: title required", method: http.MethodPost, path: "/v1/materials", token: mathToken,
			body: []byte(`{"description": "x"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name: "update: not uploader", method: http.MethodPut, path: materialPath(algebra), token: bioToken,
			body: []byte(`{"title": "x"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "delete: not uploader", method: http.MethodDelete, path: materialPath(algebra), token: bioToken,
			wantCode: http.StatusForbidden,
		},
		{name: "download: no file", path: materialPath(cells, "/file"), token: studToken, wantCode: http.StatusNotFound},
	})

	t.Run("download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, materialPath(algebra, "/file"), studToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=algebra.pdf`, rec.Header().Get("Content-Disposition"))
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, pdf, body)
	})

	t.Run("update keeps the file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, materialPath(algebra), mathToken, []byte(`{"title": "Algebra I", "description": "new"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got material.Material
		unmarshal(t, rec, &got)
		assert.Equal(t, "Algebra I", got.Title)
		assert.Equal(t, algebra.FilePath, got.FilePath)
		assert.Equal(t, algebra.CreatedAt.Unix(), got.CreatedAt.Unix())
		assert.True(t, blobExists(t, algebra.FilePath))
	})

	t.Run("update replaces the file", func(t *testing.T) {
		got := save(http.MethodPut, materialPath(algebra), mathToken, "Algebra II", "algebra.txt", []byte("plain text"))
		assert.NotEqual(t, algebra.FilePath, got.FilePath)
		assert.Regexp(t, storedNameRegex, got.FilePath)
		assert.Equal(t, "text/plain; charset=utf-8", got.ContentType)
		assert.True(t, blobExists(t, got.FilePath))
		assert.False(t, blobExists(t, algebra.FilePath), "previous blob not removed")
		algebra = got
	})

	t.Run("same filename never collides", func(t *testing.T) {
		other := save(http.MethodPost, "/v1/materials", mathToken, "Copy", "algebra.txt", []byte("other text"))
		assert.NotEqual(t, algebra.FilePath, other.FilePath)
		assert.True(t, blobExists(t, algebra.FilePath))
		assert.True(t, blobExists(t, other.FilePath))
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, materialPath(algebra), mathToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, blobExists(t, algebra.FilePath))

		req, rec = newAuthRequest(http.MethodGet, materialPath(algebra), mathToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
