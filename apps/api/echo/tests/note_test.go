package tests

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core/note"
	testutil "github.com/trezcool/classroom/tests"
)

func Test_noteApi(t *testing.T) {
	app := setup(t)
	owner := testutil.CreateTeacher(t, usrRepo, "owner", strongPwd, "Math")
	other := testutil.CreateTeacher(t, usrRepo, "other", strongPwd, "Math")
	student := testutil.CreateStudent(t, usrRepo, "stud", strongPwd)
	ownerToken := getToken(t, owner)

	create := func(title, content string) note.Note {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notes", ownerToken, marchallObj(t, note.NoteData{Title: title, Content: content}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating note failed: %d %s", rec.Code, rec.Body.String())
		}
		var n note.Note
		unmarshal(t, rec, &n)
		return n
	}
	older := create("Older", "first")
	time.Sleep(time.Millisecond)
	newer := create(" Newer ", "second")
	assert.Equal(t, "Newer", newer.Title)
	assert.Equal(t, owner.User.ID, newer.OwnerID)

	path := func(n note.Note) string { return "/v1/notes/" + strconv.FormatInt(n.ID, 10) }

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/notes", wantCode: http.StatusUnauthorized},
		{name: "students forbidden", path: "/v1/notes", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "list own, recently updated first", path: "/v1/notes", token: ownerToken, wantData: marchallList(t, newer, older)},
		{name: "others see none", path: "/v1/notes", token: getToken(t, other), wantData: marchallList(t)},
		{name: "retrieve", path: path(older), token: ownerToken, wantData: marchallObj(t, older)},
		{name: "retrieve: not owner", path: path(older), token: getToken(t, other), wantCode: http.StatusNotFound},
		{name: "retrieve: malformed id", path: "/v1/notes/lol", token: ownerToken, wantCode: http.StatusNotFound},
		{
			name: "create: title required", method: http.MethodPost, path: "/v1/notes", token: ownerToken,
			body: []byte(`{"content": "x"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name: "update: not owner", method: http.MethodPut, path: path(older), token: getToken(t, other),
			body: marchallObj(t, note.NoteData{Title: "hacked"}), wantCode: http.StatusNotFound,
		},
		{
			name: "delete: not owner", method: http.MethodDelete, path: path(older), token: getToken(t, other),
			wantCode: http.StatusNotFound,
		},
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path(older), ownerToken, marchallObj(t, note.NoteData{Title: "Edited", Content: "edited"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got note.Note
		unmarshal(t, rec, &got)
		assert.Equal(t, "Edited", got.Title)
		assert.Equal(t, older.CreatedAt.Unix(), got.CreatedAt.Unix())
		assert.True(t, got.UpdatedAt.After(older.UpdatedAt))

		// now the most recently updated
		req, rec = newAuthRequest(http.MethodGet, "/v1/notes", ownerToken)
		app.ServeHTTP(rec, req)
		var notes []note.Note
		unmarshal(t, rec, &notes)
		if assert.Len(t, notes, 2) {
			assert.Equal(t, older.ID, notes[0].ID)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(newer), ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, path(newer), ownerToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
