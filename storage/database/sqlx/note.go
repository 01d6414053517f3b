package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/note"
)

type noteRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const noteColumns = "id, title, content, owner_id, created_at, updated_at"

func (r noteRow) unboil() note.Note {
	return note.Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type noteRepository struct {
	repository
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(exec core.DBExecutor) *noteRepository {
	return &noteRepository{repository{exec: exec}}
}

func (repo noteRepository) QueryNotesByOwner(ctx context.Context, ownerID int64, exec ...core.DBExecutor) ([]note.Note, error) {
	var rows []noteRow
	q := "SELECT " + noteColumns + " FROM notes WHERE owner_id = $1 ORDER BY updated_at DESC, id DESC"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]note.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, r.unboil())
	}
	return notes, nil
}

func (repo noteRepository) GetNoteByID(ctx context.Context, id int64, exec ...core.DBExecutor) (note.Note, error) {
	var r noteRow
	if err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+noteColumns+" FROM notes WHERE id = $1", id); err != nil {
		return note.Note{}, trapNoRowsErr(err, note.ErrNotFound, "finding note")
	}
	return r.unboil(), nil
}

func (repo noteRepository) CreateNote(ctx context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	q := `INSERT INTO notes (title, content, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := repo.getExec(exec).GetContext(ctx, &n.ID, q,
		n.Title, n.Content, n.OwnerID, n.CreatedAt.UTC(), n.UpdatedAt.UTC()); err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo noteRepository) UpdateNote(ctx context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	q := "UPDATE notes SET title = $2, content = $3, updated_at = $4 WHERE id = $1"
	res, err := repo.getExec(exec).ExecContext(ctx, q, n.ID, n.Title, n.Content, n.UpdatedAt.UTC())
	if err != nil {
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return note.Note{}, note.ErrNotFound
	}
	return n, nil
}

func (repo noteRepository) DeleteNote(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return note.ErrNotFound
	}
	return nil
}
