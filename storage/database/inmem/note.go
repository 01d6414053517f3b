package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/note"
)

type noteRepository struct {
	db *DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *DB) *noteRepository {
	return &noteRepository{db: db}
}

func (repo *noteRepository) QueryNotesByOwner(_ context.Context, ownerID int64, _ ...core.DBExecutor) ([]note.Note, error) {
	notes := make([]note.Note, 0)
	repo.db.read(func(t *tables) {
		for _, n := range t.notes {
			if n.OwnerID == ownerID {
				notes = append(notes, n)
			}
		}
	})
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].ID > notes[j].ID
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (repo *noteRepository) GetNoteByID(_ context.Context, id int64, _ ...core.DBExecutor) (n note.Note, err error) {
	err = note.ErrNotFound
	repo.db.read(func(t *tables) {
		if found, ok := t.notes[id]; ok {
			n, err = found, nil
		}
	})
	return n, err
}

func (repo *noteRepository) CreateNote(_ context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	repo.db.write(exec, func(t *tables) {
		n.ID = t.nextID()
		t.notes[n.ID] = n
	})
	return n, nil
}

func (repo *noteRepository) UpdateNote(_ context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	err := note.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.notes[n.ID]; ok {
			t.notes[n.ID] = n
			err = nil
		}
	})
	if err != nil {
		return note.Note{}, err
	}
	return n, nil
}

func (repo *noteRepository) DeleteNote(_ context.Context, id int64, exec ...core.DBExecutor) error {
	err := note.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.notes[id]; ok {
			delete(t.notes, id)
			err = nil
		}
	})
	return err
}
