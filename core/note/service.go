package note

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

var ErrNotFound = core.NewNotFoundError("note")

type (
	Repository interface {
		// QueryNotesByOwner returns the owner's notes, most recently updated first.
		QueryNotesByOwner(ctx context.Context, ownerID int64, exec ...core.DBExecutor) ([]Note, error)
		GetNoteByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Note, error)
		CreateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		UpdateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		DeleteNote(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	// Service scopes every note operation to its owner: other users' notes look missing.
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ListByOwner(ctx context.Context, owner user.User) ([]Note, error) {
	notes, err := svc.repo.QueryNotesByOwner(ctx, owner.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Get returns ErrNotFound when the note does not exist or is not owner's.
func (svc *Service) Get(ctx context.Context, owner user.User, id int64) (Note, error) {
	n, err := svc.repo.GetNoteByID(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if !IsOwner(n, owner) {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func IsOwner(n Note, usr user.User) bool {
	return n.OwnerID == usr.ID
}

func (svc *Service) Create(ctx context.Context, owner user.User, nd NoteData) (Note, error) {
	now := time.Now().UTC()
	n, err := svc.repo.CreateNote(ctx, Note{
		Title:     nd.Title,
		Content:   nd.Content,
		OwnerID:   owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return n, errors.Wrap(err, "creating note")
}

func (svc *Service) Update(ctx context.Context, owner user.User, id int64, nd NoteData) (Note, error) {
	n, err := svc.Get(ctx, owner, id)
	if err != nil {
		return Note{}, err
	}
	n.Title = nd.Title
	n.Content = nd.Content
	n.UpdatedAt = time.Now().UTC()
	n, err = svc.repo.UpdateNote(ctx, n)
	return n, errors.Wrap(err, "updating note")
}

func (svc *Service) Delete(ctx context.Context, owner user.User, id int64) error {
	if _, err := svc.Get(ctx, owner, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteNote(ctx, id), "deleting note")
}
