package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, _ ...core.DBExecutor) (err error) {
	repo.db.read(func(t *tables) {
		for _, usr := range t.users {
			if usr.Username == username {
				err = user.ErrUsernameExists
				return
			}
			if usr.Email == email {
				err = user.ErrEmailExists
				return
			}
		}
	})
	return err
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.write(exec, func(t *tables) {
		usr.ID = t.nextID()
		t.users[usr.ID] = usr
	})
	return usr, nil
}

func (repo *userRepository) findUser(match func(user.User) bool) (usr user.User, err error) {
	err = user.ErrNotFound
	repo.db.read(func(t *tables) {
		for _, u := range t.users {
			if match(u) {
				usr, err = u, nil
				return
			}
		}
	})
	return usr, err
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64, _ ...core.DBExecutor) (user.User, error) {
	return repo.findUser(func(u user.User) bool { return u.ID == id })
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	return repo.findUser(func(u user.User) bool { return u.Email == email })
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string, _ ...core.DBExecutor) (user.User, error) {
	return repo.findUser(func(u user.User) bool { return u.Username == uname || u.Email == uname })
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := user.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.users[usr.ID]; ok {
			t.users[usr.ID] = usr
			err = nil
		}
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) CreateStudentProfile(_ context.Context, prof user.StudentProfile, exec ...core.DBExecutor) (user.StudentProfile, error) {
	repo.db.write(exec, func(t *tables) {
		prof.ID = t.nextID()
		t.students[prof.UserID] = prof
	})
	return prof, nil
}

func (repo *userRepository) CreateTeacherProfile(_ context.Context, prof user.TeacherProfile, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	repo.db.write(exec, func(t *tables) {
		prof.ID = t.nextID()
		t.teachers[prof.UserID] = prof
	})
	return prof, nil
}

func (repo *userRepository) GetStudentProfile(_ context.Context, userID int64, _ ...core.DBExecutor) (prof user.StudentProfile, err error) {
	err = user.ErrNoProfile
	repo.db.read(func(t *tables) {
		if p, ok := t.students[userID]; ok {
			prof, err = p, nil
		}
	})
	return prof, err
}

func (repo *userRepository) GetTeacherProfile(_ context.Context, userID int64, _ ...core.DBExecutor) (prof user.TeacherProfile, err error) {
	err = user.ErrNoProfile
	repo.db.read(func(t *tables) {
		if p, ok := t.teachers[userID]; ok {
			prof, err = p, nil
		}
	})
	return prof, err
}

func (repo *userRepository) UpdateStudentProfile(_ context.Context, prof user.StudentProfile, exec ...core.DBExecutor) (user.StudentProfile, error) {
	err := user.ErrNoProfile
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.students[prof.UserID]; ok {
			t.students[prof.UserID] = prof
			err = nil
		}
	})
	if err != nil {
		return user.StudentProfile{}, err
	}
	return prof, nil
}

func (repo *userRepository) UpdateTeacherProfile(_ context.Context, prof user.TeacherProfile, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	err := user.ErrNoProfile
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.teachers[prof.UserID]; ok {
			t.teachers[prof.UserID] = prof
			err = nil
		}
	})
	if err != nil {
		return user.TeacherProfile{}, err
	}
	return prof, nil
}

func (repo *userRepository) ListSubjectAreas(_ context.Context, _ ...core.DBExecutor) ([]string, error) {
	seen := make(map[string]struct{})
	subjects := make([]string, 0)
	repo.db.read(func(t *tables) {
		for _, p := range t.teachers {
			if p.SubjectArea == "" {
				continue
			}
			if _, ok := seen[p.SubjectArea]; !ok {
				seen[p.SubjectArea] = struct{}{}
				subjects = append(subjects, p.SubjectArea)
			}
		}
	})
	sort.Strings(subjects)
	return subjects, nil
}
