package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

type (
	userRow struct {
		ID           int64     `db:"id"`
		Username     string    `db:"username"`
		Email        string    `db:"email"`
		Role         string    `db:"role"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	studentRow struct {
		ID         int64    `db:"id"`
		UserID     int64    `db:"user_id"`
		FirstName  string   `db:"first_name"`
		LastName   string   `db:"last_name"`
		GradeLevel null.Int `db:"grade_level"`
	}

	teacherRow struct {
		ID          int64       `db:"id"`
		UserID      int64       `db:"user_id"`
		FirstName   string      `db:"first_name"`
		LastName    string      `db:"last_name"`
		SubjectArea null.String `db:"subject_area"`
	}
)

const userColumns = "id, username, email, role, password_hash, created_at, last_login"

// default names of the users UNIQUE constraints
const (
	usersUsernameKey = "users_username_key"
	usersEmailKey    = "users_email_key"
)

func (r userRow) unboil() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (r studentRow) unboil() user.StudentProfile {
	prof := user.StudentProfile{ID: r.ID, UserID: r.UserID, FirstName: r.FirstName, LastName: r.LastName}
	if r.GradeLevel.Valid {
		grade := r.GradeLevel.Int
		prof.GradeLevel = &grade
	}
	return prof
}

func (r teacherRow) unboil() user.TeacherProfile {
	return user.TeacherProfile{
		ID:          r.ID,
		UserID:      r.UserID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		SubjectArea: r.SubjectArea.String,
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users WHERE username = $1 OR email = $2"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, username, email); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO users (username, email, role, password_hash, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &usr.ID, q,
		usr.Username, usr.Email, string(usr.Role), usr.PasswordHash, usr.CreatedAt.UTC(),
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()))
	if err != nil {
		if constraint, ok := violatedConstraint(err); ok {
			return user.User{}, userConflict(constraint)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

// userConflict maps a violated users constraint to the matching field conflict.
func userConflict(constraint string) error {
	switch constraint {
	case usersEmailKey:
		return user.NewUniquenessConflict(user.ErrEmailExists)
	case usersUsernameKey:
		return user.NewUniquenessConflict(user.ErrUsernameExists)
	}
	return core.NewConflictError(errors.Errorf("unique constraint %q violated", constraint))
}

func (repo userRepository) getUser(ctx context.Context, exe core.DBExecutor, where string, arg interface{}) (user.User, error) {
	var r userRow
	if err := exe.GetContext(ctx, &r, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.unboil(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "id = $1", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "email = $1", email)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, repo.getExec(exec), "username = $1 OR email = $1", uname)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET username = $2, email = $3, role = $4, password_hash = $5, last_login = $6 WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		usr.ID, usr.Username, usr.Email, string(usr.Role), usr.PasswordHash,
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewConflictError(errors.New("username or email already taken"))
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) CreateStudentProfile(ctx context.Context, prof user.StudentProfile, exec ...core.DBExecutor) (user.StudentProfile, error) {
	q := `INSERT INTO student_profiles (user_id, first_name, last_name, grade_level) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.getExec(exec).GetContext(ctx, &prof.ID, q,
		prof.UserID, prof.FirstName, prof.LastName, null.IntFromPtr(prof.GradeLevel)); err != nil {
		return user.StudentProfile{}, errors.Wrap(err, "inserting student profile")
	}
	return prof, nil
}

func (repo userRepository) CreateTeacherProfile(ctx context.Context, prof user.TeacherProfile, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	q := `INSERT INTO teacher_profiles (user_id, first_name, last_name, subject_area) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.getExec(exec).GetContext(ctx, &prof.ID, q,
		prof.UserID, prof.FirstName, prof.LastName, null.NewString(prof.SubjectArea, prof.SubjectArea != "")); err != nil {
		return user.TeacherProfile{}, errors.Wrap(err, "inserting teacher profile")
	}
	return prof, nil
}

func (repo userRepository) GetStudentProfile(ctx context.Context, userID int64, exec ...core.DBExecutor) (user.StudentProfile, error) {
	var r studentRow
	q := "SELECT id, user_id, first_name, last_name, grade_level FROM student_profiles WHERE user_id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &r, q, userID); err != nil {
		return user.StudentProfile{}, trapNoRowsErr(err, user.ErrNoProfile, "finding student profile")
	}
	return r.unboil(), nil
}

func (repo userRepository) GetTeacherProfile(ctx context.Context, userID int64, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	var r teacherRow
	q := "SELECT id, user_id, first_name, last_name, subject_area FROM teacher_profiles WHERE user_id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &r, q, userID); err != nil {
		return user.TeacherProfile{}, trapNoRowsErr(err, user.ErrNoProfile, "finding teacher profile")
	}
	return r.unboil(), nil
}

func (repo userRepository) UpdateStudentProfile(ctx context.Context, prof user.StudentProfile, exec ...core.DBExecutor) (user.StudentProfile, error) {
	q := "UPDATE student_profiles SET first_name = $2, last_name = $3, grade_level = $4 WHERE user_id = $1"
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		prof.UserID, prof.FirstName, prof.LastName, null.IntFromPtr(prof.GradeLevel))
	if err != nil {
		return user.StudentProfile{}, errors.Wrap(err, "updating student profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.StudentProfile{}, user.ErrNoProfile
	}
	return prof, nil
}

func (repo userRepository) UpdateTeacherProfile(ctx context.Context, prof user.TeacherProfile, exec ...core.DBExecutor) (user.TeacherProfile, error) {
	q := "UPDATE teacher_profiles SET first_name = $2, last_name = $3, subject_area = $4 WHERE user_id = $1"
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		prof.UserID, prof.FirstName, prof.LastName, null.NewString(prof.SubjectArea, prof.SubjectArea != ""))
	if err != nil {
		return user.TeacherProfile{}, errors.Wrap(err, "updating teacher profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.TeacherProfile{}, user.ErrNoProfile
	}
	return prof, nil
}

func (repo userRepository) ListSubjectAreas(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	subjects := make([]string, 0)
	q := `SELECT DISTINCT subject_area FROM teacher_profiles
		WHERE subject_area IS NOT NULL AND subject_area <> '' ORDER BY subject_area`
	if err := repo.getExec(exec).SelectContext(ctx, &subjects, q); err != nil {
		return nil, errors.Wrap(err, "listing subject areas")
	}
	return subjects, nil
}
