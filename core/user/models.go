package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classroom/core"
)

// Roles
const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

type Role string

func (r Role) Valid() bool { return r == RoleStudent || r == RoleTeacher }

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

type StudentProfile struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	GradeLevel *int   `json:"grade_level"`
}

type TeacherProfile struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SubjectArea string `json:"subject_area"` // "" when unset
}

// Identity is an authenticated user resolved to exactly one role: *Student or *Teacher.
type Identity interface {
	Account() User
	Role() Role
	FullName() string
	identity()
}

type Student struct {
	User    User           `json:"user"`
	Profile StudentProfile `json:"profile"`
}

type Teacher struct {
	User    User           `json:"user"`
	Profile TeacherProfile `json:"profile"`
}

var (
	_ Identity = (*Student)(nil)
	_ Identity = (*Teacher)(nil)
)

func (s *Student) Account() User    { return s.User }
func (s *Student) Role() Role       { return RoleStudent }
func (s *Student) FullName() string { return fullName(s.Profile.FirstName, s.Profile.LastName) }
func (*Student) identity()          {}

func (t *Teacher) Account() User    { return t.User }
func (t *Teacher) Role() Role       { return RoleTeacher }
func (t *Teacher) FullName() string { return fullName(t.Profile.FirstName, t.Profile.LastName) }
func (*Teacher) identity()          {}

func fullName(first, last string) string {
	return core.CleanString(first + " " + last)
}

// NewUser contains information needed to register a new User and its profile.
type NewUser struct {
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"required,role"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	SubjectArea     string `json:"subject_area" validate:"omitempty,max=100"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.SubjectArea = core.CleanString(nu.SubjectArea)
	return validate.Struct(nu)
}

// UpdateProfile defines what an owner may change on their own profile.
// Fields left nil are kept; SubjectArea only applies to teachers and GradeLevel only to students.
type UpdateProfile struct {
	FirstName   *string `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,notblank,max=100"`
	SubjectArea *string `json:"subject_area" validate:"omitempty,max=100"`
	GradeLevel  *int    `json:"grade_level" validate:"omitempty,min=1,max=13"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	for _, s := range []*string{up.FirstName, up.LastName, up.SubjectArea} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }
