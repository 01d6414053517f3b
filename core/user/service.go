package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrNoProfile      = core.NewNotFoundError("user profile")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInvalidReset   = core.NewValidationError(errors.New("invalid password reset link"))
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken.
		CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)

		CreateStudentProfile(ctx context.Context, prof StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
		CreateTeacherProfile(ctx context.Context, prof TeacherProfile, exec ...core.DBExecutor) (TeacherProfile, error)
		// GetStudentProfile and GetTeacherProfile return ErrNoProfile on miss.
		GetStudentProfile(ctx context.Context, userID int64, exec ...core.DBExecutor) (StudentProfile, error)
		GetTeacherProfile(ctx context.Context, userID int64, exec ...core.DBExecutor) (TeacherProfile, error)
		UpdateStudentProfile(ctx context.Context, prof StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
		UpdateTeacherProfile(ctx context.Context, prof TeacherProfile, exec ...core.DBExecutor) (TeacherProfile, error)
		// ListSubjectAreas returns the distinct, non-empty teacher subject areas, sorted.
		ListSubjectAreas(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		mailSvc core.EmailService
		tokens  tokenGenerator
	}
)

func NewService(conf *core.Config, tx core.Transactor, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		mailSvc: mailSvc,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exec core.DBExecutor) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exec); err != nil {
		if conflict := NewUniquenessConflict(err); conflict != nil {
			return conflict
		}
		return errors.Wrap(err, "checking uniqueness")
	}
	return nil
}

// NewUniquenessConflict turns ErrUsernameExists or ErrEmailExists into a core.ConflictError
// naming the offending field. It returns nil for any other error.
func NewUniquenessConflict(err error) error {
	var field string
	switch err {
	case ErrUsernameExists:
		field = "username"
	case ErrEmailExists:
		field = "email"
	default:
		return nil
	}
	return core.NewConflictError(err, core.FieldError{Field: field, Error: err.Error()})
}

// Register creates the User and exactly one profile matching its role, atomically.
// nu must have been validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (Identity, error) {
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	var ident Identity
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.checkUniqueness(ctx, usr.Username, usr.Email, exec); err != nil {
			return err
		}

		usr, err := svc.repo.CreateUser(ctx, usr, exec)
		if err != nil {
			return errors.Wrap(err, "creating user")
		}

		switch usr.Role {
		case RoleTeacher:
			prof, err := svc.repo.CreateTeacherProfile(ctx, TeacherProfile{
				UserID:      usr.ID,
				FirstName:   nu.FirstName,
				LastName:    nu.LastName,
				SubjectArea: nu.SubjectArea,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating teacher profile")
			}
			ident = &Teacher{User: usr, Profile: prof}
		case RoleStudent:
			prof, err := svc.repo.CreateStudentProfile(ctx, StudentProfile{
				UserID:    usr.ID,
				FirstName: nu.FirstName,
				LastName:  nu.LastName,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating student profile")
			}
			ident = &Student{User: usr, Profile: prof}
		default:
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.sendWelcomeMail(ident)
	return ident, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// IsStudent reports whether a StudentProfile exists for usr.
func (svc *Service) IsStudent(ctx context.Context, usr User) (bool, error) {
	_, err := svc.repo.GetStudentProfile(ctx, usr.ID)
	return profileExists(err)
}

// IsTeacher reports whether a TeacherProfile exists for usr.
func (svc *Service) IsTeacher(ctx context.Context, usr User) (bool, error) {
	_, err := svc.repo.GetTeacherProfile(ctx, usr.ID)
	return profileExists(err)
}

func profileExists(err error) (bool, error) {
	switch errors.Cause(err) {
	case nil:
		return true, nil
	case ErrNoProfile:
		return false, nil
	default:
		return false, err
	}
}

// ResolveIdentity loads the profile matching the user's role. ErrNoProfile when there is none.
func (svc *Service) ResolveIdentity(ctx context.Context, usr User) (Identity, error) {
	switch usr.Role {
	case RoleTeacher:
		prof, err := svc.repo.GetTeacherProfile(ctx, usr.ID)
		if err != nil {
			return nil, err
		}
		return &Teacher{User: usr, Profile: prof}, nil
	case RoleStudent:
		prof, err := svc.repo.GetStudentProfile(ctx, usr.ID)
		if err != nil {
			return nil, err
		}
		return &Student{User: usr, Profile: prof}, nil
	default:
		return nil, ErrNoProfile
	}
}

// UpdateProfile applies up to the profile of ident and returns the refreshed Identity.
func (svc *Service) UpdateProfile(ctx context.Context, ident Identity, up UpdateProfile) (Identity, error) {
	switch id := ident.(type) {
	case *Teacher:
		prof := id.Profile
		applyNames(&prof.FirstName, &prof.LastName, up)
		if up.SubjectArea != nil {
			prof.SubjectArea = *up.SubjectArea
		}
		prof, err := svc.repo.UpdateTeacherProfile(ctx, prof)
		if err != nil {
			return nil, errors.Wrap(err, "updating teacher profile")
		}
		return &Teacher{User: id.User, Profile: prof}, nil
	case *Student:
		prof := id.Profile
		applyNames(&prof.FirstName, &prof.LastName, up)
		if up.GradeLevel != nil {
			grade := *up.GradeLevel
			prof.GradeLevel = &grade
		}
		prof, err := svc.repo.UpdateStudentProfile(ctx, prof)
		if err != nil {
			return nil, errors.Wrap(err, "updating student profile")
		}
		return &Student{User: id.User, Profile: prof}, nil
	default:
		return nil, ErrNoProfile
	}
}

func applyNames(first, last *string, up UpdateProfile) {
	if up.FirstName != nil {
		*first = *up.FirstName
	}
	if up.LastName != nil {
		*last = *up.LastName
	}
}

func (svc *Service) ListSubjectAreas(ctx context.Context) ([]string, error) {
	subjects, err := svc.repo.ListSubjectAreas(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing subject areas")
	}
	if subjects == nil {
		subjects = []string{}
	}
	return subjects, nil
}

// RequestPasswordReset emails a reset link; ErrNotFound when no user has that email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

// ResetPassword sets a new password once the uid/token pair checks out. rp must have been validated.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, ErrInvalidReset
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidReset
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return User{}, ErrInvalidReset
	}
	return svc.SetPassword(ctx, usr, rp.Password)
}

func (svc *Service) sendWelcomeMail(ident Identity) {
	usr := ident.Account()
	var firstName string
	switch id := ident.(type) {
	case *Teacher:
		firstName = id.Profile.FirstName
	case *Student:
		firstName = id.Profile.FirstName
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: ident.FullName(), Address: usr.Email}},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"FirstName": firstName,
			"Username":  usr.Username,
			"Role":      map[Role]string{RoleTeacher: "teacher", RoleStudent: "student"}[usr.Role],
		},
	})
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    svc.tokens.makeToken(usr),
		},
	})
}
