package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/storage/database"
)

// TestDatabaseURLEnv names the DSN of a disposable PostgreSQL database used by the SQL repository tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// PrepareDB opens & migrates the test database then empties every table.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE users, student_profiles, teacher_profiles, learning_materials, notes,
		quizzes, quiz_questions, quiz_answers, quiz_attempts, quiz_responses RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, pwd string, role user.Role, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo user.Repository, uname, pwd, subject string) *user.Teacher {
	t.Helper()
	usr := CreateUser(t, repo, uname, uname+"@test.com", pwd, user.RoleTeacher)
	prof, err := repo.CreateTeacherProfile(context.Background(), user.TeacherProfile{
		UserID:      usr.ID,
		FirstName:   "Teacher",
		LastName:    uname,
		SubjectArea: subject,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return &user.Teacher{User: usr, Profile: prof}
}

func CreateStudent(t *testing.T, repo user.Repository, uname, pwd string) *user.Student {
	t.Helper()
	usr := CreateUser(t, repo, uname, uname+"@test.com", pwd, user.RoleStudent)
	prof, err := repo.CreateStudentProfile(context.Background(), user.StudentProfile{
		UserID:    usr.ID,
		FirstName: "Student",
		LastName:  uname,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return &user.Student{User: usr, Profile: prof}
}
