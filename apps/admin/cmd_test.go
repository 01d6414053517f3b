package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
	"github.com/trezcool/classroom/core/user"
	emailsvc "github.com/trezcool/classroom/services/email"
	"github.com/trezcool/classroom/services/filestore"
	logsvc "github.com/trezcool/classroom/services/logger"
	inmemdb "github.com/trezcool/classroom/storage/database/inmem"
	testutil "github.com/trezcool/classroom/tests"
)

var (
	usrRepo user.Repository
	matRepo material.Repository
	blobs   *filestore.LocalStore
)

func TestMain(m *testing.M) {
	if err := core.ParseEmailTemplates(true); err != nil {
		log.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	os.Exit(m.Run())
}

func setup(t *testing.T) *commandLine {
	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Classroom",
		SecretKey: "test-secret-key",
		Storage:   core.StorageConfig{Driver: core.StorageLocal, UploadDir: t.TempDir(), ReapGrace: time.Hour},
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	user.LoadCommonPasswords(logger)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	matRepo = inmemdb.NewMaterialRepository(db)

	var err error
	if blobs, err = filestore.NewLocalStore(conf.Storage.UploadDir); err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	return &commandLine{
		conf:       conf,
		validate:   validate,
		translator: translator,
		usrSvc:     user.NewService(conf, db, usrRepo, emailsvc.NewConsoleServiceMock(conf, logger)),
		matSvc:     material.NewService(matRepo, blobs, logger),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "courses", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	testutil.CreateStudent(t, usrRepo, "taken", "LolC@t123")

	teacherArgs := []string{"adduser", "-username", "Prof", "-email", "prof@test.com", "-role", "TEACHER", "-first", "Ada", "-last", "Lovelace", "-subject", "Math"}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: teacherArgs, wantErr: errHelp},
		{
			name: "invalid role", extra: "LolC@t123", wantErrStr: "role",
			args: []string{"adduser", "-username", "x_y", "-email", "x@test.com", "-role", "ADMIN", "-first", "X", "-last", "Y"},
		},
		{name: "weak password", args: teacherArgs, extra: "12345678", wantErrStr: "password"},
		{
			name: "username taken", extra: "LolC@t123", wantErrStr: "username",
			args: []string{"adduser", "-username", "taken", "-email", "new@test.com", "-role", "STUDENT", "-first", "X", "-last", "Y"},
		},
		{name: "teacher", args: teacherArgs, extra: "LolC@t123"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}

	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, "prof")
	if !assert.NoError(t, err) {
		return
	}
	ident, err := cli.usrSvc.ResolveIdentity(ctx, usr)
	if assert.NoError(t, err) {
		if teacher, ok := ident.(*user.Teacher); assert.True(t, ok) {
			assert.Equal(t, "Math", teacher.Profile.SubjectArea)
			assert.Equal(t, "Ada Lovelace", teacher.FullName())
		}
	}
	assert.NoError(t, usr.CheckPassword("LolC@t123"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "mdr", user.RoleStudent)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_reapBlobs(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)

	putBlob := func(name string, modTime time.Time) {
		t.Helper()
		if err := blobs.Put(ctx, name, strings.NewReader(name)); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
		if err := os.Chtimes(filepath.Join(blobs.Dir(), name), modTime, modTime); err != nil {
			t.Fatalf("Chtimes() failed: %v", err)
		}
	}
	// leftover of an interrupted upload
	putTemp := func(name string, modTime time.Time) {
		t.Helper()
		path := filepath.Join(blobs.Dir(), name)
		if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("Chtimes() failed: %v", err)
		}
	}
	putBlob("referenced.pdf", old)
	putBlob("orphan.pdf", old)
	putBlob("fresh.pdf", time.Now())
	putTemp(".upload-stale", old)
	putTemp(".upload-inflight", time.Now())
	if _, err := matRepo.CreateMaterial(ctx, material.Material{Title: "Kept", FilePath: "referenced.pdf"}); err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}

	if err := cli.run([]string{"admin", "reapblobs"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}

	listed, err := blobs.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	names := make([]string, 0, len(listed))
	for _, b := range listed {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{"referenced.pdf", "fresh.pdf", ".upload-inflight"}, names)

	// a longer grace spares everything
	putBlob("orphan.pdf", old)
	assert.NoError(t, cli.run([]string{"admin", "reapblobs", "-grace", "3h"}))
	rc, err := blobs.Open(ctx, "orphan.pdf")
	if assert.NoError(t, err) {
		_ = rc.Close()
	}
}
