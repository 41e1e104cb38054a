package main

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mobashi/surv/core/user"
	dummydb "github.com/mobashi/surv/storage/database/dummy"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: dummydb.NewUserRepository(db),
	}
}

func createUser(t *testing.T, repo user.Repository, uname, email, pwd string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version", "fix":
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Errorf("cli.run() expected error, got nil")
				}
				return
			}
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			} else {
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"addadmin", "-username", "boss"}, wantErr: errHelp},
		{name: "password too similar to username", args: []string{"addadmin", "-username", "bigboss"}, pwd: "Bigboss1!"},
		{name: "create admin", args: []string{"addadmin", "-username", "boss", "-email", "boss@test.it"}, pwd: "v3rY$ecret!"},
		{name: "promote existing user", args: []string{"addadmin", "-username", "boss"}, pwd: "An0ther$ecret"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.pwd), nil }

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "password too similar to username":
				if err == nil {
					t.Error("cli.run() expected a password validation error, got nil")
				}
			case "create admin", "promote existing user":
				if err != nil {
					t.Fatalf("cli.run() unexpected error = %v", err)
				}
				usr, err := cli.usrRepo.GetUserByUsername(context.Background(), "boss")
				if err != nil {
					t.Fatalf("GetUserByUsername() failed: %v", err)
				}
				if !usr.IsAdmin() || !usr.IsStaff || !usr.IsActive {
					t.Errorf("expected an active staff admin, got %+v", usr)
				}
			default:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}

	// promoting must not create a duplicate account
	users, err := cli.usrRepo.QueryAllUsers(context.Background())
	if err != nil {
		t.Fatalf("QueryAllUsers() failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, cli.usrRepo, "awe", "awe@test.it", "in1t1aL@pass")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "wH4tever!", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", "awe"}, pwd: "N3w$passwd"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "awe@test.it"}, pwd: "Y3t@another"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.pwd), nil }

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := cli.usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if refreshed.CheckPassword(tt.pwd) != nil {
					t.Error("failed to update the password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
