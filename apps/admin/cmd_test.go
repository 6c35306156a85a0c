package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/services/email"
	"github.com/trezcool/mwalimu/services/logger"
	"github.com/trezcool/mwalimu/services/pagecache"
	"github.com/trezcool/mwalimu/storage/database/dbtest"
	"github.com/trezcool/mwalimu/storage/database/inmem"
)

var (
	crsRepo course.Repository
	insRepo instructor.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := inmemdb.NewDB()
	crsRepo = inmemdb.NewCourseRepository(db)
	insRepo = inmemdb.NewInstructorRepository(db)

	// set up services
	conf := &core.Config{AppName: "Mwalimu", TestMode: true}
	appLogger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	insSvc := instructor.NewService(insRepo, emailsvc.NewConsoleServiceMock(conf, appLogger), appLogger)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		courseSvc: course.NewService(crsRepo, insSvc, pagecache.New(nil, 0)),
		insSvc:    insSvc,
		out:       out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, out := setup(t)
	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "usage mentions the page cache", wantErr: errHelp, wantOut: "SERVER_PAGE_CACHE_TTL"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_course_tags", "sql"}},
	})
}

func Test_commandLine_invite(t *testing.T) {
	cli, out := setup(t)
	emailsvc.ResetSentMessages()

	runCLITests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"invite"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"invite", "-email", "lol"}, wantErrStr: "invalid email: email must be a valid email address"},
		{name: "invited", args: []string{"invite", "-email", "Prof@Mwalimu.test"}, wantOut: "invited prof@mwalimu.test"},
		{name: "duplicate", args: []string{"invite", "-email", "prof@mwalimu.test"}, wantErrStr: "email already exists or invalid"},
	})

	records, err := insRepo.QueryInstructors(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsPending())
	assert.Len(t, emailsvc.SentMessages(), 1)
}

func Test_commandLine_courses(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	ins := dbtest.CreateInstructor(t, insRepo, "prof@mwalimu.test", "user-prof")
	crs := dbtest.CreateCourse(t, crsRepo, ins.ID, "Broken Course")
	ch1 := dbtest.CreateChapter(t, crsRepo, crs.ID, "First", 3)
	ch2 := dbtest.CreateChapter(t, crsRepo, crs.ID, "Second", 7)
	dbtest.CreateLesson(t, crsRepo, ch2.ID, "Only lesson", 4)

	runCLITests(t, cli, out, []cliTest{
		{name: "resequence: no args", args: []string{"resequence"}, wantErr: errHelp},
		{name: "resequence: unknown course", args: []string{"resequence", "-course", "lol"}, wantErr: course.ErrNotFound},
		{name: "resequence", args: []string{"resequence", "-course", crs.ID}, wantOut: "3 item(s) repositioned\nAPI servers serve the new positions"},
		{name: "resequence: nothing to do", args: []string{"resequence", "-course", crs.ID}, wantOut: "0 item(s) repositioned"},
		{name: "outline: no args", args: []string{"outline"}, wantErr: errHelp},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "outline", "-course", crs.ID}))
	var got outlineCourse
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, crs.ID, got.ID)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, ch1.ID, got.Chapters[0].ID)
	assert.Equal(t, 1, got.Chapters[0].Position)
	assert.Equal(t, ch2.ID, got.Chapters[1].ID)
	assert.Equal(t, 2, got.Chapters[1].Position)
	require.Len(t, got.Chapters[1].Lessons, 1)
	assert.Equal(t, 1, got.Chapters[1].Lessons[0].Position)

	chapters, err := crsRepo.ListChapters(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, chapters[1].Position)
}
