package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
)

var (
	errHelp = errors.New("help provided")

	// operator is the session the CLI acts with.
	operator = core.Session{UserID: "admin-cli", Name: "Mwalimu admin", Role: core.RoleAdmin}
)

type commandLine struct {
	db        *sql.DB
	courseSvc *course.Service
	insSvc    *instructor.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the embedded migrations")
	fmt.Fprintln(cli.out, "  invite -email EMAIL - invite an instructor")
	fmt.Fprintln(cli.out, "  resequence -course ID - renumber the chapters and lessons of a course 1..N")
	fmt.Fprintln(cli.out, "      running API servers pick the repair up when their cached page expires (<ENV>_SERVER_PAGE_CACHE_TTL)")
	fmt.Fprintln(cli.out, "  outline -course ID - print the structure of a course as YAML")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	inviteCmd := flag.NewFlagSet("invite", flag.ContinueOnError)
	inviteEmail := inviteCmd.String("email", "", "The email address of the instructor to invite.")
	resequenceCmd := flag.NewFlagSet("resequence", flag.ContinueOnError)
	resequenceCourse := resequenceCmd.String("course", "", "The ID of the course to repair.")
	outlineCmd := flag.NewFlagSet("outline", flag.ContinueOnError)
	outlineCourse := outlineCmd.String("course", "", "The ID of the course to print.")
	for _, fs := range []*flag.FlagSet{inviteCmd, resequenceCmd, outlineCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "invite":
		if err := inviteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *inviteEmail == "" {
			inviteCmd.Usage()
			return errHelp
		}
		return cli.invite(ctx, *inviteEmail)
	case "resequence":
		if err := resequenceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resequenceCourse == "" {
			resequenceCmd.Usage()
			return errHelp
		}
		return cli.resequence(ctx, *resequenceCourse)
	case "outline":
		if err := outlineCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *outlineCourse == "" {
			outlineCmd.Usage()
			return errHelp
		}
		return cli.outline(ctx, *outlineCourse)
	default:
		cli.printUsage()
		return errHelp
	}
}
