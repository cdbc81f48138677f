// Command litequery is a read-only query executor over SQLite-format
// database files (spec §1/§6): it walks B-tree pages directly from disk and
// prints results to standard output, never writing anything back.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/halvorsen-io/litequery/internal/engine"
)

// cli is the argument grammar (spec §6: `litequery <database-path>
// <command>`). Command is variadic so a SQL statement's words — "SELECT",
// "name,", "color", "FROM", "apples", "WHERE", "color", "=", "'Red'" — can
// be passed as separate shell words and rejoined, matching the teacher's
// test harness invocation shape.
type cli struct {
	Database string   `arg:"" name:"database" help:"Path to the SQLite database file."`
	Command  []string `arg:"" name:"command" help:"A dot-command (.dbinfo, .tables) or a SQL SELECT statement."`
}

// queryDeadline bounds a single invocation (SPEC_FULL §5); the tool never
// relies on cancellation for correctness, only as an upper bound on a
// runaway scan.
const queryDeadline = 30 * time.Second

func main() {
	if err := runProgram(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "litequery: %v\n", err)
		os.Exit(1)
	}
}

// runProgram is the testable entry point (teacher's main_test.go pattern):
// args includes the program name at index 0, as os.Args does.
func runProgram(args []string) error {
	var c cli
	parser, err := kong.New(&c, kong.Name("litequery"), kong.Exit(func(int) {}))
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrBadArgs, err)
	}

	var parseArgs []string
	if len(args) > 1 {
		parseArgs = args[1:]
	}
	if _, err := parser.Parse(parseArgs); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrBadArgs, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryDeadline)
	defer cancel()

	e, err := engine.Open(ctx, c.Database)
	if err != nil {
		return err
	}
	defer e.Close()

	return dispatch(ctx, e, strings.Join(c.Command, " "))
}

// dispatch runs one command against an open engine, printing its output in
// the exact shape §6 describes. Dot-commands are dispatched literally;
// anything else is handed to the engine as a SQL statement.
func dispatch(ctx context.Context, e *engine.Engine, command string) error {
	switch command {
	case ".dbinfo":
		pageSize, tableCount, err := e.DBInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("database page size: %d\n", pageSize)
		fmt.Printf("number of tables: %d\n", tableCount)
		return nil

	case ".tables":
		fmt.Println(strings.Join(e.TableNames(), " "))
		return nil

	case "":
		return fmt.Errorf("%w: no command given", engine.ErrBadArgs)
	}

	if strings.HasPrefix(command, ".") {
		return fmt.Errorf("%w: %s", engine.ErrUnknownCommand, command)
	}

	lines, _, err := e.Execute(ctx, command)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
