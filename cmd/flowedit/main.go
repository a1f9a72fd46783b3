// Command flowedit validates, converts, queries and stores XPDL process
// diagrams, and serves the same operations to agents over MCP stdio.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/store"
)

const usage = `usage: flowedit <command> [flags] [args]

commands:
  validate FILE          report errors and warnings
  convert IN OUT         convert between xpdl, json and yaml (by extension)
  query FILE EXPR        run a jq expression over a document
  save [FILE]            store a document as a new revision (default flow.xml)
  list                   list stored documents
  history DOCID          list the revisions of a document
  export DOCID [OUT]     write a stored document (stdout when OUT is omitted)
  verify DOCID [FILE]    check a document's history, optionally against a file
  serve                  run the MCP server on stdio
  init                   write ~/.flowedit/settings.json
  version                print the version
`

// cliEnv is what every command runs against.
type cliEnv struct {
	cfg      Config
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger
	settings string
}

func newLogger(level string, w io.Writer) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logging.ParseLevel(level)})
	return slog.New(logging.NewCorrelationHandler(inner))
}

// openStore opens and migrates the configured database, creating its
// directory when needed.
func (e *cliEnv) openStore(ctx context.Context) (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(e.cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(e.cfg.DBPath), err)
	}
	s, err := store.NewLibSQLStore("file:" + e.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	env := &cliEnv{
		cfg:      cfg,
		out:      os.Stdout,
		errOut:   os.Stderr,
		logger:   newLogger(cfg.LogLevel, os.Stderr),
		settings: settingsPath(),
	}
	code := run(ctx, env, os.Args[1:])
	stop()
	os.Exit(code)
}

// run dispatches a command and maps its error to an exit code.
func run(ctx context.Context, env *cliEnv, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(env.errOut, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "validate":
		err = runValidate(ctx, env, rest)
	case "convert":
		err = runConvert(ctx, env, rest)
	case "query":
		err = runQuery(ctx, env, rest)
	case "save":
		err = runSave(ctx, env, rest)
	case "list":
		err = runList(ctx, env, rest)
	case "history":
		err = runHistory(ctx, env, rest)
	case "export":
		err = runExport(ctx, env, rest)
	case "verify":
		err = runVerify(ctx, env, rest)
	case "serve":
		err = runServe(ctx, env, rest)
	case "init":
		err = runInit(env, rest)
	case "version", "-v", "--version":
		printVersion(env.out)
	case "help", "-h", "--help":
		fmt.Fprint(env.out, usage)
	default:
		fmt.Fprintf(env.errOut, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		color.New(color.FgRed).Fprintf(env.errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
