package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rendis/flowedit/internal/editor"
	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/snapshot"
	"github.com/rendis/flowedit/internal/store"
	"github.com/rendis/flowedit/internal/streaming"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/mcp"
	"github.com/rendis/flowedit/pkg/schema"
)

const defaultSaveFile = "flow.xml"

var (
	good = color.New(color.FgGreen)
	bad  = color.New(color.FgRed)
	warn = color.New(color.FgYellow)
)

// parseFlags parses args with a command's flag set and returns the
// positionals. Flag errors are reported on the env's error writer.
func parseFlags(fs *flag.FlagSet, env *cliEnv, args []string) ([]string, error) {
	fs.SetOutput(env.errOut)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func readProject(path string) (*schema.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := snapshot.Unmarshal(data, snapshot.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func runValidate(_ context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: flowedit validate FILE")
	}

	p, err := readProject(rest[0])
	if err != nil {
		return err
	}
	exprs, err := expressions.NewSet()
	if err != nil {
		return err
	}
	result := validation.NewProjectValidator(exprs).ValidateProject(p)

	for _, issue := range result.Errors {
		bad.Fprintf(env.out, "  ✗ %s %s: %s\n", issue.Path, issue.Code, issue.Message)
	}
	for _, issue := range result.Warnings {
		warn.Fprintf(env.out, "  ! %s %s: %s\n", issue.Path, issue.Code, issue.Message)
	}
	if !result.Valid() {
		return result.ToError()
	}
	good.Fprintf(env.out, "  ✓ %s is valid (%d processes, %d warnings)\n",
		rest[0], len(p.Processes), len(result.Warnings))
	return nil
}

func runConvert(_ context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	formatName := fs.String("format", "", "output format: xpdl, json, yaml (default: by extension)")
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return errors.New("usage: flowedit convert [-format F] IN OUT")
	}

	p, err := readProject(rest[0])
	if err != nil {
		return err
	}
	format := snapshot.FormatFromPath(rest[1])
	if *formatName != "" {
		if format, err = snapshot.ParseFormat(*formatName); err != nil {
			return err
		}
	}
	data, err := snapshot.Marshal(p, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(rest[1], data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Wrote %s (%s)\n", rest[1], format)
	return nil
}

func runQuery(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return errors.New("usage: flowedit query FILE EXPR")
	}

	p, err := readProject(rest[0])
	if err != nil {
		return err
	}
	results, err := snapshot.Query(ctx, expressions.NewGoJQEngine(), p, rest[1])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(env.out)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// runSave stores FILE through an editor session, so the stored content is
// the editor's canonical export.
func runSave(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	name := fs.String("name", "", "document name (default: project name)")
	message := fs.String("message", "", "revision message")
	docID := fs.String("doc", "", "append a revision to an existing document")
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	path := defaultSaveFile
	switch len(rest) {
	case 0:
	case 1:
		path = rest[0]
	default:
		return errors.New("usage: flowedit save [-name N] [-message M] [-doc ID] [FILE]")
	}

	p, err := readProject(path)
	if err != nil {
		return err
	}
	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	app, err := editor.New(env.cfg.EditorOptions(), streaming.NewMemoryHub(), env.logger)
	if err != nil {
		return err
	}
	if *docID != "" {
		if err := app.Open(ctx, st, *docID); err != nil {
			return err
		}
	}
	if err := app.Project.Load(ctx, p); err != nil {
		return err
	}
	rev, err := app.Persist(ctx, st, *name, *message)
	if err != nil {
		return err
	}
	good.Fprintf(env.out, "  ✓ saved %s as document %s revision %d\n", path, rev.DocumentID, rev.Sequence)
	return nil
}

func runList(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	name := fs.String("name", "", "filter by name substring")
	limit := fs.Int("limit", 50, "maximum number of documents")
	if _, err := parseFlags(fs, env, args); err != nil {
		return err
	}

	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.ListDocuments(ctx, store.DocumentFilter{Name: *name, Limit: *limit})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(env.out, "No documents.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(env.out)
	tw.AppendHeader(table.Row{"ID", "Name", "Processes", "Revision", "Updated"})
	for _, d := range docs {
		tw.AppendRow(table.Row{d.ID, d.Name, d.ProcessCount, d.Revision, d.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	tw.Render()
	return nil
}

func runHistory(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: flowedit history DOCID")
	}

	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetDocument(ctx, rest[0]); err != nil {
		return err
	}
	revs, err := st.ListRevisions(ctx, rest[0], 0)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(env.out)
	tw.AppendHeader(table.Row{"Rev", "Checksum", "Author", "Message", "Created"})
	for _, r := range revs {
		tw.AppendRow(table.Row{r.Sequence, shortChecksum(r.Checksum), r.Author, r.Message,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05")})
	}
	tw.Render()

	if n, err := store.NewRevisionLog(st).Verify(ctx, rest[0]); err != nil {
		bad.Fprintf(env.out, "  ✗ history broken after %d revisions: %v\n", n, err)
	} else {
		good.Fprintf(env.out, "  ✓ %d revisions verified\n", n)
	}
	return nil
}

func runExport(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	rev := fs.Int64("rev", 0, "revision to export (default: latest)")
	formatName := fs.String("format", "", "output format: xpdl, json, yaml (default: by extension)")
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) < 1 || len(rest) > 2 {
		return errors.New("usage: flowedit export [-rev N] [-format F] DOCID [OUT]")
	}
	out := ""
	if len(rest) == 2 {
		out = rest[1]
	}

	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	app, err := editor.New(env.cfg.EditorOptions(), streaming.NewMemoryHub(), env.logger)
	if err != nil {
		return err
	}
	if *rev > 0 {
		r, err := st.GetRevision(ctx, rest[0], *rev)
		if err != nil {
			return err
		}
		if err := app.Import(ctx, r.Content); err != nil {
			return err
		}
	} else if err := app.Open(ctx, st, rest[0]); err != nil {
		return err
	}

	format := snapshot.FormatXPDL
	if out != "" {
		format = snapshot.FormatFromPath(out)
	}
	if *formatName != "" {
		if format, err = snapshot.ParseFormat(*formatName); err != nil {
			return err
		}
	}
	data, err := snapshot.Marshal(app.Project.Save(), format)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = env.out.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Wrote %s (%s)\n", out, format)
	return nil
}

// runVerify checks a document's revision chain and, given a file, whether
// the file matches the latest revision byte for byte.
func runVerify(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	rest, err := parseFlags(fs, env, args)
	if err != nil {
		return err
	}
	if len(rest) < 1 || len(rest) > 2 {
		return errors.New("usage: flowedit verify DOCID [FILE]")
	}

	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := store.NewRevisionLog(st).Verify(ctx, rest[0])
	if err != nil {
		return err
	}
	good.Fprintf(env.out, "  ✓ %d revisions verified\n", n)
	if len(rest) == 1 {
		return nil
	}

	head, err := st.GetRevision(ctx, rest[0], int64(n))
	if err != nil {
		return err
	}
	sum, err := fileChecksum(rest[1])
	if err != nil {
		return err
	}
	if sum != head.Checksum {
		return schema.NewErrorf(schema.ErrCodeStore, "%s (%s) differs from revision %d (%s)",
			rest[1], shortChecksum(sum), head.Sequence, shortChecksum(head.Checksum))
	}
	good.Fprintf(env.out, "  ✓ %s matches revision %d\n", rest[1], head.Sequence)
	return nil
}

func runServe(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if _, err := parseFlags(fs, env, args); err != nil {
		return err
	}

	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := mcp.NewFloweditServer(mcp.FloweditServerDeps{
		Store:        st,
		Hub:          streaming.NewMemoryHub(),
		Logger:       env.logger,
		MinNodeWidth: env.cfg.MinNodeWidth,
		Version:      version,
	})
	if err != nil {
		return err
	}
	env.logger.Info("flowedit MCP server starting", "db_path", env.cfg.DBPath, "version", version)
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runInit writes settings.json from flags, starting from the current
// configuration so unspecified keys keep their values.
func runInit(env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cfg := env.cfg
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.Float64Var(&cfg.MinNodeWidth, "min-node-width", cfg.MinNodeWidth, "minimum activity width")
	fs.IntVar(&cfg.DoubleClickMS, "double-click-ms", cfg.DoubleClickMS, "double activation threshold in ms")
	if _, err := parseFlags(fs, env, args); err != nil {
		return err
	}

	if err := writeSettings(env.settings, cfg); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Config written to %s\n", env.settings)
	return nil
}

func writeSettings(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
