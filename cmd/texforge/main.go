// Command texforge renders document outlines to LaTeX and compiles them to
// PDF with an external TeX toolchain.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/FocuswithJustin/texforge/core/compile"
	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/core/latex"
	"github.com/FocuswithJustin/texforge/core/sqlite"
	"github.com/FocuswithJustin/texforge/internal/archive"
	"github.com/FocuswithJustin/texforge/internal/history"
	"github.com/FocuswithJustin/texforge/internal/logging"
	"github.com/FocuswithJustin/texforge/internal/outline"
	"github.com/FocuswithJustin/texforge/internal/validation"
)

const version = "0.1.0"

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for texforge.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" env:"TEXFORGE_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" enum:"text,json"`

	Render  RenderCmd  `cmd:"" help:"Render an outline to LaTeX source"`
	Compile CompileCmd `cmd:"" help:"Render an outline and compile it to PDF"`
	Bundle  BundleCmd  `cmd:"" help:"Archive an output directory as .tar.xz or .tar.gz"`
	Verify  VerifyCmd  `cmd:"" help:"Check a bundle against its manifest"`
	History HistoryCmd `cmd:"" help:"List recorded compile runs"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// RenderCmd renders an outline to LaTeX.
type RenderCmd struct {
	Outline string `arg:"" help:"Outline file (.yaml, .yml or .xml)" type:"existingfile"`
	Out     string `short:"o" help:"Write the LaTeX source to this file instead of stdout" type:"path"`
	Diff    string `help:"Print a line diff against an existing .tex file instead of writing" type:"existingfile"`
}

func (c *RenderCmd) Run() error {
	doc, err := loadOutline(c.Outline)
	if err != nil {
		return err
	}
	source := doc.Render()

	if c.Diff != "" {
		existing, err := os.ReadFile(c.Diff)
		if err != nil {
			return errors.NewIO("read", c.Diff, err)
		}
		diff := lineDiff(c.Diff, c.Outline, string(existing), source)
		if diff == "" {
			fmt.Fprintf(stdout, "%s no differences\n", label(stdout, color.FgGreen, "same"))
			return nil
		}
		_, err = io.WriteString(stdout, diff)
		return err
	}

	if c.Out != "" {
		if err := validation.ValidatePath(c.Out); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		if err := os.WriteFile(c.Out, []byte(source), 0644); err != nil {
			return errors.NewIO("write", c.Out, err)
		}
		fmt.Fprintf(stdout, "%s %s\n", label(stdout, color.FgGreen, "wrote"), c.Out)
		return nil
	}

	_, err = doc.WriteTo(stdout)
	return err
}

// CompileCmd renders an outline and runs the TeX toolchain on it.
type CompileCmd struct {
	Outline string        `arg:"" help:"Outline file (.yaml, .yml or .xml)" type:"existingfile"`
	Out     string        `required:"" help:"Output directory for the .tex, .pdf and auxiliary files" type:"path"`
	Job     string        `help:"Job name; defaults to the outline file name"`
	Timeout time.Duration `help:"Deadline for all passes" default:"2m" env:"TEXFORGE_TIMEOUT"`
	Tex     string        `help:"TeX executable" default:"pdflatex" env:"TEXFORGE_TEX"`
	Passes  int           `help:"Number of toolchain passes" default:"1"`
	Clean   bool          `help:"Remove .aux, .log and .out files after a successful run"`
	Cache   string        `help:"Build cache directory; unchanged sources reuse their PDF" env:"TEXFORGE_CACHE" type:"path"`
	History string        `help:"SQLite history database to record the run in" env:"TEXFORGE_HISTORY" type:"path"`
	Bundle  string        `help:"Also archive the output directory to this .tar.xz or .tar.gz file" type:"path"`
}

func (c *CompileCmd) Run(ctx context.Context) error {
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	doc, err := loadOutline(c.Outline)
	if err != nil {
		return err
	}

	job := c.Job
	if job == "" {
		job = validation.SanitizeJobName(c.Outline)
	}

	opts := []compile.Option{
		compile.WithExecutable(c.Tex),
		compile.WithTimeout(c.Timeout),
		compile.WithPasses(c.Passes),
	}
	if c.Clean {
		opts = append(opts, compile.WithClean())
	}
	var bc *compile.BuildCache
	if c.Cache != "" {
		bc, err = compile.OpenBuildCache(c.Cache)
		if err != nil {
			return err
		}
		opts = append(opts, compile.WithCache(bc))
	}

	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	started := time.Now()
	res, compileErr := compile.New(opts...).Compile(ctx, doc, c.Out, job)
	if bc != nil {
		s := bc.Stats()
		logging.DebugContext(ctx, "build cache", "dir", c.Cache, "hits", s.Hits, "misses", s.Misses, "hit_rate", s.HitRate())
	}

	if c.History != "" {
		recordRun(ctx, c.History, history.RunFromOutcome(job, c.Tex, started, res, compileErr), runID)
	}

	if compileErr != nil {
		reportFailure(compileErr)
		return compileErr
	}

	note := ""
	if res.Cached {
		note = " (cached)"
	}
	fmt.Fprintf(stdout, "%s %s -> %s%s\n", label(stdout, color.FgGreen, "ok"), job, res.PDFPath, note)

	if c.Bundle != "" {
		m, err := archive.CreateBundle(c.Out, c.Bundle, archive.BundleOptions{Job: job})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s (%d files)\n", label(stdout, color.FgGreen, "bundled"), c.Bundle, len(m.Files))
	}
	return nil
}

// recordRun stores the outcome in the history database. A ledger failure
// is logged and never fails the compile.
func recordRun(ctx context.Context, dbPath string, run history.Run, runID string) {
	ledger, err := history.Open(dbPath)
	if err != nil {
		logging.WarnContext(ctx, "history unavailable", "db", dbPath, "error", err)
		return
	}
	defer ledger.Close()

	run.ID = runID
	if _, err := ledger.Record(ctx, run); err != nil {
		logging.WarnContext(ctx, "history not recorded", "db", dbPath, "error", err)
	}
}

// reportFailure prints the toolchain diagnostics of a failed compile.
func reportFailure(err error) {
	var cerr *errors.CompileError
	if !errors.As(err, &cerr) {
		return
	}
	for _, d := range cerr.Diagnostics {
		fmt.Fprintf(stdout, "%s %s\n", label(stdout, color.FgRed, "error"), d)
	}
}

// BundleCmd archives a directory.
type BundleCmd struct {
	Dir string `arg:"" help:"Directory to archive" type:"existingdir"`
	Out string `required:"" help:"Bundle path (.tar.xz or .tar.gz)" type:"path"`
	Job string `help:"Job name recorded in the manifest"`
}

func (c *BundleCmd) Run() error {
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	m, err := archive.CreateBundle(c.Dir, c.Out, archive.BundleOptions{Job: c.Job})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s (%d files)\n", label(stdout, color.FgGreen, "bundled"), c.Out, len(m.Files))
	return nil
}

// VerifyCmd checks every file of a bundle against its manifest.
type VerifyCmd struct {
	Bundle string `arg:"" help:"Bundle path (.tar.xz or .tar.gz)" type:"existingfile"`
}

func (c *VerifyCmd) Run() error {
	f, err := os.Open(c.Bundle)
	if err != nil {
		return errors.NewIO("open", c.Bundle, err)
	}
	_, err = validation.ValidateFileType(f, c.Bundle)
	f.Close()
	if err != nil {
		return err
	}

	m, err := archive.Verify(c.Bundle)
	if err != nil {
		fmt.Fprintf(stdout, "%s %s\n", label(stdout, color.FgRed, "corrupt"), c.Bundle)
		return err
	}
	fmt.Fprintf(stdout, "%s %s (%d files)\n", label(stdout, color.FgGreen, "verified"), c.Bundle, len(m.Files))
	return nil
}

// HistoryCmd lists recorded runs, newest first.
type HistoryCmd struct {
	DB    string `name:"db" required:"" help:"SQLite history database" env:"TEXFORGE_HISTORY" type:"path"`
	Limit int    `help:"Maximum number of runs to show" default:"20"`
}

func (c *HistoryCmd) Run(ctx context.Context) error {
	ledger, err := history.OpenReadOnly(c.DB)
	if errors.Is(err, errors.ErrNotFound) {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.List(ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}

	fmt.Fprintf(stdout, "%-8s  %-19s  %s  %-7s  %9s  %s\n", "ID", "STARTED", runewidth.FillRight("JOB", jobColumnWidth), "STATUS", "DURATION", "CACHED")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		job := runewidth.FillRight(runewidth.Truncate(r.Job, jobColumnWidth, "..."), jobColumnWidth)
		status := runewidth.FillRight(string(r.Status), 7)
		status = label(stdout, statusColor(r.Status), status)
		cached := ""
		if r.Cached {
			cached = "yes"
		}
		fmt.Fprintf(stdout, "%-8s  %-19s  %s  %s  %9s  %s\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04:05"), job, status,
			r.Duration.Round(time.Millisecond), cached)
	}
	return nil
}

const jobColumnWidth = 24

func statusColor(s history.Status) color.Attribute {
	switch s {
	case history.StatusSuccess:
		return color.FgGreen
	case history.StatusTimeout:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "texforge version %s (sqlite: %s, %s)\n", version, info.Package, info.DriverType)
	return nil
}

// Helper functions

// loadOutline checks the outline path and content type, then builds the
// document.
func loadOutline(path string) (*latex.Document, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid outline path: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	_, err = validation.ValidateFileType(f, path)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return outline.Load(path)
}

// label renders a status word, colored only when w is a terminal.
func label(w io.Writer, attr color.Attribute, text string) string {
	if !isTerminal(w) {
		return text
	}
	c := color.New(attr, color.Bold)
	c.EnableColor()
	return c.Sprint(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// lineDiff returns a line-oriented diff of from and to with "-", "+" and
// " " prefixes, or "" when they are equal.
func lineDiff(fromName, toName, from, to string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changed := false
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			changed = true
			break
		}
	}
	if !changed {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", fromName, toName)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func setupLogging(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	fmtr, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(lvl, fmtr)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("texforge"),
		kong.Description("Build LaTeX documents from outlines and compile them to PDF"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	kctx.FatalIfErrorf(setupLogging(CLI.LogLevel, CLI.LogFormat))
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
