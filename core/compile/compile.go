// Package compile runs an external LaTeX toolchain over a rendered document
// and reports the outcome as a Result or a typed error from core/errors.
package compile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/FocuswithJustin/texforge/core/cas"
	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/core/latex"
	"github.com/FocuswithJustin/texforge/internal/logging"
)

// Defaults used by New.
const (
	DefaultExecutable = "pdflatex"
	DefaultTimeout    = 2 * time.Minute
)

// DefaultArgs keep the toolchain from waiting on the terminal and make it
// stop at the first error.
var DefaultArgs = []string{"-interaction=nonstopmode", "-halt-on-error"}

// auxExtensions are removed by Clean after a successful run.
var auxExtensions = []string{".aux", ".log", ".out"}

// validIdentifierRegex validates job names.
// Only allows alphanumeric, hyphen, underscore, and dot characters.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateIdentifier checks that a job name is safe to use as a file stem
// and a command-line argument.
func validateIdentifier(id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: %s cannot be empty", errors.ErrInvalidInput, name)
	}
	if len(id) > 64 {
		return fmt.Errorf("%w: %s too long (max 64 characters)", errors.ErrInvalidInput, name)
	}
	if !validIdentifierRegex.MatchString(id) || strings.HasPrefix(id, "-") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %s %q contains invalid characters (only alphanumeric, hyphen, underscore, dot allowed)", errors.ErrInvalidInput, name, id)
	}
	return nil
}

// Injectable functions for testing.
var (
	execLookPath   = exec.LookPath
	execCommandCtx = exec.CommandContext
	osCreate       = os.Create
	osMkdirAll     = os.MkdirAll
	osReadFile     = os.ReadFile
	osWriteFile    = os.WriteFile
	osRemove       = os.Remove
	timeNow        = time.Now
)

// Compiler invokes a LaTeX executable. The zero value is not usable; use New.
type Compiler struct {
	Executable string        // Name or path of the toolchain executable
	Args       []string      // Arguments placed before the output directory and source
	Env        []string      // Extra KEY=VALUE pairs added to the environment
	Timeout    time.Duration // Deadline for all passes together
	Passes     int           // Number of times to run the toolchain
	Clean      bool          // Remove auxiliary files after a successful run
	Cache      *BuildCache   // Optional cache of PDFs keyed by source digest
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithExecutable sets the toolchain executable, for example "xelatex".
func WithExecutable(name string) Option {
	return func(c *Compiler) {
		c.Executable = name
	}
}

// WithArgs replaces the default toolchain arguments.
func WithArgs(args ...string) Option {
	return func(c *Compiler) {
		c.Args = args
	}
}

// WithEnv adds KEY=VALUE pairs to the toolchain environment, such as
// SOURCE_DATE_EPOCH for reproducible output.
func WithEnv(env ...string) Option {
	return func(c *Compiler) {
		c.Env = append(c.Env, env...)
	}
}

// WithTimeout bounds the run. A non-positive value keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithPasses sets how many times the toolchain runs, so cross references
// and tables of contents settle. Values below 1 mean 1.
func WithPasses(n int) Option {
	return func(c *Compiler) {
		c.Passes = n
	}
}

// WithClean removes .aux, .log and .out files after a successful run.
func WithClean() Option {
	return func(c *Compiler) {
		c.Clean = true
	}
}

// WithCache reuses PDFs from bc when the rendered source is unchanged.
func WithCache(bc *BuildCache) Option {
	return func(c *Compiler) {
		c.Cache = bc
	}
}

// New returns a Compiler running pdflatex in non-interactive mode with a
// two-minute timeout and a single pass.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		Executable: DefaultExecutable,
		Args:       append([]string(nil), DefaultArgs...),
		Timeout:    DefaultTimeout,
		Passes:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes a successful compilation.
type Result struct {
	PDFPath      string        // Path of the produced PDF
	SourcePath   string        // Path of the written .tex source
	SourceDigest string        // BLAKE3 digest of the source
	ExitCode     int           // Exit status of the last pass
	Duration     time.Duration // Wall time spent in the toolchain
	Output       string        // Combined stdout/stderr of all passes
	Passes       int           // Passes actually run; 0 when served from cache
	Cached       bool          // PDF restored from the build cache
}

// Compile renders doc, writes <outputDir>/<jobName>.tex and runs the
// toolchain on it. It returns a ToolchainNotFoundError when the executable
// cannot be resolved, a TimeoutError when the deadline passes, and a
// CompileError when the toolchain fails or produces no PDF.
func (c *Compiler) Compile(ctx context.Context, doc latex.Node, outputDir, jobName string) (*Result, error) {
	if err := validateIdentifier(jobName, "job name"); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, errors.NewIO("resolve", outputDir, err)
	}
	if err := osMkdirAll(outDir, 0755); err != nil {
		return nil, errors.NewIO("create", outDir, err)
	}

	source := doc.Render()
	sourcePath := filepath.Join(outDir, jobName+".tex")
	pdfPath := filepath.Join(outDir, jobName+".pdf")
	if err := writeSource(sourcePath, source); err != nil {
		return nil, err
	}
	digest := cas.Digest([]byte(source))

	result := &Result{
		PDFPath:      pdfPath,
		SourcePath:   sourcePath,
		SourceDigest: digest,
	}

	if c.Cache != nil {
		if pdf, ok := c.Cache.Lookup(digest); ok {
			if err := osWriteFile(pdfPath, pdf, 0644); err != nil {
				return nil, errors.NewIO("write", pdfPath, err)
			}
			result.Cached = true
			logging.CompileFinished(ctx, jobName, pdfPath, 0, true, "digest", digest)
			return result, nil
		}
	}

	executable, err := execLookPath(c.Executable)
	if err != nil {
		return nil, &errors.ToolchainNotFoundError{Executable: c.Executable, Err: err}
	}

	passes := c.Passes
	if passes < 1 {
		passes = 1
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// A PDF left by an earlier run must not pass for this run's output.
	if err := osRemove(pdfPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.NewIO("remove", pdfPath, err)
	}

	logging.CompileStarted(ctx, jobName, executable, passes, "source", sourcePath)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var output bytes.Buffer
	start := timeNow()
	for pass := 1; pass <= passes; pass++ {
		logging.DebugContext(ctx, "compile pass", "job", jobName, "pass", pass)
		exitCode, runErr := c.run(runCtx, executable, outDir, jobName, &output)
		result.Duration = timeNow().Sub(start)
		result.Output = output.String()
		result.ExitCode = exitCode
		result.Passes = pass

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("compile %s: %w", sourcePath, ctxErr)
		}
		if runCtx.Err() == context.DeadlineExceeded {
			err := &errors.TimeoutError{Source: sourcePath, Timeout: timeout, Output: result.Output}
			logging.CompileFailed(ctx, jobName, err)
			return nil, err
		}
		if runErr != nil {
			err := errors.NewIO("run", executable, runErr)
			logging.CompileFailed(ctx, jobName, err)
			return nil, err
		}
		if exitCode != 0 {
			err := &errors.CompileError{
				Source:      sourcePath,
				ExitCode:    exitCode,
				Output:      result.Output,
				Diagnostics: Diagnostics(result.Output),
			}
			logging.CompileFailed(ctx, jobName, err, "pass", pass)
			return nil, err
		}
	}

	pdf, err := osReadFile(pdfPath)
	if err != nil {
		cerr := &errors.CompileError{
			Source:      sourcePath,
			Output:      result.Output,
			Diagnostics: Diagnostics(result.Output),
			Reason:      "no PDF produced",
		}
		logging.CompileFailed(ctx, jobName, cerr)
		return nil, cerr
	}

	if c.Cache != nil {
		if _, err := c.Cache.Store(digest, pdf); err != nil {
			logging.WarnContext(ctx, "build cache store failed", "job", jobName, "error", err)
		}
	}
	if c.Clean {
		removeAux(outDir, jobName)
	}

	logging.CompileFinished(ctx, jobName, pdfPath, result.Duration, false, "passes", result.Passes, "bytes", len(pdf))
	return result, nil
}

// run executes one pass and appends its output to out. A non-nil error
// means the process could not be started or waited on; a failing toolchain
// is reported through the exit code.
func (c *Compiler) run(ctx context.Context, executable, outDir, jobName string, out *bytes.Buffer) (int, error) {
	args := append(append([]string(nil), c.Args...),
		"-output-directory="+outDir,
		jobName+".tex",
	)
	cmd := execCommandCtx(ctx, executable, args...)
	cmd.Dir = outDir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = out
	cmd.Stderr = out
	// Stop waiting on inherited pipes shortly after the process is killed.
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return -1, nil
	}
	return -1, runErr
}

// writeSource writes the rendered document, closing the file on every path.
func writeSource(path, source string) (err error) {
	f, err := osCreate(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIO("close", path, cerr)
		}
	}()
	if _, err := f.WriteString(source); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

func removeAux(outDir, jobName string) {
	for _, ext := range auxExtensions {
		path := filepath.Join(outDir, jobName+ext)
		if err := osRemove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove auxiliary file", "path", path, "error", err)
		}
	}
}

// Diagnostics returns the error lines of a TeX transcript: lines starting
// with "!", each followed by the "l.<n>" context line when one appears
// before the next error.
func Diagnostics(output string) []string {
	var diags []string
	pending := -1
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		switch {
		case strings.HasPrefix(line, "!"):
			diags = append(diags, line)
			pending = len(diags) - 1
		case pending >= 0 && isLineRef(line):
			diags[pending] += " (" + line + ")"
			pending = -1
		}
	}
	return diags
}

var lineRefRegex = regexp.MustCompile(`^l\.\d+`)

func isLineRef(line string) bool {
	return lineRefRegex.MatchString(line)
}
