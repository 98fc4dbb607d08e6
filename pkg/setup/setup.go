package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/modprep/modprep/pkg/kernelheaders"
)

// Options configures a Runner.
//
// Fields are defaulted and validated upstream by the command layer.
type Options struct {
	// Package is the kernel headers package whose file listing is scanned
	// for installed module directories.
	Package string
	// QueryTool lists the files owned by Package, one path per line.
	QueryTool string
	// BuildTool is invoked for the clean and build stages.
	BuildTool string
	// EnvName is the environment variable under which the discovered
	// kernel release is published.
	EnvName string
	// Dir is the module source directory the process changes into before
	// invoking the build tool.
	Dir string
	// KernelRelease skips discovery when set.
	KernelRelease string
	// Jobs is the parallel job count for the build stage; when zero the
	// available processor count is detected at run time.
	Jobs int
	// Env holds extra KEY=VALUE pairs appended to the build environment.
	Env map[string]string
	// Timeout bounds the whole run, in seconds; zero means no timeout.
	Timeout int
}

// Result describes a completed run.
//
// A Result is produced whenever the build stage was reached, including when
// the build itself failed.
type Result struct {
	KernelRelease string
	Dir           string
	BuildTool     string
	Jobs          int
	CleanOK       bool
	ExitCode      int
	StartedAt     time.Time
	Duration      time.Duration
}

// Runner prepares and runs a kernel module build: it discovers the
// installed kernel release from the headers package, publishes it to the
// process environment, changes into the module directory and delegates to
// the build tool (clean, then parallel build).
type Runner struct {
	opts Options
	out  io.Writer
}

func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts, out: os.Stdout}
}

// SetOutput redirects the build tool output.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

func (r *Runner) String() string {
	return "setup"
}

// Run executes the four stages in order.
//
// It returns an error only when a stage before the build fails; a failing
// build yields a Result with a non-zero ExitCode and a nil error, and a
// failing clean never blocks the build.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.opts.Timeout)*time.Second)
		defer cancel()
	}

	res := &Result{
		Dir:       r.opts.Dir,
		BuildTool: r.opts.BuildTool,
		StartedAt: time.Now(),
	}

	release := r.opts.KernelRelease
	if release == "" {
		release = r.discover(ctx)
	}
	res.KernelRelease = release

	if err := os.Setenv(r.opts.EnvName, release); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", r.opts.EnvName, err)
	}
	slog.Debug("published kernel release", "var", r.opts.EnvName, "release", release)

	if err := os.Chdir(r.opts.Dir); err != nil {
		return nil, fmt.Errorf("changing into module directory: %w", err)
	}

	res.CleanOK = true
	if err := r.clean(ctx); err != nil {
		// A failed clean never blocks the build.
		slog.Warn("clean failed, continuing", "err", err.Error())
		res.CleanOK = false
	}

	jobs := r.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	res.Jobs = jobs

	code, err := r.build(ctx, jobs)
	if err != nil {
		return nil, err
	}
	res.ExitCode = code
	res.Duration = time.Since(res.StartedAt)
	return res, nil
}

// discover queries the headers package file listing and extracts the first
// module version token. A miss is not an error: the empty release is
// published and the pipeline proceeds.
func (r *Runner) discover(ctx context.Context) string {
	q := kernelheaders.Query{Tool: r.opts.QueryTool, Package: r.opts.Package}
	listing, err := q.FileList(ctx)
	if err != nil {
		slog.Warn("headers package query failed", "tool", r.opts.QueryTool, "package", r.opts.Package, "err", err.Error())
		return ""
	}
	release := kernelheaders.ModuleVersion(listing)
	if release == "" {
		slog.Warn("no module directory found in headers package, publishing empty release", "package", r.opts.Package)
	}
	return release
}
