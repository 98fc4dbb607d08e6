package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

func (r *Runner) clean(ctx context.Context) error {
	cmd, err := r.command(ctx, "clean")
	if err != nil {
		return err
	}
	return r.stream(cmd)
}

// build runs the build tool's default target with the given parallelism and
// returns its exit code.
func (r *Runner) build(ctx context.Context, jobs int) (int, error) {
	cmd, err := r.command(ctx, fmt.Sprintf("-j%d", jobs))
	if err != nil {
		return 0, err
	}
	slog.Info("building module", "tool", r.opts.BuildTool, "jobs", jobs)
	if err = r.stream(cmd); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}

func (r *Runner) command(ctx context.Context, args ...string) (*exec.Cmd, error) {
	tool, err := exec.LookPath(r.opts.BuildTool)
	if err != nil {
		return nil, fmt.Errorf("build tool not found: %w", err)
	}
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Env = os.Environ()
	for key, val := range r.opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, val))
	}
	return cmd, nil
}

// stream runs cmd printing its output line by line as it arrives, with
// stderr redirected to stdout so nothing is lost. Build tools can emit very
// long lines (compilers dump whole command lines), so the scanner buffer is
// grown well past its default.
func (r *Runner) stream(cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		slog.Warn("failed to pipe stdout", "err", err.Error())
		_, err = cmd.CombinedOutput()
		return err
	}
	cmd.Stderr = cmd.Stdout
	defer stdout.Close()
	if err = cmd.Start(); err != nil {
		return err
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(r.out, scanner.Text())
	}
	if err = scanner.Err(); err != nil {
		slog.Warn("build output truncated", "err", err.Error())
	}
	return cmd.Wait()
}
