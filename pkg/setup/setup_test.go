package setup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gotest.tools/assert"
)

// writeScript drops an executable shell stub into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("error writing stub tool: %v", err)
	}
	return path
}

// chdirBack restores the working directory mutated by Runner.Run.
func chdirBack(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("error getting working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("error restoring working directory: %v", err)
		}
	})
}

func testOptions(t *testing.T, listing string, buildToolBody string) Options {
	t.Helper()
	tmp := t.TempDir()
	moduleDir := filepath.Join(tmp, "module")
	if err := os.Mkdir(moduleDir, 0o755); err != nil {
		t.Fatalf("error creating module dir: %v", err)
	}
	query := writeScript(t, tmp, "rpm", "cat <<'EOF'\n"+listing+"\nEOF\n")
	build := writeScript(t, tmp, "make", buildToolBody)
	return Options{
		Package:   "kernel-headers",
		QueryTool: query,
		BuildTool: build,
		EnvName:   "KVERSION",
		Dir:       moduleDir,
	}
}

// recordingBuildTool appends each invocation's first argument to a calls
// file and snapshots the published variable, failing the clean stage.
const recordingBuildTool = `if [ "$1" = "clean" ]; then
  echo clean >> calls
  exit 1
fi
echo "$1" >> calls
printf '%s' "$KVERSION" > kversion
exit 0
`

func TestRunPublishesDiscoveredRelease(t *testing.T) {
	chdirBack(t)
	listing := strings.Join([]string{
		"/usr/include/linux/kvm.h",
		"/usr/lib/modules/6.6.1-arch1/kernel/drivers/char/mem.ko",
		"/usr/lib/modules/6.1.0-rc3/build/Makefile",
	}, "\n")
	opts := testOptions(t, listing, recordingBuildTool)

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "6.6.1-arch1", res.KernelRelease)
	assert.Equal(t, 0, res.ExitCode)

	published, err := os.ReadFile(filepath.Join(opts.Dir, "kversion"))
	assert.NilError(t, err)
	assert.Equal(t, "6.6.1-arch1", string(published))
}

func TestRunCleanFailureDoesNotBlockBuild(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", recordingBuildTool)

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, false, res.CleanOK)
	assert.Equal(t, 0, res.ExitCode)

	calls, err := os.ReadFile(filepath.Join(opts.Dir, "calls"))
	assert.NilError(t, err)
	lines := strings.Fields(string(calls))
	assert.Equal(t, 2, len(lines))
	assert.Equal(t, "clean", lines[0])
	assert.Equal(t, fmt.Sprintf("-j%d", runtime.NumCPU()), lines[1])
}

func TestRunDiscoveryMissStillBuilds(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "/usr/include/linux/kvm.h", recordingBuildTool)

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "", res.KernelRelease)
	assert.Equal(t, 0, res.ExitCode)

	published, err := os.ReadFile(filepath.Join(opts.Dir, "kversion"))
	assert.NilError(t, err)
	assert.Equal(t, "", string(published))
}

func TestRunBuildExitCodeIsPropagated(t *testing.T) {
	chdirBack(t)
	buildTool := `if [ "$1" = "clean" ]; then exit 0; fi
exit 7
`
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", buildTool)

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, true, res.CleanOK)
	assert.Equal(t, 7, res.ExitCode)
}

func TestRunMissingDirAbortsBeforeBuild(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", recordingBuildTool)
	marker := filepath.Join(opts.Dir, "calls")
	opts.Dir = filepath.Join(opts.Dir, "does-not-exist")

	_, err := NewRunner(opts).Run(context.Background())
	assert.Assert(t, err != nil)
	assert.Assert(t, strings.Contains(err.Error(), "changing into module directory"))

	_, statErr := os.Stat(marker)
	assert.Assert(t, os.IsNotExist(statErr))
}

func TestRunExplicitReleaseSkipsDiscovery(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", recordingBuildTool)
	opts.QueryTool = filepath.Join(t.TempDir(), "missing-tool")
	opts.KernelRelease = "5.15.0-91-generic"

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "5.15.0-91-generic", res.KernelRelease)

	published, err := os.ReadFile(filepath.Join(opts.Dir, "kversion"))
	assert.NilError(t, err)
	assert.Equal(t, "5.15.0-91-generic", string(published))
}

func TestRunQueryFailureYieldsEmptyRelease(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "ignored", recordingBuildTool)
	opts.QueryTool = filepath.Join(t.TempDir(), "missing-tool")

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "", res.KernelRelease)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunExplicitJobs(t *testing.T) {
	chdirBack(t)
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", recordingBuildTool)
	opts.Jobs = 3

	res, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, 3, res.Jobs)

	calls, err := os.ReadFile(filepath.Join(opts.Dir, "calls"))
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(calls), "-j3"))
}

func TestRunStreamsLongOutputLines(t *testing.T) {
	chdirBack(t)
	// A single 128KiB line, well past the default bufio.Scanner limit.
	buildTool := `if [ "$1" = "clean" ]; then exit 0; fi
head -c 131072 /dev/zero | tr '\0' 'x'
echo
echo END
exit 0
`
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", buildTool)

	var out bytes.Buffer
	r := NewRunner(opts)
	r.SetOutput(&out)
	res, err := r.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	assert.Assert(t, strings.Contains(out.String(), strings.Repeat("x", 131072)))
	assert.Assert(t, strings.Contains(out.String(), "END"))
}

func TestRunExtraEnv(t *testing.T) {
	chdirBack(t)
	buildTool := `if [ "$1" = "clean" ]; then exit 0; fi
printf '%s' "$EXTRA_FLAG" > extra
exit 0
`
	opts := testOptions(t, "/usr/lib/modules/6.6.1-arch1/build/Makefile", buildTool)
	opts.Env = map[string]string{"EXTRA_FLAG": "-DDEBUG"}

	_, err := NewRunner(opts).Run(context.Background())
	assert.NilError(t, err)

	extra, err := os.ReadFile(filepath.Join(opts.Dir, "extra"))
	assert.NilError(t, err)
	assert.Equal(t, "-DDEBUG", string(extra))
}
