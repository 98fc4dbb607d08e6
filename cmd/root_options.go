package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"

	"github.com/modprep/modprep/pkg/setup"
	"github.com/modprep/modprep/validate"
)

// RootOptions wraps the setup pipeline flags.
type RootOptions struct {
	Package       string            `default:"kernel-headers" validate:"required" name:"headers package"`
	QueryTool     string            `default:"rpm" validate:"required" name:"package query tool"`
	BuildTool     string            `default:"make" validate:"required" name:"build tool"`
	EnvName       string            `default:"KVERSION" validate:"envname" name:"environment variable name"`
	Dir           string            `default:"module" validate:"required" name:"module directory"`
	KernelRelease string            `validate:"omitempty,kernelrelease" name:"kernel release"`
	Jobs          int               `validate:"omitempty,min=1" name:"build jobs"`
	Env           map[string]string `name:"extra build environment"`
	Store         bool
}

// NewRootOptions ...
func NewRootOptions() *RootOptions {
	rootOpts := &RootOptions{}
	if err := defaults.Set(rootOpts); err != nil {
		slog.With("err", err.Error(), "options", "RootOptions").Error("error setting modprep options defaults")
		os.Exit(1)
	}
	return rootOpts
}

// AddFlags registers the pipeline flags.
func (ro *RootOptions) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&ro.Package, "package", ro.Package, "kernel headers package to query for installed module directories")
	flags.StringVar(&ro.QueryTool, "query-tool", ro.QueryTool, "package query tool listing the files owned by the headers package")
	flags.StringVar(&ro.BuildTool, "build-tool", ro.BuildTool, "build tool invoked for the clean and build stages")
	flags.StringVar(&ro.EnvName, "env-name", ro.EnvName, "environment variable under which the kernel release is published")
	flags.StringVar(&ro.Dir, "dir", ro.Dir, "module source directory to build in")
	flags.StringVar(&ro.KernelRelease, "kernel-release", ro.KernelRelease, "kernel release to build for, skips discovery")
	flags.IntVarP(&ro.Jobs, "jobs", "j", ro.Jobs, "number of parallel build jobs (default is the available processor count)")
	flags.StringToStringVar(&ro.Env, "env", ro.Env, "extra KEY=VALUE pairs for the build environment")
	flags.BoolVar(&ro.Store, "store", ro.Store, "record this run in the history database")
}

// Validate validates the RootOptions fields.
func (ro *RootOptions) Validate() []error {
	if err := validate.V.Struct(ro); err != nil {
		errs := err.(validator.ValidationErrors)
		errArr := []error{}
		for _, e := range errs {
			// Translate each error one at a time
			errArr = append(errArr, fmt.Errorf("%s", e.Translate(validate.T)))
		}
		return errArr
	}
	return nil
}

// Log emits a log line containing the receiving RootOptions for debugging purposes.
//
// Call it only after validation.
func (ro *RootOptions) Log() {
	log := slog.With("package", ro.Package, "dir", ro.Dir, "build-tool", ro.BuildTool, "env-name", ro.EnvName)
	if ro.KernelRelease != "" {
		log = log.With("kernel-release", ro.KernelRelease)
	}
	if ro.Jobs > 0 {
		log = log.With("jobs", ro.Jobs)
	}
	log.Debug("running with options")
}

// ToOptions maps the validated flags to the setup runner options.
func (ro *RootOptions) ToOptions(timeout int) setup.Options {
	return setup.Options{
		Package:       ro.Package,
		QueryTool:     ro.QueryTool,
		BuildTool:     ro.BuildTool,
		EnvName:       ro.EnvName,
		Dir:           ro.Dir,
		KernelRelease: ro.KernelRelease,
		Jobs:          ro.Jobs,
		Env:           ro.Env,
		Timeout:       timeout,
	}
}
