package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/modprep/modprep/pkg/history"
	"github.com/modprep/modprep/pkg/setup"
	"github.com/modprep/modprep/pkg/version"
	"github.com/modprep/modprep/validate"
)

var configOptions *ConfigOptions

// Sensitive is a list of sensitive environment variables whose values the
// docs generation strips away.
var Sensitive = []string{"HOME"}

var logger = pterm.DefaultLogger.WithWriter(os.Stdout).WithTime(false)

func init() {
	slog.SetDefault(slog.New(pterm.NewSlogHandler(logger)))
}

// RootCmd wraps the main cobra.Command of modprep.
type RootCmd struct {
	c *cobra.Command
}

// NewRootCmd instantiates the root command.
func NewRootCmd() *RootCmd {
	configOptions = NewConfigOptions()
	rootOpts := NewRootOptions()

	rootCmd := &cobra.Command{
		Use:   "modprep",
		Short: "Prepare and run an out-of-tree kernel module build",
		Long: `modprep discovers the installed kernel release from the kernel headers package,
publishes it as an environment variable, changes into the module source
directory and delegates to the build tool: a clean, then a parallel build.
The build's exit code becomes modprep's own.`,
		Args:                  cobra.NoArgs,
		Version:               version.String(),
		DisableFlagsInUseLine: true,
		DisableAutoGenTag:     true,
		SilenceErrors:         true,
		SilenceUsage:          false,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			configOptions.Init()
			// Merge environment variables or config file values into flags
			// not explicitly set on the command line.
			f := c.Flags()
			f.VisitAll(func(fl *pflag.Flag) {
				if !fl.Changed && viper.IsSet(fl.Name) {
					if err := f.Set(fl.Name, fmt.Sprintf("%v", viper.Get(fl.Name))); err != nil {
						slog.With("err", err.Error(), "flag", fl.Name).Warn("error setting flag")
					}
				}
			})
			// Validation runs after the merge: config file and environment
			// provided values obey the same rules as flags.
			configErr := false
			if errs := configOptions.Validate(); errs != nil {
				for _, err := range errs {
					slog.With("err", err.Error()).Error("error validating config options")
				}
				configErr = true
			}
			logger.Level = ptermLevel(validate.ProgramLevel.Level())
			if errs := rootOpts.Validate(); errs != nil {
				for _, err := range errs {
					slog.With("err", err.Error()).Error("error validating options")
				}
				configErr = true
			}
			if configErr {
				return errors.New("exiting for validation errors")
			}
			rootOpts.Log()
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			slog.With("dir", rootOpts.Dir, "package", rootOpts.Package).Info("preparing module build")
			if configOptions.DryRun {
				slog.Info("dry run, skipping module build")
				return nil
			}

			runner := setup.NewRunner(rootOpts.ToOptions(configOptions.Timeout))
			runner.SetOutput(c.OutOrStdout())
			res, err := runner.Run(c.Context())
			if err != nil {
				slog.With("err", err.Error()).Error("exiting")
				os.Exit(1)
			}

			if rootOpts.Store {
				recordRun(c, res)
			}

			if res.ExitCode != 0 {
				slog.With("exitcode", res.ExitCode).Error("build failed")
				os.Exit(res.ExitCode)
			}
			slog.With("release", res.KernelRelease, "duration", res.Duration.String()).Info("module build completed")
			return nil
		},
	}

	persistentFlags := rootCmd.PersistentFlags()
	configOptions.AddFlags(persistentFlags)
	viper.BindPFlags(persistentFlags)

	// Pipeline flags live in their own set so that sub-commands can pick
	// the ones they need.
	rootFlags := pflag.NewFlagSet("root", pflag.ExitOnError)
	rootOpts.AddFlags(rootFlags)
	rootCmd.Flags().AddFlagSet(rootFlags)
	viper.BindPFlags(rootFlags)

	rootCmd.AddCommand(NewHeadersCmd(rootOpts, rootFlags))
	rootCmd.AddCommand(NewVerifyCmd(rootOpts, rootFlags))
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewCompletionCmd())

	ret := &RootCmd{c: rootCmd}
	ret.SetOutput(os.Stdout)
	return ret
}

// Command returns the underlying cobra.Command.
func (r *RootCmd) Command() *cobra.Command {
	return r.c
}

// SetOutput sets the main command and the logger outputs.
func (r *RootCmd) SetOutput(w io.Writer) {
	r.c.SetOut(w)
	r.c.SetErr(w)
	logger = logger.WithWriter(w)
	slog.SetDefault(slog.New(pterm.NewSlogHandler(logger)))
}

// SetArgs proxies the arguments to the main command.
func (r *RootCmd) SetArgs(args []string) {
	r.c.SetArgs(args)
}

// Execute proxies the execution to the main command.
func (r *RootCmd) Execute() error {
	return r.c.Execute()
}

// Start creates the root command and runs it, exiting non-zero on error.
func Start() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		slog.With("err", err.Error()).Error("error executing modprep")
		os.Exit(1)
	}
}

// recordRun appends the run to the history database; a failure here never
// alters the pipeline outcome.
func recordRun(c *cobra.Command, res *setup.Result) {
	store, err := history.Open(configOptions.DBPath)
	if err != nil {
		slog.With("err", err.Error()).Warn("cannot open history database, run not recorded")
		return
	}
	defer store.Close()
	id, err := store.Save(c.Context(), history.Record{
		RunAt:         res.StartedAt,
		KernelRelease: res.KernelRelease,
		Dir:           res.Dir,
		BuildTool:     res.BuildTool,
		Jobs:          res.Jobs,
		CleanOK:       res.CleanOK,
		ExitCode:      res.ExitCode,
		Duration:      res.Duration,
	})
	if err != nil {
		slog.With("err", err.Error()).Warn("cannot record run in history database")
		return
	}
	slog.With("id", id, "db", store.Path()).Debug("run recorded")
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
