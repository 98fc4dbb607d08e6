package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/modprep/modprep/pkg/kernelheaders"
	"github.com/modprep/modprep/pkg/kernelrelease"
	"github.com/modprep/modprep/pkg/modinfo"
)

// NewVerifyCmd creates the `modprep verify` command.
func NewVerifyCmd(rootOpts *RootOptions, rootFlags *pflag.FlagSet) *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify <module.ko>",
		Short: "Verify that a built kernel module matches the installed kernel headers",
		Long: `Reads the .modinfo ELF section of a built kernel module and checks its
vermagic kernel release against the one discovered from the headers package
(or the one given with --kernel-release).`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			slog.With("module", args[0]).Info("verifying kernel module")
			if configOptions.DryRun {
				slog.Info("dry run, skipping verification")
				return nil
			}

			expected := rootOpts.KernelRelease
			if expected == "" {
				q := kernelheaders.Query{Tool: rootOpts.QueryTool, Package: rootOpts.Package}
				listing, err := q.FileList(c.Context())
				if err != nil {
					return fmt.Errorf("querying headers package: %w", err)
				}
				expected = kernelheaders.ModuleVersion(listing)
			}
			if expected == "" {
				return errors.New("cannot determine the expected kernel release, pass --kernel-release")
			}

			info, err := modinfo.FromModulePath(args[0])
			if err != nil {
				return err
			}

			got := kernelrelease.FromString(info.KernelRelease)
			want := kernelrelease.FromString(expected)
			if got.String() != want.String() {
				return fmt.Errorf("vermagic mismatch: module built for %q, headers provide %q", info.KernelRelease, expected)
			}
			slog.With("module", args[0], "release", info.KernelRelease, "name", info.Name).Info("kernel module matches the installed headers")
			return nil
		},
	}
	// Add root flags, but not the ones unneeded
	unusedFlagsSet := map[string]struct{}{
		"build-tool": {},
		"dir":        {},
		"env":        {},
		"env-name":   {},
		"jobs":       {},
		"store":      {},
	}
	flagSet := pflag.NewFlagSet("verify", pflag.ExitOnError)
	rootFlags.VisitAll(func(flag *pflag.Flag) {
		if _, ok := unusedFlagsSet[flag.Name]; !ok {
			flagSet.AddFlag(flag)
		}
	})
	verifyCmd.Flags().AddFlagSet(flagSet)
	return verifyCmd
}
