package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/modprep/modprep/pkg/kernelheaders"
	"github.com/modprep/modprep/pkg/kernelrelease"
)

type headersEntry struct {
	Release    kernelrelease.KernelRelease `json:"release"`
	ModulesDir string                      `json:"modules_dir"`
	Running    bool                        `json:"running"`
}

type headersCmdOptions struct {
	output string
}

// NewHeadersCmd creates the `modprep headers` command.
func NewHeadersCmd(rootOpts *RootOptions, rootFlags *pflag.FlagSet) *cobra.Command {
	opts := headersCmdOptions{output: "table"}
	headersCmd := &cobra.Command{
		Use:   "headers",
		Short: "List the kernel module versions found in the installed headers package",
		RunE: func(c *cobra.Command, args []string) error {
			slog.With("package", rootOpts.Package).Info("listing installed kernel module versions")
			if configOptions.DryRun {
				slog.Info("dry run, skipping package query")
				return nil
			}
			q := kernelheaders.Query{Tool: rootOpts.QueryTool, Package: rootOpts.Package}
			listing, err := q.FileList(c.Context())
			if err != nil {
				return fmt.Errorf("querying headers package: %w", err)
			}

			running := runningRelease()
			arch := runningArch()
			var entries []headersEntry
			for _, v := range kernelheaders.ModuleVersions(listing) {
				kr := kernelrelease.FromString(v)
				kr.Architecture = arch
				entries = append(entries, headersEntry{
					Release:    kr,
					ModulesDir: kernelheaders.ModulesPrefix + v,
					Running:    v == running,
				})
			}

			if opts.output == "json" {
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			table := tablewriter.NewWriter(c.OutOrStdout())
			table.SetHeader([]string{"Version", "Modules Dir", "Running"})
			table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
			table.SetCenterSeparator("|")
			for _, e := range entries {
				mark := ""
				if e.Running {
					mark = "*"
				}
				table.Append([]string{e.Release.String(), e.ModulesDir, mark})
			}
			table.Render()
			return nil
		},
	}
	// Add root flags, but not the ones unneeded
	unusedFlagsSet := map[string]struct{}{
		"build-tool":     {},
		"dir":            {},
		"env":            {},
		"env-name":       {},
		"jobs":           {},
		"kernel-release": {},
		"store":          {},
	}
	flagSet := pflag.NewFlagSet("headers", pflag.ExitOnError)
	rootFlags.VisitAll(func(flag *pflag.Flag) {
		if _, ok := unusedFlagsSet[flag.Name]; !ok {
			flagSet.AddFlag(flag)
		}
	})
	flagSet.StringVarP(&opts.output, "output", "o", opts.output, "output format, one of table|json")
	headersCmd.Flags().AddFlagSet(flagSet)
	return headersCmd
}

func runningRelease() string {
	u := unix.Utsname{}
	if err := unix.Uname(&u); err != nil {
		slog.With("err", err.Error()).Warn("failed to retrieve the running kernel release")
		return ""
	}
	return string(bytes.Trim(u.Release[:], "\x00"))
}

func runningArch() kernelrelease.Architecture {
	u := unix.Utsname{}
	if err := unix.Uname(&u); err != nil {
		return kernelrelease.Architecture(runtime.GOARCH)
	}
	machine := string(bytes.Trim(u.Machine[:], "\x00"))
	if arch, ok := kernelrelease.SupportedArchs[machine]; ok {
		return arch
	}
	return kernelrelease.Architecture(runtime.GOARCH)
}
