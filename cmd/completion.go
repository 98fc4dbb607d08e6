package cmd

import (
	"github.com/spf13/cobra"
)

const completionLong = `Generates completion scripts for bash, zsh, and fish.

Load the completions for the current bash session with:

    source <(modprep completion bash)

To load them for every session, install the script once:

    # bash (system-wide)
    modprep completion bash > /etc/bash_completion.d/modprep

    # zsh
    modprep completion zsh > "${fpath[1]}/_modprep"

    # fish
    modprep completion fish > ~/.config/fish/completions/modprep.fish
`

// NewCompletionCmd creates the `completion` command.
func NewCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion (bash|zsh|fish|help)",
		Short:                 "Generates completion scripts.",
		Long:                  completionLong,
		ValidArgs:             []string{"bash", "zsh", "fish", "help"},
		Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		DisableAutoGenTag:     true,
		DisableFlagsInUseLine: true,
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.Help()
			}
			switch args[0] {
			case "bash":
				return c.Root().GenBashCompletion(c.OutOrStdout())
			case "zsh":
				return c.Root().GenZshCompletion(c.OutOrStdout())
			case "fish":
				return c.Root().GenFishCompletion(c.OutOrStdout(), true)
			}
			return c.Help()
		},
	}
}
