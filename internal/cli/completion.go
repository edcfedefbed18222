package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand prints a shell completion script. Method and solver
// names complete from the root command's flag completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion bash|zsh|fish|powershell",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for fastroot on stdout.

Completion covers subcommands, flags, and the values of --method,
--solver and render's --format.`,
		Example: `  source <(fastroot completion bash)
  fastroot completion zsh > "${fpath[1]}/_fastroot"
  fastroot completion fish > ~/.config/fish/completions/fastroot.fish
  fastroot completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}
