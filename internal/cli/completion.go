package cli

import (
	"github.com/spf13/cobra"
)

// completeOutputDir completes the build output directory argument.
func completeOutputDir(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return nil, cobra.ShellCompDirectiveFilterDirs
}

// registerFormatCompletion completes the values of an enumerated flag.
func registerFormatCompletion(cmd *cobra.Command, flag string, values []string) {
	_ = cmd.RegisterFlagCompletionFunc(flag, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
}

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ui5omit.

To load completions:

Bash:
  $ source <(ui5omit completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ ui5omit completion bash > /etc/bash_completion.d/ui5omit

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ ui5omit completion zsh > "${fpath[1]}/_ui5omit"

Fish:
  $ ui5omit completion fish > ~/.config/fish/completions/ui5omit.fish

PowerShell:
  PS> ui5omit completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> ui5omit completion powershell > ui5omit.ps1
  # and source this file from your PowerShell profile.
`,
		// Completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}
