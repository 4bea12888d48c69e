package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"rewardsreceipts/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configFile string
	logLevel   string
	quiet      bool
}

// newRootCmd builds the command tree. Without a subcommand the root command
// runs a sync.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	syncOpts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "rewardsreceipts",
		Short: "Download your Everyday Rewards e-receipts",
		Long: `rewardsreceipts mirrors the e-receipts of your Everyday Rewards activity
feed to a local directory, one sub-directory per activity group:

  <output>/<group id>/<receipt>.pdf
  <output>/<group id>/<receipt>.json

Receipts already present are skipped, so the tool can be run repeatedly.`,
		Example: `  # Sync with a token from the environment or the credential store
  rewardsreceipts

  # Sync into a specific directory with an explicit token
  rewardsreceipts --token "$TOKEN" -o ~/receipts`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetOutput(cmd.OutOrStdout())
			ui.SetQuiet(opts.quiet)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, syncOpts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.rewardsreceipts.yaml or ~/.config/rewardsreceipts/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors and the run summary")
	addSyncFlags(cmd, syncOpts)

	cmd.SetVersionTemplate(`rewardsreceipts {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newSyncCmd(opts),
		newAuthCmd(),
		newConfigCmd(opts),
	)
	return cmd
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		ui.SetOutput(stderr)
		ui.PrintError("Error", err)
		return 1
	}
	return 0
}
