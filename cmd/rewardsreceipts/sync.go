package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"rewardsreceipts/pkg/auth"
	"rewardsreceipts/pkg/config"
	"rewardsreceipts/pkg/logger"
	"rewardsreceipts/pkg/metrics"
	"rewardsreceipts/pkg/retry"
	"rewardsreceipts/pkg/rewards"
	"rewardsreceipts/pkg/storage"
	"rewardsreceipts/pkg/syncer"
	"rewardsreceipts/pkg/ui"
)

// errNoToken is returned when no source yields a bearer token
var errNoToken = errors.New("no token: pass --token, set REWARDSRECEIPTS_TOKEN or run 'rewardsreceipts auth login'")

// syncOptions holds the flags of a sync run
type syncOptions struct {
	token         string
	output        string
	account       string
	timeout       time.Duration
	retries       int
	rateLimit     int
	metricsFile   string
	keepStaging   bool
	notifications bool
}

// credentialSource is the part of the credential manager a run needs
type credentialSource interface {
	Retrieve(name string) (*auth.Credential, error)
	RetrieveDefault() (*auth.Credential, error)
}

// newCredentialSource opens the credential store; replaced in tests
var newCredentialSource = func() (credentialSource, error) {
	return auth.NewManager()
}

func newSyncCmd(root *rootOptions) *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download new receipts from the activity feed",
		Long: `Walk the whole activity feed and download every receipt that is not
already stored. Before the walk the staging directories (This_Month and
Last_Month by default) are removed, because the feed recomputes their
content on every run.

A failure to fetch a feed page aborts the run with a non-zero exit code.
Receipts that fail individually are reported and skipped.`,
		Example: `  rewardsreceipts sync -o ./receipts
  rewardsreceipts sync --account home --retries 3
  rewardsreceipts sync --metrics-file /var/lib/node_exporter/rewardsreceipts.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, root, opts)
		},
	}
	addSyncFlags(cmd, opts)
	return cmd
}

func addSyncFlags(cmd *cobra.Command, o *syncOptions) {
	fs := cmd.Flags()
	fs.StringVar(&o.token, "token", "", "bearer token for the rewards backend")
	fs.StringVarP(&o.output, "output", "o", "", "root output directory (default ./receipts)")
	fs.StringVarP(&o.account, "account", "a", "", "use a specific stored credential")
	fs.DurationVar(&o.timeout, "timeout", 0, "per-request timeout (default 30s)")
	fs.IntVar(&o.retries, "retries", 0, "attempts per receipt for network failures (default 1)")
	fs.IntVar(&o.rateLimit, "rate-limit", 0, "maximum requests per minute, 0 for no limit")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	fs.BoolVar(&o.keepStaging, "keep-staging", false, "do not remove the staging directories before the run")
	fs.BoolVar(&o.notifications, "notifications", false, "send a desktop notification when the run ends")
}

// overrides returns the flags set on the command line, keyed the way
// config.MergeCommandLineFlags expects
func (o *syncOptions) overrides(fs *pflag.FlagSet, root *rootOptions) map[string]interface{} {
	values := map[string]interface{}{
		"token":         o.token,
		"output":        o.output,
		"timeout":       o.timeout,
		"retries":       o.retries,
		"rate-limit":    o.rateLimit,
		"metrics-file":  o.metricsFile,
		"keep-staging":  o.keepStaging,
		"notifications": o.notifications,
		"log-level":     root.logLevel,
	}

	flags := make(map[string]interface{})
	for name, value := range values {
		if fs.Changed(name) {
			flags[name] = value
		}
	}
	return flags
}

func runSync(cmd *cobra.Command, root *rootOptions, opts *syncOptions) error {
	cfg, err := config.Load(root.configFile, opts.overrides(cmd.Flags(), root))
	if err != nil {
		return err
	}

	log, err := logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithField("version", version)

	token, source, err := resolveToken(cfg, opts.account)
	if err != nil {
		return err
	}
	log.WithField("token_source", source).Debug("Token resolved")

	ui.PrintLogo()
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return err
	}

	if !cfg.Output.KeepStaging {
		purged, err := store.PurgeStaging(cfg.Output.StagingDirectories)
		if err != nil {
			return fmt.Errorf("failed to remove staging directories: %w", err)
		}
		if len(purged) > 0 {
			log.InfoWithFields("Removed staging directories", map[string]interface{}{
				"directories": strings.Join(purged, ","),
			})
		}
	}

	client, err := rewards.NewClientFromConfig(cfg, token, log)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	syncOpts := []syncer.Option{
		syncer.WithLogger(log),
		syncer.WithMetrics(recorder),
		syncer.WithReporter(ui.NewProgressDisplay()),
	}
	if cfg.Download.RetryAttempts > 1 {
		syncOpts = append(syncOpts, syncer.WithRetrier(retry.NewPolicy(cfg.Download.RetryAttempts, cfg.Download.RetryDelay, log)))
	}

	s := syncer.New(client, store, syncOpts...)
	stats, runErr := s.Run(cmd.Context())

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).WithField("path", cfg.Metrics.Textfile).Warn("Failed to write metrics textfile")
		}
	}

	logger.LogRunSummary(log.WithField("run_id", s.RunID()), stats.Fields(), stats.Duration)
	ui.PrintSummary(stats)
	ui.NewNotifier(cfg.Notifications.Enabled).RunFinished(stats, runErr)

	return runErr
}

// resolveToken picks the bearer token: flag, environment or config file
// first, then the named or default stored credential
func resolveToken(cfg *config.Config, account string) (token, source string, err error) {
	if cfg.API.Token != "" {
		return cfg.API.Token, "config", nil
	}

	creds, err := newCredentialSource()
	if err != nil {
		return "", "", fmt.Errorf("%w (credential store unavailable: %v)", errNoToken, err)
	}

	var cred *auth.Credential
	if account != "" {
		cred, err = creds.Retrieve(account)
		if err != nil {
			return "", "", fmt.Errorf("stored credential %q: %w", account, err)
		}
	} else {
		cred, err = creds.RetrieveDefault()
		if err != nil {
			return "", "", errNoToken
		}
	}

	return cred.Token, "credential:" + cred.Name, nil
}
