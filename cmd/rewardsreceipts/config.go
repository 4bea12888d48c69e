package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rewardsreceipts/pkg/auth"
	"rewardsreceipts/pkg/config"
	"rewardsreceipts/pkg/ui"
)

const defaultConfigFile = ".rewardsreceipts.yaml"

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, inspect and validate the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Example: `  rewardsreceipts config init
  rewardsreceipts config init -c ~/.config/rewardsreceipts/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(root, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with the token masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, root)
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load every configuration source and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, root)
		},
	}

	cmd.AddCommand(initCmd, show, validate)
	return cmd
}

func runConfigInit(root *rootOptions, force bool) error {
	path := root.configFile
	if path == "" {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	ui.PrintSuccess("Config written: " + path)
	return nil
}

// loadForDisplay loads the configuration honoring the persistent flags
func loadForDisplay(cmd *cobra.Command, root *rootOptions) (*config.Config, error) {
	flags := map[string]interface{}{}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = root.logLevel
	}
	return config.Load(root.configFile, flags)
}

func runConfigShow(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := loadForDisplay(cmd, root)
	if err != nil {
		return err
	}

	if cfg.API.Token != "" {
		cfg.API.Token = auth.SanitizeCredential(&auth.Credential{Token: cfg.API.Token}).Token
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := loadForDisplay(cmd, root)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)
	ui.PrintInfo("Feed endpoint", cfg.API.GraphQLURL)
	if cfg.API.Token == "" {
		ui.PrintWarning("No token configured; a stored credential will be used")
	}
	return nil
}
