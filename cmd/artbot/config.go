package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"artbot/pkg/config"
	"artbot/pkg/ui"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage artbot configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env file
  - Configuration file (YAML or TOML)
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write every option with its default value to a configuration file.

The file is created as '.artbot.yaml' in the current directory unless a
different path is given with --config. A path ending in .toml is written
as TOML. Credentials are left empty; use 'artbot auth login' or the
environment for those.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging all sources. Credentials are masked.`,
	RunE:  runConfigShow,
}

// pathCmd represents the config path command
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "List the configuration file search paths",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(pathCmd)

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".artbot.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return &configError{fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)}
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).Success("Configuration written to " + configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Sanitized())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if configFile != "" {
		fmt.Fprintln(out, configFile)
		return nil
	}

	for _, path := range config.SearchPaths() {
		marker := " "
		if _, err := os.Stat(path); err == nil {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, path)
	}
	return nil
}
