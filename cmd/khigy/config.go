package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/khigy/internal/config"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and write the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := loadConfig(g, cmd.Flags()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
				return nil
			},
		},
		configPrintCmd(g),
		&cobra.Command{
			Use:   "explain <yaml.path>",
			Short: "Show a config value and where it came from",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := loadConfig(g, cmd.Flags())
				if err != nil {
					return err
				}
				value, src, err := config.Explain(res, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %v\n", args[0], value)
				switch src.Kind {
				case config.SourceFile:
					fmt.Fprintf(out, "source: %s:%d:%d\n", src.File, src.Line, src.Column)
				case config.SourceFlag:
					fmt.Fprintf(out, "source: flag %s\n", src.Name)
				default:
					fmt.Fprintln(out, "source: default")
				}
				return nil
			},
		},
		configInitCmd(g),
	)
	return cmd
}

func configPrintCmd(g *globalFlags) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if !defaults {
				res, err := loadConfig(g, cmd.Flags())
				if err != nil {
					return err
				}
				cfg = res.Config
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults (no files)")
	return cmd
}

func configInitCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := g.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			if res, err := config.LoadFromPath(path); err == nil && res.File != "" && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
