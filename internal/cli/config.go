package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kmullins/devserve/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with devserve manifests",
	}
	cmd.AddCommand(newConfigLintCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate a devserve manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath(cmd)
			if _, err := config.Load(path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return nil
		},
	}
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(manifestPath(cmd))
			if err != nil {
				return err
			}
			rendered, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# workdir: %s\n%s", cfg.Server.ResolvedWorkdir, rendered)
			return nil
		},
	}
	return cmd
}

func manifestPath(cmd *cobra.Command) string {
	path := "devserve.yaml"
	if flag := cmd.Flag("file"); flag != nil {
		if value := flag.Value.String(); value != "" {
			path = value
		}
	} else if inherited := cmd.InheritedFlags().Lookup("file"); inherited != nil {
		if value := inherited.Value.String(); value != "" {
			path = value
		}
	}
	return path
}
