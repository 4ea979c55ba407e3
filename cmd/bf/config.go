package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neromous/Beaver/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect provider configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd)
	},
}

func showConfig(cmd *cobra.Command) error {
	out, err := cfg.MaskedYAML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

var configProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured provider/model pairs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		refs := cfg.ListAll()
		if len(refs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no providers configured")
			return nil
		}
		for _, ref := range refs {
			marker := " "
			if ref == cfg.Default {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, ref.FullName())
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [provider [model]]",
	Short: "Check provider entries for missing fields",
	Long: `Check provider entries for missing fields. With no arguments the
default pair is checked; with one argument either "provider/model" or
every model of the named provider; with two, that exact pair.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var targets []config.ProviderRef
		switch len(args) {
		case 0:
			ref, err := cfg.DefaultProvider()
			if err != nil {
				return err
			}
			targets = append(targets, ref)
		case 1:
			if provider, model, ok := strings.Cut(args[0], "/"); ok {
				targets = append(targets, config.ProviderRef{Provider: provider, Model: model})
			} else {
				models, err := cfg.ListModels(args[0])
				if err != nil {
					return err
				}
				for _, m := range models {
					targets = append(targets, config.ProviderRef{Provider: args[0], Model: m})
				}
			}
		default:
			targets = append(targets, config.ProviderRef{Provider: args[0], Model: args[1]})
		}

		w := cmd.OutOrStdout()
		for _, ref := range targets {
			if _, err := cfg.Provider(ref.Provider, ref.Model); err != nil {
				return err
			}
			res := cfg.Validate(ref.Provider, ref.Model)
			for _, warn := range res.Warnings {
				fmt.Fprintf(w, "%s: warning: %s\n", ref.FullName(), warn)
			}
			if !res.Valid {
				return fmt.Errorf("%s is invalid: missing %s",
					ref.FullName(), strings.Join(res.Missing, ", "))
			}
			fmt.Fprintf(w, "%s: valid\n", ref.FullName())
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configProvidersCmd, configValidateCmd)
}
