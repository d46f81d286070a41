package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/waterfall/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage backtest configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  waterfall config init --output waterfall.yaml
  waterfall config validate --file waterfall.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "waterfall.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := mkdirFor(configInitOutput); err != nil {
		return err
	}
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  waterfall backtest --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: %.2f %s\n", cfg.Account.Capital, cfg.Account.Currency)
	fmt.Fprintf(out, "  Market: %s %s %s/%s, %g days\n", cfg.Market.Exchange, cfg.Market.Symbol,
		cfg.Market.MicroTimeframe, cfg.Market.MacroTimeframe, cfg.Market.Days)
	fmt.Fprintf(out, "  Strategy: fee %.4f%%, warmup %d bars\n", cfg.Strategy.FeeRate*100, cfg.Strategy.WarmupBars)
	journalType := cfg.Journal.Type
	if journalType == "" {
		journalType = "none"
	}
	fmt.Fprintf(out, "  Journal: %s\n", journalType)
	return nil
}
