// Package cmd implements the fixpilot command-line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixpilot/fixpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "fixpilot",
	Short: "Multi-agent test automation pipeline",
	Long: `Fixpilot watches a project's source tree, runs its test suite on
every change, and asks an AI model to analyze failures. Suggested fixes
wait behind a human approval gate; nothing is ever applied automatically.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/fixpilot/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/fixpilot")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FIXPILOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FIXPILOT_TEST_TIMEOUT_SECONDS for test.timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
