package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/marketclient/pkg/apiclient"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "marketctl",
		Short:        "Marketplace API client with transparent access-token refresh",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("base_url", apiclient.DefaultBaseURL, "Marketplace API base URL")
	rootCmd.PersistentFlags().String("token_store", "", "Token store locator (file path, memory://, sqlite://, postgres://, redis://); defaults to a file in the user config directory")
	rootCmd.PersistentFlags().String("log_level", "warn", "Log level: debug, info, warn, error")

	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base_url"))
	_ = viper.BindPFlag("token_store", rootCmd.PersistentFlags().Lookup("token_store"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newLoginCommand(),
		newLogoutCommand(),
		newStatusCommand(),
		newRequestCommand(),
		newProductsCommand(),
		newCartCommand(),
		newOrdersCommand(),
		newAdminCommand(),
		newServeMockCommand(),
	)
	return rootCmd
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	parsedLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(parsedLevel)
	return configuration.Build()
}

func printJSON(writer io.Writer, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writer, string(encoded))
	return err
}
