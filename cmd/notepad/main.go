package main

import (
	"io"
	"os"

	"github.com/MarcoPoloResearchLab/notepad/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	configViper := viper.New()
	config.ApplyClientDefaults(configViper)
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:          "notepad",
		Short:        "Keep notes in sync with a Notepad backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(configViper, cfgFile)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("backend-url", configViper.GetString("backend.url"), "Backend base URL (env NOTEPAD_BACKEND_URL)")
	rootCmd.PersistentFlags().Int("timeout-seconds", configViper.GetInt("client.timeout_seconds"), "Request timeout in seconds (0 waits indefinitely)")
	rootCmd.PersistentFlags().String("log-level", configViper.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(rootCmd, configViper, "backend.url", "backend-url")
	bindFlag(rootCmd, configViper, "client.timeout_seconds", "timeout-seconds")
	bindFlag(rootCmd, configViper, "log.level", "log-level")

	newSession := func(cmd *cobra.Command) (*session, error) {
		clientConfig, err := config.LoadClient(configViper)
		if err != nil {
			return nil, err
		}
		return openSession(clientConfig, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(
		newListCommand(newSession),
		newAddCommand(newSession),
		newEditCommand(newSession),
		newDeleteCommand(newSession),
		newCompletionCommand(newSession, "complete", "Mark a note as done", true),
		newCompletionCommand(newSession, "reopen", "Mark a note as pending again", false),
	)

	return rootCmd
}

func bindFlag(cmd *cobra.Command, configViper *viper.Viper, key, flag string) {
	if err := configViper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func readConfigFile(configViper *viper.Viper, cfgFile string) error {
	if cfgFile == "" {
		return nil
	}
	configViper.SetConfigFile(cfgFile)
	return configViper.ReadInConfig()
}
