package cmd

import (
	"github.com/spf13/cobra"
)

// skipConfigAnnotation marks commands that must work without a valid config.
const skipConfigAnnotation = "greetreply/skip-config"

type rootOptions struct {
	configPath string
	verbose    bool
	logFile    string
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "greetreply",
		Short:         "Auto-reply to festive greetings in the desktop chat client",
		Long:          "greetreply watches the desktop chat client for unread festive greetings, drafts a short thank-you reply with a local Ollama model, and sends it after a cancellable pause.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(*opts, cmd.Annotations[skipConfigAnnotation] == "true")
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.greetreply/config.toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newClassifyCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}
