package cmd

import (
	"fmt"

	"github.com/bnema/greetreply/internal/application"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/spf13/cobra"
)

func newClassifyCmd(a *app) *cobra.Command {
	var (
		withReply bool
		offline   bool
	)

	cmd := &cobra.Command{
		Use:   "classify <message>...",
		Short: "Check whether messages are festive greetings",
		Long:  "Run the greeting classifier on each message and, with --reply, draft the reply that would be sent. --offline uses the keyword rule and the fallback reply only.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var generator ports.Generator
			if !offline {
				client, err := a.generator()
				if err != nil {
					return err
				}
				generator = client
			}

			settings := a.cfg.Settings
			classifier := application.NewClassifier(generator, settings.Model, settings.Keywords, a.logger.Named("classifier"))
			composer := application.NewComposer(generator, settings.Model, settings.Reply, a.logger.Named("composer"))

			out := cmd.OutOrStdout()
			for _, message := range args {
				verdict := "no"
				greeting := classifier.IsGreeting(cmd.Context(), message)
				if greeting {
					verdict = "yes"
				}
				if _, err := fmt.Fprintf(out, "%s\tgreeting: %s\n", message, verdict); err != nil {
					return err
				}

				if !withReply || !greeting {
					continue
				}
				reply := composer.Compose(cmd.Context(), message)
				if _, err := fmt.Fprintf(out, "\treply: %s\n", reply); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&withReply, "reply", false, "also draft a reply for each greeting")
	cmd.Flags().BoolVar(&offline, "offline", false, "do not call the generation service")

	return cmd
}
