package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"xloractl/internal/client"
)

func newCompleteCmd(a *app) *cobra.Command {
	var maxTokens int
	cmd := &cobra.Command{
		Use:   "complete [prompt]",
		Short: "Send a text-form completion request and print the generated text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := examplePrompt
			if len(args) == 1 {
				prompt = args[0]
			}
			if !cmd.Flags().Changed("max-tokens") && a.cfg.CompleteMaxTokens > 0 {
				maxTokens = a.cfg.CompleteMaxTokens
			}
			c, err := client.New(client.Config{BaseURL: a.cfg.BaseURL, Model: a.cfg.Model})
			if err != nil {
				return err
			}
			a.log.Debug().Str("base_url", a.cfg.BaseURL).Int("max_tokens", maxTokens).Msg("sending completion request")
			text, err := c.Complete(cmd.Context(), prompt, maxTokens)
			if err != nil {
				return printStatusOrFail(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxTokens, "max-tokens", client.DefaultCompleteMaxTokens, "Maximum number of tokens to generate")
	return cmd
}
