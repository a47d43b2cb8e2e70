package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"xloractl/internal/client"
)

// examplePrompt is used when chat/complete run without an argument.
const examplePrompt = "Do you know X-LoRA?"

func newChatCmd(a *app) *cobra.Command {
	var maxTokens int
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a chat-form completion request and print the assistant reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := examplePrompt
			if len(args) == 1 {
				prompt = args[0]
			}
			if !cmd.Flags().Changed("max-tokens") && a.cfg.ChatMaxTokens > 0 {
				maxTokens = a.cfg.ChatMaxTokens
			}
			c, err := client.New(client.Config{BaseURL: a.cfg.BaseURL, Model: a.cfg.Model})
			if err != nil {
				return err
			}
			a.log.Debug().Str("base_url", a.cfg.BaseURL).Int("max_tokens", maxTokens).Msg("sending chat request")
			reply, err := c.Chat(cmd.Context(), prompt, maxTokens)
			if err != nil {
				return printStatusOrFail(cmd, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Model response:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, reply)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxTokens, "max-tokens", client.DefaultChatMaxTokens, "Maximum number of tokens to generate")
	return cmd
}

// printStatusOrFail prints a non-2xx server response (status code,
// then the raw body) and reports success; any other error is fatal.
func printStatusOrFail(cmd *cobra.Command, err error) error {
	se, ok := client.AsStatusError(err)
	if !ok {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Request failed with status code %d\n", se.Code)
	fmt.Fprintln(out, se.Body)
	return nil
}
