package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"xloractl/internal/common/fsutil"
	"xloractl/internal/keylist"
)

// defaultKeyPrefix selects the classifier layers of an X-LoRA
// adapter checkpoint.
const defaultKeyPrefix = "inner."

func newKeysCmd(a *app) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "keys [checkpoint.safetensors]",
		Short: "List tensor keys in a safetensors checkpoint matching a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.CheckpointPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("checkpoint path required (argument or checkpoint_path in config)")
			}
			if !cmd.Flags().Changed("prefix") && a.cfg.KeyPrefix != "" {
				prefix = a.cfg.KeyPrefix
			}
			expanded, err := fsutil.ExpandHome(path)
			if err != nil {
				return err
			}
			if !fsutil.PathExists(expanded) {
				return fmt.Errorf("checkpoint not found: %s", expanded)
			}
			a.log.Debug().Str("path", expanded).Str("prefix", prefix).Msg("listing tensor keys")
			keys, err := keylist.List(expanded, prefix)
			if err != nil {
				return err
			}
			keylist.Render(cmd.OutOrStdout(), keys, prefix)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", defaultKeyPrefix, "Key name prefix to filter on")
	return cmd
}
