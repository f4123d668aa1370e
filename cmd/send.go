package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/core"
)

var sendProfile string

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send one message and print the agent's reply",
	Long: `Send a single message to the active profile's agent and stream the reply to
stdout. Exits with status 1 when the send fails. Ctrl+C abandons the send.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		if sendProfile != "" {
			if err := cfg.SwitchProfile(sendProfile); err != nil {
				return err
			}
		}
		if !cfg.IsValid() {
			return errors.Errorf("profile '%s' has no endpoint, run 'rorichat profile edit %s'", cfg.ActiveProfile, cfg.ActiveProfile)
		}

		service, err := core.NewChatService(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer service.Stop()

		out := cmd.OutOrStdout()
		service.SetChunkObserver(func(chunk string) {
			fmt.Fprint(out, chunk)
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		err = service.Send(ctx, strings.Join(args, " "))
		fmt.Fprintln(out)
		return err
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendProfile, "profile", "p", "", "profile to send with instead of the active one")
	rootCmd.AddCommand(sendCmd)
}
