package cmd

import (
	"log"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/config"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Make a profile active and open the chat",
	Long: `Make the named profile the active one, save that choice, and open the chat
against its endpoint.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := config.LoadConfig()
		if err != nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return cfg.ProfileNames(), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := activateProfile(args[0]); err != nil {
			log.Fatalf("%v", err)
		}
		if err := runChat(cmd.Context()); err != nil {
			log.Fatalf("Application error: %v", err)
		}
	},
}

// activateProfile persists name as the active profile.
func activateProfile(name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.SwitchProfile(name); err != nil {
		return err
	}
	return errors.Wrap(cfg.Save(), "failed to save config")
}

func init() {
	rootCmd.AddCommand(useCmd)
}
