package cmd

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/config"
)

var modeItems = []string{"streaming", "single-shot", "auto"}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage agent profiles",
	Long:  `Manage profiles for the agent endpoints RoriChat can talk to.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Fprintln(out, "Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Fprintf(out, "  %s%s\n", name, marker)
			printProfile(out, "    ", cfg.Profiles[name])
			fmt.Fprintln(out)
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := args[0]
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile: %s\n", profileName)
		printProfile(out, "", profile)
	},
}

func printProfile(out io.Writer, indent string, profile config.Profile) {
	endpoint := profile.Endpoint
	if endpoint == "" {
		endpoint = "Not set"
	}
	fmt.Fprintf(out, "%sEndpoint: %s\n", indent, endpoint)
	if profile.Endpoint != "" {
		fmt.Fprintf(out, "%sURL: %s\n", indent, profile.URL())
	}
	mode := profile.Mode
	if mode == "" {
		mode = config.DefaultMode
	}
	fmt.Fprintf(out, "%sMode: %s\n", indent, mode)
	if profile.Timeout > 0 {
		fmt.Fprintf(out, "%sTimeout: %s\n", indent, profile.Timeout)
	}
	if profile.Greeting != "" {
		fmt.Fprintf(out, "%sGreeting: %s\n", indent, profile.Greeting)
	}
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.Profile{})
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Add profile to config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			profileName, err = selectProfile("Select profile to edit", cfg.ProfileNames())
			if err != nil {
				log.Fatalf("Selection failed: %v", err)
			}
		}

		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		profile, err = promptProfile(profile)
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Update profile in config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

// promptProfile asks for every user-facing field, defaulting to current values.
func promptProfile(profile config.Profile) (config.Profile, error) {
	endpointPrompt := promptui.Prompt{
		Label:    "Endpoint (base URL)",
		Default:  profile.Endpoint,
		Validate: config.ValidateEndpoint,
	}
	endpoint, err := endpointPrompt.Run()
	if err != nil {
		return profile, err
	}
	profile.Endpoint = endpoint

	pathDefault := profile.Path
	if pathDefault == "" {
		pathDefault = config.DefaultPath
	}
	pathPrompt := promptui.Prompt{
		Label:   "Path",
		Default: pathDefault,
	}
	profile.Path, err = pathPrompt.Run()
	if err != nil {
		return profile, err
	}

	modeSelect := promptui.Select{
		Label:     "Response mode",
		Items:     modeItems,
		CursorPos: modeIndex(profile.Mode),
	}
	_, profile.Mode, err = modeSelect.Run()
	if err != nil {
		return profile, err
	}

	timeoutDefault := ""
	if profile.Timeout > 0 {
		timeoutDefault = profile.Timeout.String()
	}
	timeoutPrompt := promptui.Prompt{
		Label:    "Timeout (e.g. 60s, empty for default)",
		Default:  timeoutDefault,
		Validate: validateTimeout,
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		return profile, err
	}
	profile.Timeout, _ = parseTimeout(timeout)

	greetingPrompt := promptui.Prompt{
		Label:   "Greeting (optional)",
		Default: profile.Greeting,
	}
	profile.Greeting, err = greetingPrompt.Run()
	if err != nil {
		return profile, err
	}

	return profile, nil
}

func modeIndex(mode string) int {
	for i, item := range modeItems {
		if item == mode {
			return i
		}
	}
	return 0
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func validateTimeout(s string) error {
	d, err := parseTimeout(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func selectProfile(label string, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no profiles available")
	}
	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	return name, err
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			profileName, err = selectProfile("Select profile to delete", cfg.ProfileNames())
			if err != nil {
				log.Fatalf("Selection failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		// Confirm deletion
		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		removeProfile(cfg, profileName)

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

// removeProfile deletes name, moving the active profile elsewhere and
// recreating an empty default when the last profile goes.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if len(cfg.Profiles) == 0 {
		cfg.Profiles["default"] = config.Profile{}
	}
	if cfg.ActiveProfile == name {
		cfg.ActiveProfile = cfg.ProfileNames()[0]
	}
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			// Let user select from the other profiles
			var others []string
			for _, name := range cfg.ProfileNames() {
				if name != cfg.ActiveProfile {
					others = append(others, name)
				}
			}

			if len(others) == 0 {
				fmt.Println("No other profiles available to switch to")
				return
			}

			profileName, err = selectProfile("Select profile to switch to", others)
			if err != nil {
				log.Fatalf("Selection failed: %v", err)
			}
		}

		if err := activateProfile(profileName); err != nil {
			log.Fatalf("%v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
