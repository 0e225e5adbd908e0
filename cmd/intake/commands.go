package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumehealth/intake/internal/config"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage wellness profiles",
}

func userFlag(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a profile (no-op if it already exists)",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/v1/profile/init/"+user, nil)
		if err != nil {
			return err
		}

		var result struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Status == "exists" {
			printWarning("Profile for %s already exists", user)
			return nil
		}
		printSuccess("Created profile for %s", user)
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/profile/"+user)
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		field, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/api/v1/profile/"+user, map[string]any{field: value})
		if err != nil {
			return err
		}

		var result struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete the profile for %s. Use --confirm to proceed.", user)
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/v1/profile/"+user)
		if err != nil {
			return err
		}

		var result struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted profile for %s", user)
		return nil
	},
}

var profileCompletionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Show profile completion progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/profile/"+user+"/completion")
		if err != nil {
			return err
		}

		var result struct {
			CompletionPercentage float64  `json:"completion_percentage"`
			MissingFields        []string `json:"missing_fields"`
			CompletedFields      []string `json:"completed_fields"`
			IsComplete           bool     `json:"is_complete"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStatus("Completion", "%.2f%%", result.CompletionPercentage)
		printStatus("Completed", "%s", fieldList(result.CompletedFields))
		printStatus("Missing", "%s", fieldList(result.MissingFields))
		if result.IsComplete {
			printSuccess("Profile is complete")
		}
		return nil
	},
}

func fieldList(fields []string) string {
	if len(fields) == 0 {
		return "(none)"
	}
	return strings.Join(fields, ", ")
}

func init() {
	profileCmd.PersistentFlags().String("user", "", "user id the profile belongs to")
	profileDeleteCmd.Flags().Bool("confirm", false, "confirm profile deletion")

	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileCompletionCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Preview the next question for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/profile/"+user+"/question")
		if err != nil {
			return err
		}

		var result struct {
			Complete bool   `json:"complete"`
			Text     string `json:"text"`
			Field    string `json:"field"`
			Hint     string `json:"hint"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Complete {
			printSuccess("Profile for %s is complete — nothing left to ask", user)
			return nil
		}

		fmt.Printf("%s\n", colorize(colorBold, result.Text))
		if result.Hint != "" {
			fmt.Printf("  %s\n", result.Hint)
		}
		printStatus("Field", "%s", result.Field)
		return nil
	},
}

func init() {
	askCmd.Flags().String("user", "", "user id the profile belongs to")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show a single configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			if k.Key == args[0] {
				fmt.Println(k.Value)
				return nil
			}
		}
		return fmt.Errorf("unknown config key: %q", args[0])
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List valid configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
