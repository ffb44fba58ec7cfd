package client

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save client configuration",
		Long: `Saves the API URL and tenant identifiers to the global config file.

Examples:
  helicon init --api-url http://localhost:8080 --workspace 3f2c9d1e-8a4b-4c6d-9e0f-1a2b3c4d5e6f
  helicon init --workspace 3f2c9d1e-8a4b-4c6d-9e0f-1a2b3c4d5e6f --space 7b8a6c5d-4e3f-4a2b-8c1d-0e9f8a7b6c5d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(cmd, outputJSON)
		},
	}

	return cmd
}

func runInit(cmd *cobra.Command, outputJSON bool) error {
	apiURL, _ := cmd.Flags().GetString("api-url")
	workspaceID, _ := cmd.Flags().GetString("workspace")
	spaceID, _ := cmd.Flags().GetString("space")

	if workspaceID != "" {
		if _, err := uuid.Parse(workspaceID); err != nil {
			return fmt.Errorf("invalid workspace ID: %s", workspaceID)
		}
	}
	if spaceID != "" {
		if _, err := uuid.Parse(spaceID); err != nil {
			return fmt.Errorf("invalid space ID: %s", spaceID)
		}
	}

	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	config := &GlobalConfig{
		APIURL:      apiURL,
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
	}
	if err := SaveGlobalConfig(config); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if outputJSON {
		result := map[string]interface{}{
			"success":      true,
			"config":       configPath,
			"api_url":      apiURL,
			"workspace_id": workspaceID,
			"space_id":     spaceID,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Saved config to %s\n", configPath)
		fmt.Printf("API URL: %s\n", apiURL)
		if workspaceID != "" {
			fmt.Printf("Workspace: %s\n", workspaceID)
		}
		if spaceID != "" {
			fmt.Printf("Space: %s\n", spaceID)
		}
	}

	return nil
}
