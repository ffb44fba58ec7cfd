package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Source represents a knowledge source returned by the API.
type Source struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Origin       string `json:"origin,omitempty"`
	Scope        string `json:"scope"`
	WorkspaceID  string `json:"workspace_id,omitempty"`
	SpaceID      string `json:"space_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// SourceList represents the source list API response.
type SourceList struct {
	Items []Source `json:"items"`
}

// Chunk represents a stored chunk of a knowledge source.
type Chunk struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
	Heading    string `json:"heading,omitempty"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	CreatedAt  string `json:"created_at"`
}

// ChunkList represents the chunk list API response.
type ChunkList struct {
	Items   []Chunk `json:"items"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more"`
}

// SourcesCmd creates the sources command with subcommands.
func SourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage knowledge sources",
		Long:  "Commands for registering, listing, refreshing, and deleting knowledge sources.",
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesAddCmd())
	cmd.AddCommand(sourcesGetCmd())
	cmd.AddCommand(sourcesDeleteCmd())
	cmd.AddCommand(sourcesRefreshCmd())
	cmd.AddCommand(sourcesRefreshAllCmd())
	cmd.AddCommand(sourcesChunksCmd())

	return cmd
}

func sourcesListCmd() *cobra.Command {
	var (
		scope      string
		sourceType string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesList(cmd, scope, sourceType, status, outputJSON)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Filter by scope (system|workspace|space)")
	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Filter by source type (url|page|markdown)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|processing|ready|error)")

	return cmd
}

func runSourcesList(cmd *cobra.Command, scope, sourceType, status string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if scope != "" {
		params.Set("scope", scope)
	}
	if sourceType != "" {
		params.Set("type", sourceType)
	}
	if status != "" {
		params.Set("status", status)
	}

	path := "/knowledge/sources"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var list SourceList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No sources found.")
		return nil
	}

	fmt.Printf("Found %d sources:\n\n", len(list.Items))
	for i, src := range list.Items {
		fmt.Printf("%d. %s [%s/%s]\n", i+1, src.Name, src.Type, src.Status)
		if src.Origin != "" {
			fmt.Printf("   Origin: %s\n", src.Origin)
		}
		fmt.Printf("   Scope: %s\n", src.Scope)
		if src.ChunkCount > 0 {
			fmt.Printf("   Chunks: %d\n", src.ChunkCount)
		}
		if src.Error != "" {
			fmt.Printf("   Error: %s\n", src.Error)
		}
		if src.LastSyncedAt != "" {
			fmt.Printf("   Synced: %s\n", src.LastSyncedAt)
		}
		fmt.Printf("   ID: %s\n", src.ID)
		if i < len(list.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

func sourcesAddCmd() *cobra.Command {
	var (
		sourceType string
		origin     string
		scope      string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a knowledge source",
		Long: `Register a knowledge source and queue it for ingestion.

Examples:
  # Register a URL source
  helicon sources add "Passive Cooling Papers" --type url --origin https://example.org/papers

  # Register a workspace page as a source
  helicon sources add "Design Notes" --type page --origin 7b8a6c5d-4e3f-4a2b-8c1d-0e9f8a7b6c5d

  # Register markdown content from a file
  helicon sources add "Field Notes" --type markdown --file notes.md

  # Register markdown content from stdin
  cat notes.md | helicon sources add "Field Notes" --type markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesAdd(cmd, args[0], sourceType, origin, scope, file, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Source type (url|page|markdown)")
	cmd.Flags().StringVar(&origin, "origin", "", "Source origin: URL for url sources, page ID for page sources")
	cmd.Flags().StringVar(&scope, "scope", "", "Visibility scope (system|workspace|space)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Markdown content file (stdin if omitted for markdown sources)")

	return cmd
}

func runSourcesAdd(cmd *cobra.Command, name, sourceType, origin, scope, file string, outputJSON bool) error {
	if sourceType == "" {
		return fmt.Errorf("--type is required")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]string{
		"name": name,
		"type": sourceType,
	}
	if origin != "" {
		req["origin"] = origin
	}
	if scope != "" {
		req["scope"] = scope
	}

	if sourceType == "markdown" {
		var input []byte
		if file != "" {
			input, err = os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
		} else {
			input, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
		}
		if len(input) == 0 {
			return fmt.Errorf("no markdown content provided")
		}
		req["content"] = string(input)
	}

	resp, err := api.Post("/knowledge/sources", req)
	if err != nil {
		return fmt.Errorf("failed to register source: %w", err)
	}

	var src Source
	if err := json.Unmarshal(resp.Data, &src); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(src, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Registered source: %s\n", src.ID)
		fmt.Printf("Name: %s\n", src.Name)
		fmt.Printf("Type: %s\n", src.Type)
		fmt.Printf("Status: %s\n", src.Status)
	}

	return nil
}

func sourcesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <source-id>",
		Short: "Show a knowledge source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesGet(cmd, args[0], outputJSON)
		},
	}
}

func runSourcesGet(cmd *cobra.Command, sourceID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/knowledge/sources/" + sourceID)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var src Source
	if err := json.Unmarshal(resp.Data, &src); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(src, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s [%s]\n", src.Name, src.Type)
	fmt.Printf("Status: %s\n", src.Status)
	if src.Error != "" {
		fmt.Printf("Error: %s\n", src.Error)
	}
	if src.Origin != "" {
		fmt.Printf("Origin: %s\n", src.Origin)
	}
	fmt.Printf("Scope: %s\n", src.Scope)
	fmt.Printf("Chunks: %d\n", src.ChunkCount)
	if src.LastSyncedAt != "" {
		fmt.Printf("Synced: %s\n", src.LastSyncedAt)
	}
	fmt.Printf("Created: %s\n", src.CreatedAt)
	fmt.Printf("ID: %s\n", src.ID)

	return nil
}

func sourcesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source-id>",
		Short: "Delete a knowledge source and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesDelete(cmd, args[0], outputJSON)
		},
	}
}

func runSourcesDelete(cmd *cobra.Command, sourceID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/knowledge/sources/" + sourceID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]interface{}{
			"deleted": true,
			"id":      sourceID,
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted source: %s\n", sourceID)
	}

	return nil
}

func sourcesRefreshCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "refresh <source-id>",
		Short: "Queue a source for re-ingestion",
		Long:  "Queues a source for re-ingestion. Markdown sources take fresh content from --file or stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesRefresh(cmd, args[0], file, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Fresh markdown content file")

	return cmd
}

func runSourcesRefresh(cmd *cobra.Command, sourceID, file string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var body interface{}
	if file != "" {
		input, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		body = map[string]string{"content": string(input)}
	}

	if _, err := api.Post("/knowledge/sources/"+sourceID+"/refresh", body); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]interface{}{
			"queued": true,
			"id":     sourceID,
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Queued refresh for source: %s\n", sourceID)
	}

	return nil
}

func sourcesRefreshAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-all",
		Short: "Queue every refreshable source for re-ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesRefreshAll(cmd, outputJSON)
		},
	}
}

func runSourcesRefreshAll(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/knowledge/sources/refresh-all", nil)
	if err != nil {
		return fmt.Errorf("refresh-all failed: %w", err)
	}

	var summary struct {
		Enqueued int `json:"enqueued"`
		Skipped  int `json:"skipped"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Queued %d sources for refresh (%d skipped)\n", summary.Enqueued, summary.Skipped)
	}

	return nil
}

func sourcesChunksCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "chunks <source-id>",
		Short: "List the stored chunks of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesChunks(cmd, args[0], limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of chunks")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runSourcesChunks(cmd *cobra.Command, sourceID string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/knowledge/sources/" + sourceID + "/chunks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("chunks failed: %w", err)
	}

	var list ChunkList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No chunks found.")
		return nil
	}

	fmt.Printf("Found %d chunks:\n\n", len(list.Items))
	for i, chunk := range list.Items {
		fmt.Printf("%d. chunk %d (%d tokens)\n", i+1, chunk.ChunkIndex, chunk.TokenCount)
		if chunk.Heading != "" {
			fmt.Printf("   Heading: %s\n", chunk.Heading)
		}
		content := chunk.Content
		if len(content) > 100 {
			content = content[:97] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s\n", chunk.ID)
		if i < len(list.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if list.HasMore && list.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", list.Cursor)
	}

	return nil
}
