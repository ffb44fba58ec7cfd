package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Memory represents a stored memory returned by the API.
type Memory struct {
	ID          string `json:"id"`
	Scope       string `json:"scope"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	SpaceID     string `json:"space_id,omitempty"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

// MemoryMatch represents a memory matched by semantic search.
type MemoryMatch struct {
	ID         string  `json:"id"`
	Scope      string  `json:"scope"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	CreatedAt  string  `json:"created_at"`
}

// MemorySearchResponse represents the memory search API response.
type MemorySearchResponse struct {
	Results []MemoryMatch `json:"results"`
}

// MemoryCmd creates the memory command with subcommands.
func MemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Store and search agent memories",
		Long:  "Commands for storing and searching free-form agent memories.",
	}

	cmd.AddCommand(memoryStoreCmd())
	cmd.AddCommand(memorySearchCmd())

	return cmd
}

func memoryStoreCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "store [content]",
		Short: "Store a memory",
		Long:  "Stores a memory from the argument or stdin. The memory is embedded immediately.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			content := ""
			if len(args) > 0 {
				content = args[0]
			}
			return runMemoryStore(cmd, content, scope, outputJSON)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Memory scope (workspace|space)")

	return cmd
}

func runMemoryStore(cmd *cobra.Command, content, scope string, outputJSON bool) error {
	if content == "" {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		content = strings.TrimSpace(string(input))
	}
	if content == "" {
		return fmt.Errorf("no content provided")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]string{"content": content}
	if scope != "" {
		req["scope"] = scope
	}

	resp, err := api.Post("/memories", req)
	if err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}

	var memory Memory
	if err := json.Unmarshal(resp.Data, &memory); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(memory, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Stored memory: %s\n", memory.ID)
		fmt.Printf("Scope: %s\n", memory.Scope)
	}

	return nil
}

func memorySearchCmd() *cobra.Command {
	var (
		limit         int
		minSimilarity float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runMemorySearch(cmd, args[0], limit, minSimilarity, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "Drop results below this similarity (0-1)")

	return cmd
}

func runMemorySearch(cmd *cobra.Command, query string, limit int, minSimilarity float64, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"query": query,
	}
	if limit > 0 {
		req["limit"] = limit
	}
	if minSimilarity > 0 {
		req["min_similarity"] = minSimilarity
	}

	resp, err := api.Post("/memories/search", req)
	if err != nil {
		return fmt.Errorf("memory search failed: %w", err)
	}

	var searchResp MemorySearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No memories found.")
		return nil
	}

	fmt.Printf("Found %d memories:\n\n", len(searchResp.Results))
	for i, match := range searchResp.Results {
		fmt.Printf("%d. (%.2f) [%s]\n", i+1, match.Similarity, match.Scope)
		content := match.Content
		if len(content) > 100 {
			content = content[:97] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s\n", match.ID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
