package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ContextQueryRequest represents the context query API request.
type ContextQueryRequest struct {
	Query   string `json:"query"`
	SpaceID string `json:"space_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// BundlePage represents a workspace page inside a context bundle.
type BundlePage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageType  string `json:"page_type"`
	Status    string `json:"status,omitempty"`
	SpaceID   string `json:"space_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// TimelineEntry represents a recent-activity entry in a context bundle.
type TimelineEntry struct {
	PageID    string `json:"page_id"`
	Title     string `json:"title"`
	PageType  string `json:"page_type"`
	UpdatedAt string `json:"updated_at"`
}

// Hypotheses groups hypothesis pages by their status.
type Hypotheses struct {
	Validated []BundlePage `json:"validated"`
	Refuted   []BundlePage `json:"refuted"`
	Testing   []BundlePage `json:"testing"`
	Open      []BundlePage `json:"open"`
}

// OpenQuestion represents an unresolved question task in a context bundle.
type OpenQuestion struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	SpaceID string   `json:"space_id,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

// Contradiction represents a contradicts edge between two pages.
type Contradiction struct {
	FromPageID string `json:"from_page_id"`
	ToPageID   string `json:"to_page_id"`
	Type       string `json:"type"`
}

// StageResult reports how one assembly stage fared.
type StageResult struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ContextBundle represents the assembled context API response.
type ContextBundle struct {
	Query          string         `json:"query"`
	DirectHits     []BundlePage   `json:"direct_hits"`
	KnowledgeHits  []SearchResult `json:"knowledge_hits"`
	RelatedWork    []BundlePage   `json:"related_work"`
	Timeline       []TimelineEntry `json:"timeline"`
	Hypotheses     Hypotheses     `json:"hypotheses"`
	OpenQuestions  []OpenQuestion `json:"open_questions"`
	Contradictions []Contradiction `json:"contradictions"`
	Experiments    []BundlePage   `json:"experiments"`
	Papers         []BundlePage   `json:"papers"`
	Stages         []StageResult  `json:"stages"`
}

// ContextCmd creates the context command.
func ContextCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble a context bundle",
		Long:  "Assembles a research context bundle for a query: matching pages, knowledge chunks, related work, timeline, hypotheses, open questions, and contradictions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runContextQuery(cmd, args[0], limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results per section")

	return cmd
}

func runContextQuery(cmd *cobra.Command, query string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := ContextQueryRequest{
		Query: query,
		Limit: limit,
	}

	resp, err := api.Post("/context/query", req)
	if err != nil {
		return fmt.Errorf("context query failed: %w", err)
	}

	var bundle ContextBundle
	if err := json.Unmarshal(resp.Data, &bundle); err != nil {
		return fmt.Errorf("failed to parse bundle: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(bundle, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printBundle(&bundle)
	return nil
}

func printBundle(bundle *ContextBundle) {
	fmt.Printf("Context for: %s\n", bundle.Query)

	if len(bundle.DirectHits) > 0 {
		fmt.Printf("\nDirect hits (%d):\n", len(bundle.DirectHits))
		printPages(bundle.DirectHits)
	}

	if len(bundle.KnowledgeHits) > 0 {
		fmt.Printf("\nKnowledge (%d):\n", len(bundle.KnowledgeHits))
		for _, hit := range bundle.KnowledgeHits {
			label := hit.Heading
			if label == "" {
				label = fmt.Sprintf("chunk %d", hit.ChunkIndex)
			}
			content := hit.Content
			if len(content) > 80 {
				content = content[:77] + "..."
			}
			fmt.Printf("  - %s (%.2f): %s\n", label, hit.Similarity, content)
		}
	}

	if len(bundle.RelatedWork) > 0 {
		fmt.Printf("\nRelated work (%d):\n", len(bundle.RelatedWork))
		printPages(bundle.RelatedWork)
	}

	if len(bundle.Timeline) > 0 {
		fmt.Printf("\nRecent activity (%d):\n", len(bundle.Timeline))
		for _, entry := range bundle.Timeline {
			fmt.Printf("  - %s [%s] %s\n", entry.UpdatedAt, entry.PageType, entry.Title)
		}
	}

	printHypothesisGroup("Validated hypotheses", bundle.Hypotheses.Validated)
	printHypothesisGroup("Refuted hypotheses", bundle.Hypotheses.Refuted)
	printHypothesisGroup("Hypotheses under test", bundle.Hypotheses.Testing)
	printHypothesisGroup("Open hypotheses", bundle.Hypotheses.Open)

	if len(bundle.OpenQuestions) > 0 {
		fmt.Printf("\nOpen questions (%d):\n", len(bundle.OpenQuestions))
		for _, question := range bundle.OpenQuestions {
			fmt.Printf("  - %s", question.Title)
			if len(question.Labels) > 0 {
				fmt.Printf(" [%s]", strings.Join(question.Labels, ", "))
			}
			fmt.Println()
		}
	}

	if len(bundle.Contradictions) > 0 {
		fmt.Printf("\nContradictions (%d):\n", len(bundle.Contradictions))
		for _, c := range bundle.Contradictions {
			fmt.Printf("  - %s contradicts %s\n", c.FromPageID, c.ToPageID)
		}
	}

	if len(bundle.Experiments) > 0 {
		fmt.Printf("\nExperiments (%d):\n", len(bundle.Experiments))
		printPages(bundle.Experiments)
	}

	if len(bundle.Papers) > 0 {
		fmt.Printf("\nPapers (%d):\n", len(bundle.Papers))
		printPages(bundle.Papers)
	}

	degraded := make([]StageResult, 0)
	for _, stage := range bundle.Stages {
		if stage.Status != "ok" {
			degraded = append(degraded, stage)
		}
	}
	if len(degraded) > 0 {
		fmt.Printf("\nDegraded stages:\n")
		for _, stage := range degraded {
			fmt.Printf("  - %s: %s", stage.Stage, stage.Status)
			if stage.Reason != "" {
				fmt.Printf(" (%s)", stage.Reason)
			}
			fmt.Println()
		}
	}
}

func printPages(pages []BundlePage) {
	for _, page := range pages {
		fmt.Printf("  - %s [%s", page.Title, page.PageType)
		if page.Status != "" {
			fmt.Printf("/%s", page.Status)
		}
		fmt.Printf("] %s\n", page.ID)
	}
}

func printHypothesisGroup(label string, pages []BundlePage) {
	if len(pages) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", label, len(pages))
	printPages(pages)
}
