package domain

import (
	"fmt"
	"time"
)

// Memory represents one agent memory entry with its embedding. Unlike
// knowledge chunks, memories are written individually and never rebuilt.
type Memory struct {
	ID          string
	Scope       KnowledgeScope
	WorkspaceID string
	SpaceID     string
	Content     string
	Embedding   []float32
	CreatedAt   time.Time
}

// MemoryMatch pairs a memory with its similarity to a query embedding
type MemoryMatch struct {
	Memory     Memory
	Similarity float64
}

// NewMemory creates a new Memory instance
func NewMemory(id string, scope KnowledgeScope, workspaceID, spaceID, content string, createdAt time.Time) *Memory {
	return &Memory{
		ID:          id,
		Scope:       scope,
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		Content:     content,
		CreatedAt:   createdAt,
	}
}

// ValidateMemory validates a Memory instance
func ValidateMemory(m *Memory) error {
	if m == nil {
		return fmt.Errorf("memory cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("memory ID is required")
	}

	if m.Content == "" {
		return fmt.Errorf("memory Content is required")
	}

	return ValidateScope(m.Scope, m.WorkspaceID, m.SpaceID)
}
