package domain

import (
	"fmt"
	"time"
)

// SourceType represents the kind of document a knowledge source points at
type SourceType string

const (
	SourceTypeURL      SourceType = "url"
	SourceTypeFile     SourceType = "file"
	SourceTypePage     SourceType = "page"
	SourceTypeMarkdown SourceType = "markdown"
)

// KnowledgeScope represents the visibility tier of a source and its chunks
type KnowledgeScope string

const (
	ScopeSystem    KnowledgeScope = "system"
	ScopeWorkspace KnowledgeScope = "workspace"
	ScopeSpace     KnowledgeScope = "space"
)

// SourceStatus represents the processing state of a knowledge source
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusReady      SourceStatus = "ready"
	SourceStatusError      SourceStatus = "error"
)

// KnowledgeSource represents a registered document origin. Its chunks are
// rebuilt from scratch on every successful ingestion run.
type KnowledgeSource struct {
	ID           string
	Name         string
	Type         SourceType
	Origin       string // URL, file id, or page id; empty for markdown
	Scope        KnowledgeScope
	WorkspaceID  string // empty for system scope
	SpaceID      string // set only for space scope
	Status       SourceStatus
	Error        string
	ChunkCount   int
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewKnowledgeSource creates a new KnowledgeSource in the pending state
func NewKnowledgeSource(
	id, name string,
	sourceType SourceType,
	origin string,
	scope KnowledgeScope,
	workspaceID, spaceID string,
	createdAt time.Time,
) *KnowledgeSource {
	return &KnowledgeSource{
		ID:          id,
		Name:        name,
		Type:        sourceType,
		Origin:      origin,
		Scope:       scope,
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		Status:      SourceStatusPending,
		ChunkCount:  0,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateKnowledgeSource validates a KnowledgeSource instance
func ValidateKnowledgeSource(s *KnowledgeSource) error {
	if s == nil {
		return fmt.Errorf("knowledge source cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("knowledge source ID is required")
	}

	if s.Name == "" {
		return fmt.Errorf("knowledge source Name is required")
	}

	if !isValidSourceType(s.Type) {
		return fmt.Errorf("knowledge source Type is invalid: %s", s.Type)
	}

	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("knowledge source Status is invalid: %s", s.Status)
	}

	if s.Type != SourceTypeMarkdown && s.Origin == "" {
		return fmt.Errorf("knowledge source Origin is required for type %s", s.Type)
	}

	return ValidateScope(s.Scope, s.WorkspaceID, s.SpaceID)
}

// ValidateScope checks that the workspace/space fields are consistent with
// the declared visibility tier.
func ValidateScope(scope KnowledgeScope, workspaceID, spaceID string) error {
	switch scope {
	case ScopeSystem:
		if workspaceID != "" || spaceID != "" {
			return fmt.Errorf("system scope cannot carry a workspace or space")
		}
	case ScopeWorkspace:
		if workspaceID == "" {
			return fmt.Errorf("workspace scope requires a WorkspaceID")
		}
		if spaceID != "" {
			return fmt.Errorf("workspace scope cannot carry a SpaceID")
		}
	case ScopeSpace:
		if workspaceID == "" || spaceID == "" {
			return fmt.Errorf("space scope requires both WorkspaceID and SpaceID")
		}
	default:
		return fmt.Errorf("scope is invalid: %s", scope)
	}
	return nil
}

// Refreshable reports whether the source can be re-ingested without the
// caller supplying content. Markdown bodies only exist in the ingestion
// call itself and file extraction is not implemented.
func (s *KnowledgeSource) Refreshable() bool {
	return s.Type == SourceTypeURL || s.Type == SourceTypePage
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeURL, SourceTypeFile, SourceTypePage, SourceTypeMarkdown:
		return true
	}
	return false
}

// isValidSourceStatus checks if a SourceStatus is valid
func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusPending, SourceStatusProcessing, SourceStatusReady, SourceStatusError:
		return true
	}
	return false
}

// IsValidKnowledgeScope checks if a KnowledgeScope is valid
func IsValidKnowledgeScope(s KnowledgeScope) bool {
	switch s {
	case ScopeSystem, ScopeWorkspace, ScopeSpace:
		return true
	}
	return false
}
