package domain

import (
	"strings"
	"time"
)

// PageType represents the research type of a workspace page
type PageType string

const (
	PageTypeHypothesis PageType = "hypothesis"
	PageTypeExperiment PageType = "experiment"
	PageTypePaper      PageType = "paper"
	PageTypeJournal    PageType = "journal"
	PageTypePlain      PageType = "page"
)

// Hypothesis statuses recognized in page metadata. Anything else leaves the
// page out of every hypothesis bucket.
const (
	HypothesisStatusValidated    = "validated"
	HypothesisStatusRefuted      = "refuted"
	HypothesisStatusTesting      = "testing"
	HypothesisStatusProposed     = "proposed"
	HypothesisStatusInconclusive = "inconclusive"
)

// TypedPage is a read projection of a workspace page. Pages are owned by
// the workspace product; this service only reads them for extraction and
// context assembly.
type TypedPage struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	Title       string
	PlainText   string
	PageType    PageType
	Metadata    map[string]any
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// MetadataStatus returns the lowercased status field from page metadata,
// or "" when absent or not a string.
func (p *TypedPage) MetadataStatus() string {
	if p.Metadata == nil {
		return ""
	}
	raw, ok := p.Metadata["status"]
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// IsDeleted reports whether the page has been soft-deleted
func (p *TypedPage) IsDeleted() bool {
	return p.DeletedAt != nil
}
