package domain

import "time"

// Context assembly stage names, in pipeline order
const (
	StageTextSearch      = "text_search"
	StageKnowledgeSearch = "knowledge_search"
	StageKnowledgeMap    = "knowledge_mapping"
	StageRelatedWork     = "related_work"
	StageTimeline        = "timeline"
	StageHypotheses      = "hypotheses"
	StageOpenQuestions   = "open_questions"
	StageContradictions  = "contradictions"
	StageClassification  = "classification"
)

// StageStatus reports how a single assembly stage ended
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageDegraded StageStatus = "degraded"
)

// StageResult records the outcome of one assembly stage. A degraded stage
// contributed nothing to the bundle but did not fail the call.
type StageResult struct {
	Stage  string
	Status StageStatus
	Reason string // set only when degraded
}

// OKStage returns a successful StageResult
func OKStage(stage string) StageResult {
	return StageResult{Stage: stage, Status: StageOK}
}

// DegradedStage returns a degraded StageResult carrying the failure reason
func DegradedStage(stage string, err error) StageResult {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return StageResult{Stage: stage, Status: StageDegraded, Reason: reason}
}

// TimelineEntry is one page in the time-ordered activity feed
type TimelineEntry struct {
	PageID    string
	Title     string
	PageType  PageType
	Status    string // metadata status, "" when absent
	UpdatedAt time.Time
}

// HypothesisBuckets groups hypothesis pages by their metadata status.
// Pages with an unrecognized or missing status appear in no bucket.
type HypothesisBuckets struct {
	Validated []TypedPage
	Refuted   []TypedPage
	Testing   []TypedPage
	Open      []TypedPage // proposed or inconclusive
}

// ContradictionEdge asserts that two pages' claims conflict
type ContradictionEdge struct {
	FromPageID string
	ToPageID   string
	Type       string
}

// ContextBundle is the assembled answer to one retrieval query. It is
// built fresh per request and never persisted.
type ContextBundle struct {
	Query          string
	DirectHits     []TypedPage
	KnowledgeHits  []ChunkMatch
	RelatedWork    []TypedPage
	Timeline       []TimelineEntry
	Hypotheses     HypothesisBuckets
	OpenQuestions  []Task
	Contradictions []ContradictionEdge
	Experiments    []TypedPage
	Papers         []TypedPage
	Stages         []StageResult
}

// Degraded returns the names of stages that failed to contribute
func (b *ContextBundle) Degraded() []string {
	var names []string
	for _, s := range b.Stages {
		if s.Status == StageDegraded {
			names = append(names, s.Stage)
		}
	}
	return names
}
