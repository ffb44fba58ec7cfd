package domain

import "time"

// KnowledgeChunk represents one embedded fragment of a source's content.
// Scope fields are denormalized from the owning source so search queries
// can filter without a join.
type KnowledgeChunk struct {
	ID          string
	SourceID    string
	ChunkIndex  int // contiguous from 0 within a source
	Heading     string
	Content     string
	TokenCount  int
	Embedding   []float32
	Scope       KnowledgeScope
	WorkspaceID string
	SpaceID     string
	CreatedAt   time.Time
}

// ChunkMatch pairs a chunk with its similarity to a query embedding.
// Similarity is 1 - cosine distance, so higher is closer.
type ChunkMatch struct {
	Chunk      KnowledgeChunk
	Similarity float64
}

// EstimateTokens approximates the token count of a text as ceil(len/4)
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
