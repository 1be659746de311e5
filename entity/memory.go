package entity

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// The five memory-record kinds below use the document cache form: they carry
// fixed-length embedding vectors and nested detail that must survive caching
// without string coercion. Vector payloads are stored as given; generating
// them is the embedding service's concern, not this layer's.

// EpisodicEvent is a time-stamped memory of something that happened in a
// conversation or task.
type EpisodicEvent struct {
	MemoryBase
	OccurredAt time.Time       `bun:"occurred_at" json:"occurred_at"`
	EventType  string          `bun:"event_type" json:"event_type,omitempty"`
	ActorLabel string          `bun:"actor_label" json:"actor_label,omitempty"`
	Summary    string          `bun:"summary" json:"summary,omitempty"`
	Details    string          `bun:"details" json:"details,omitempty"`
	TreePath   []string        `bun:"tree_path,type:jsonb" json:"tree_path,omitempty"`
	Embedding  pgvector.Vector `bun:"embedding,type:vector(1536)" json:"embedding"`
}

// SemanticItem is a concept or fact the agent knows, independent of when it
// was learned. It carries two vectors: one over the name, one over the
// summary.
type SemanticItem struct {
	MemoryBase
	Name             string          `bun:"name,notnull" json:"name"`
	Summary          string          `bun:"summary" json:"summary,omitempty"`
	Details          string          `bun:"details" json:"details,omitempty"`
	Source           string          `bun:"source" json:"source,omitempty"`
	TreePath         []string        `bun:"tree_path,type:jsonb" json:"tree_path,omitempty"`
	NameEmbedding    pgvector.Vector `bun:"name_embedding,type:vector(1536)" json:"name_embedding"`
	SummaryEmbedding pgvector.Vector `bun:"summary_embedding,type:vector(1536)" json:"summary_embedding"`
}

// ProceduralItem is a how-to: an ordered set of steps for a recurring task.
type ProceduralItem struct {
	MemoryBase
	EntryType string          `bun:"entry_type" json:"entry_type,omitempty"`
	Summary   string          `bun:"summary" json:"summary,omitempty"`
	Steps     []string        `bun:"steps,type:jsonb" json:"steps,omitempty"`
	TreePath  []string        `bun:"tree_path,type:jsonb" json:"tree_path,omitempty"`
	Embedding pgvector.Vector `bun:"embedding,type:vector(1536)" json:"embedding"`
}

// ResourceItem is a document or file fragment the agent holds on to.
type ResourceItem struct {
	MemoryBase
	Title        string          `bun:"title,notnull" json:"title"`
	Summary      string          `bun:"summary" json:"summary,omitempty"`
	ResourceType string          `bun:"resource_type" json:"resource_type,omitempty"`
	Content      string          `bun:"content" json:"content,omitempty"`
	TreePath     []string        `bun:"tree_path,type:jsonb" json:"tree_path,omitempty"`
	Embedding    pgvector.Vector `bun:"embedding,type:vector(1536)" json:"embedding"`
}

// VaultItem is a sensitive credential or personal datum kept out of prompts
// by default. Never cached (no TTL policy entry).
type VaultItem struct {
	MemoryBase
	EntryType     string          `bun:"entry_type" json:"entry_type,omitempty"`
	Source        string          `bun:"source" json:"source,omitempty"`
	Sensitivity   string          `bun:"sensitivity" json:"sensitivity,omitempty"`
	SecretValue   string          `bun:"secret_value" json:"secret_value,omitempty"`
	Caption       string          `bun:"caption" json:"caption,omitempty"`
	CaptionVector pgvector.Vector `bun:"caption_embedding,type:vector(1536)" json:"caption_embedding"`
}
