package managers

import (
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/engramlab/engram/entity"
	"github.com/engramlab/engram/manager"
	"github.com/engramlab/engram/readcache"
	"github.com/engramlab/engram/store"
)

// The memory-kind managers below have no external cache tier: their records
// carry embedding vectors, and repeated-read workloads wrap them in a
// readcache.Memoizer instead (see the Memoized* constructors).

// EpisodicCreate is the input for recording an episodic event.
type EpisodicCreate struct {
	AgentID    string
	OccurredAt time.Time
	EventType  string
	ActorLabel string
	Summary    string
	Details    string
	TreePath   []string
	Embedding  pgvector.Vector
}

// EpisodicUpdate patches an episodic event. Nil fields are left untouched.
type EpisodicUpdate struct {
	Summary   *string
	Details   *string
	TreePath  []string
	Embedding *pgvector.Vector
}

type EpisodicManager = manager.BaseMemoryManager[entity.EpisodicEvent, *entity.EpisodicEvent, EpisodicCreate, EpisodicUpdate]

// MemoizedEpisodicManager is an EpisodicManager behind in-process read
// memoization.
type MemoizedEpisodicManager = readcache.Memoizer[entity.EpisodicEvent, *entity.EpisodicEvent, EpisodicCreate, EpisodicUpdate]

// NewEpisodicEvents builds the episodic-event manager.
func NewEpisodicEvents(delegate store.Delegate[entity.EpisodicEvent], opts ...manager.Option) (*EpisodicManager, error) {
	return manager.NewMemory[entity.EpisodicEvent, *entity.EpisodicEvent, EpisodicCreate, EpisodicUpdate](
		manager.Config{EntityType: entity.TypeEpisodic},
		delegate,
		func(in EpisodicCreate) *entity.EpisodicEvent {
			e := &entity.EpisodicEvent{
				OccurredAt: in.OccurredAt,
				EventType:  in.EventType,
				ActorLabel: in.ActorLabel,
				Summary:    in.Summary,
				Details:    in.Details,
				TreePath:   in.TreePath,
				Embedding:  in.Embedding,
			}
			e.AgentID = in.AgentID
			return e
		},
		func(e *entity.EpisodicEvent, p EpisodicUpdate) {
			if p.Summary != nil {
				e.Summary = *p.Summary
			}
			if p.Details != nil {
				e.Details = *p.Details
			}
			if p.TreePath != nil {
				e.TreePath = p.TreePath
			}
			if p.Embedding != nil {
				e.Embedding = *p.Embedding
			}
		},
		opts...)
}

// NewMemoizedEpisodicEvents builds the episodic-event manager behind a read
// memoizer, for prompt-assembly workloads that reread one agent's recent
// events every turn.
func NewMemoizedEpisodicEvents(delegate store.Delegate[entity.EpisodicEvent], cfg readcache.Config, opts ...manager.Option) (*MemoizedEpisodicManager, error) {
	base, err := NewEpisodicEvents(delegate, opts...)
	if err != nil {
		return nil, err
	}
	return readcache.Wrap(base, cfg)
}

// SemanticCreate is the input for recording a semantic item. It carries two
// vectors: one over the name, one over the summary.
type SemanticCreate struct {
	AgentID          string
	Name             string
	Summary          string
	Details          string
	Source           string
	TreePath         []string
	NameEmbedding    pgvector.Vector
	SummaryEmbedding pgvector.Vector
}

// SemanticUpdate patches a semantic item. Nil fields are left untouched.
type SemanticUpdate struct {
	Summary          *string
	Details          *string
	TreePath         []string
	SummaryEmbedding *pgvector.Vector
}

type SemanticManager = manager.BaseMemoryManager[entity.SemanticItem, *entity.SemanticItem, SemanticCreate, SemanticUpdate]

// MemoizedSemanticManager is a SemanticManager behind in-process read
// memoization.
type MemoizedSemanticManager = readcache.Memoizer[entity.SemanticItem, *entity.SemanticItem, SemanticCreate, SemanticUpdate]

// NewSemanticItems builds the semantic-item manager.
func NewSemanticItems(delegate store.Delegate[entity.SemanticItem], opts ...manager.Option) (*SemanticManager, error) {
	return manager.NewMemory[entity.SemanticItem, *entity.SemanticItem, SemanticCreate, SemanticUpdate](
		manager.Config{EntityType: entity.TypeSemantic},
		delegate,
		func(in SemanticCreate) *entity.SemanticItem {
			s := &entity.SemanticItem{
				Name:             in.Name,
				Summary:          in.Summary,
				Details:          in.Details,
				Source:           in.Source,
				TreePath:         in.TreePath,
				NameEmbedding:    in.NameEmbedding,
				SummaryEmbedding: in.SummaryEmbedding,
			}
			s.AgentID = in.AgentID
			return s
		},
		func(s *entity.SemanticItem, p SemanticUpdate) {
			if p.Summary != nil {
				s.Summary = *p.Summary
			}
			if p.Details != nil {
				s.Details = *p.Details
			}
			if p.TreePath != nil {
				s.TreePath = p.TreePath
			}
			if p.SummaryEmbedding != nil {
				s.SummaryEmbedding = *p.SummaryEmbedding
			}
		},
		opts...)
}

// NewMemoizedSemanticItems builds the semantic-item manager behind a read
// memoizer.
func NewMemoizedSemanticItems(delegate store.Delegate[entity.SemanticItem], cfg readcache.Config, opts ...manager.Option) (*MemoizedSemanticManager, error) {
	base, err := NewSemanticItems(delegate, opts...)
	if err != nil {
		return nil, err
	}
	return readcache.Wrap(base, cfg)
}

// ProceduralCreate is the input for recording a procedural item.
type ProceduralCreate struct {
	AgentID   string
	EntryType string
	Summary   string
	Steps     []string
	TreePath  []string
	Embedding pgvector.Vector
}

// ProceduralUpdate patches a procedural item. Nil fields are left untouched.
type ProceduralUpdate struct {
	Summary   *string
	Steps     []string
	Embedding *pgvector.Vector
}

type ProceduralManager = manager.BaseMemoryManager[entity.ProceduralItem, *entity.ProceduralItem, ProceduralCreate, ProceduralUpdate]

// NewProceduralItems builds the procedural-item manager.
func NewProceduralItems(delegate store.Delegate[entity.ProceduralItem], opts ...manager.Option) (*ProceduralManager, error) {
	return manager.NewMemory[entity.ProceduralItem, *entity.ProceduralItem, ProceduralCreate, ProceduralUpdate](
		manager.Config{EntityType: entity.TypeProcedural},
		delegate,
		func(in ProceduralCreate) *entity.ProceduralItem {
			p := &entity.ProceduralItem{
				EntryType: in.EntryType,
				Summary:   in.Summary,
				Steps:     in.Steps,
				TreePath:  in.TreePath,
				Embedding: in.Embedding,
			}
			p.AgentID = in.AgentID
			return p
		},
		func(item *entity.ProceduralItem, p ProceduralUpdate) {
			if p.Summary != nil {
				item.Summary = *p.Summary
			}
			if p.Steps != nil {
				item.Steps = p.Steps
			}
			if p.Embedding != nil {
				item.Embedding = *p.Embedding
			}
		},
		opts...)
}

// ResourceCreate is the input for storing a resource item.
type ResourceCreate struct {
	AgentID      string
	Title        string
	Summary      string
	ResourceType string
	Content      string
	TreePath     []string
	Embedding    pgvector.Vector
}

// ResourceUpdate patches a resource item. Nil fields are left untouched.
type ResourceUpdate struct {
	Title     *string
	Summary   *string
	Content   *string
	Embedding *pgvector.Vector
}

type ResourceManager = manager.BaseMemoryManager[entity.ResourceItem, *entity.ResourceItem, ResourceCreate, ResourceUpdate]

// NewResourceItems builds the resource-item manager.
func NewResourceItems(delegate store.Delegate[entity.ResourceItem], opts ...manager.Option) (*ResourceManager, error) {
	return manager.NewMemory[entity.ResourceItem, *entity.ResourceItem, ResourceCreate, ResourceUpdate](
		manager.Config{EntityType: entity.TypeResource},
		delegate,
		func(in ResourceCreate) *entity.ResourceItem {
			r := &entity.ResourceItem{
				Title:        in.Title,
				Summary:      in.Summary,
				ResourceType: in.ResourceType,
				Content:      in.Content,
				TreePath:     in.TreePath,
				Embedding:    in.Embedding,
			}
			r.AgentID = in.AgentID
			return r
		},
		func(r *entity.ResourceItem, p ResourceUpdate) {
			if p.Title != nil {
				r.Title = *p.Title
			}
			if p.Summary != nil {
				r.Summary = *p.Summary
			}
			if p.Content != nil {
				r.Content = *p.Content
			}
			if p.Embedding != nil {
				r.Embedding = *p.Embedding
			}
		},
		opts...)
}

// VaultCreate is the input for storing a knowledge-vault item.
type VaultCreate struct {
	AgentID       string
	EntryType     string
	Source        string
	Sensitivity   string
	SecretValue   string
	Caption       string
	CaptionVector pgvector.Vector
}

// VaultUpdate patches a vault item. Nil fields are left untouched.
type VaultUpdate struct {
	Sensitivity *string
	SecretValue *string
	Caption     *string
}

type VaultManager = manager.BaseMemoryManager[entity.VaultItem, *entity.VaultItem, VaultCreate, VaultUpdate]

// NewVaultItems builds the knowledge-vault manager. Vault items hold
// sensitive values and are deliberately absent from every cache layer; do
// not wrap this manager in a memoizer.
func NewVaultItems(delegate store.Delegate[entity.VaultItem], opts ...manager.Option) (*VaultManager, error) {
	return manager.NewMemory[entity.VaultItem, *entity.VaultItem, VaultCreate, VaultUpdate](
		manager.Config{EntityType: entity.TypeVault},
		delegate,
		func(in VaultCreate) *entity.VaultItem {
			v := &entity.VaultItem{
				EntryType:     in.EntryType,
				Source:        in.Source,
				Sensitivity:   in.Sensitivity,
				SecretValue:   in.SecretValue,
				Caption:       in.Caption,
				CaptionVector: in.CaptionVector,
			}
			v.AgentID = in.AgentID
			return v
		},
		func(v *entity.VaultItem, p VaultUpdate) {
			if p.Sensitivity != nil {
				v.Sensitivity = *p.Sensitivity
			}
			if p.SecretValue != nil {
				v.SecretValue = *p.SecretValue
			}
			if p.Caption != nil {
				v.Caption = *p.Caption
			}
		},
		opts...)
}
