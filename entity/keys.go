package entity

import "time"

// Entity type names, used in TTL policy lookups and error context.
const (
	TypeOrganization = "organization"
	TypeUser         = "user"
	TypeClient       = "client"
	TypeAgent        = "agent"
	TypeTool         = "tool"
	TypeMessage      = "message"
	TypeEpisodic     = "episodic_event"
	TypeSemantic     = "semantic_item"
	TypeProcedural   = "procedural_item"
	TypeResource     = "resource_item"
	TypeVault        = "vault_item"
)

// Cache key prefixes: one flat prefix per simple entity type and one
// document prefix per memory-record kind. Keys are "<prefix><identifier>".
const (
	KeyPrefixOrganization = "org:"
	KeyPrefixUser         = "user:"
	KeyPrefixClient       = "client:"
	KeyPrefixAgent        = "agent:"
	KeyPrefixTool         = "tool:"
	KeyPrefixMessage      = "msg:"
	KeyPrefixEpisodic     = "mem:epi:"
	KeyPrefixSemantic     = "mem:sem:"
	KeyPrefixProcedural   = "mem:proc:"
	KeyPrefixResource     = "mem:res:"
	KeyPrefixVault        = "mem:vault:"
)

// TTLPolicy maps entity type names to the cache lifetime of their entries.
// An entity type with no entry is never written to the cache (bypass, not an
// error); vault items are deliberately absent.
var TTLPolicy = map[string]time.Duration{
	TypeOrganization: time.Hour,
	TypeUser:         time.Hour,
	TypeClient:       time.Hour,
	TypeAgent:        30 * time.Minute,
	TypeTool:         30 * time.Minute,
	TypeMessage:      10 * time.Minute,
	TypeEpisodic:     5 * time.Minute,
	TypeSemantic:     5 * time.Minute,
	TypeProcedural:   5 * time.Minute,
	TypeResource:     5 * time.Minute,
}

// TTLFor returns the configured lifetime for an entity type, or zero when
// the type is not cached.
func TTLFor(entityType string) time.Duration {
	return TTLPolicy[entityType]
}
