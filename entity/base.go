// Package entity defines the domain record types stored through the
// mediators, the shared bookkeeping fields every record carries, and the
// process-wide cache key prefixes and TTL policy.
package entity

import "time"

// Base carries the bookkeeping fields common to every record: identifier,
// tenant scope, soft-delete flag, timestamps, and last-modifying actors.
// Embed it as the first field of a record type.
type Base struct {
	ID              string    `bun:"id,pk" json:"id"`
	OrganizationID  string    `bun:"organization_id" json:"organization_id,omitempty"`
	IsDeleted       bool      `bun:"is_deleted" json:"is_deleted"`
	CreatedAt       time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at" json:"updated_at"`
	CreatedByID     string    `bun:"created_by_id" json:"created_by_id,omitempty"`
	LastUpdatedByID string    `bun:"last_updated_by_id" json:"last_updated_by_id,omitempty"`
}

func (b *Base) GetID() string              { return b.ID }
func (b *Base) SetID(id string)            { b.ID = id }
func (b *Base) GetOrganizationID() string  { return b.OrganizationID }
func (b *Base) SetOrganizationID(v string) { b.OrganizationID = v }
func (b *Base) GetDeleted() bool           { return b.IsDeleted }
func (b *Base) SetDeleted(v bool)          { b.IsDeleted = v }
func (b *Base) GetCreatedAt() time.Time    { return b.CreatedAt }
func (b *Base) GetUpdatedAt() time.Time    { return b.UpdatedAt }

// StampCreated records creation bookkeeping. An empty actor id is allowed
// for tenant-agnostic operations.
func (b *Base) StampCreated(actorID string, at time.Time) {
	b.CreatedAt = at
	b.UpdatedAt = at
	if actorID != "" {
		b.CreatedByID = actorID
		b.LastUpdatedByID = actorID
	}
}

// StampUpdated records modification bookkeeping.
func (b *Base) StampUpdated(actorID string, at time.Time) {
	b.UpdatedAt = at
	if actorID != "" {
		b.LastUpdatedByID = actorID
	}
}

// MemoryBase extends Base with the owning-agent scope every memory-record
// kind carries.
type MemoryBase struct {
	Base
	AgentID string `bun:"agent_id" json:"agent_id,omitempty"`
}

func (m *MemoryBase) GetAgentID() string  { return m.AgentID }
func (m *MemoryBase) SetAgentID(v string) { m.AgentID = v }
