package managers

import (
	"context"
	"time"

	"github.com/engramlab/engram/cachetier"
	"github.com/engramlab/engram/entity"
	"github.com/engramlab/engram/manager"
	"github.com/engramlab/engram/store"
)

// flatConfig builds the standard cache-aside configuration for a simple
// entity type: flat cache form, prefix and TTL from the entity policy.
func flatConfig(entityType, prefix string) manager.Config {
	return manager.Config{
		EntityType:   entityType,
		CacheEnabled: true,
		CachePrefix:  prefix,
		CacheTTL:     entity.TTLFor(entityType),
		CacheForm:    manager.FormFlat,
	}
}

// OrganizationCreate is the input for creating a tenant.
type OrganizationCreate struct {
	Name    string
	Credits float64
}

// OrganizationUpdate patches a tenant. Nil fields are left untouched.
type OrganizationUpdate struct {
	Name    *string
	Credits *float64
}

// OrganizationManager mediates the tenant entity. It is the one manager that
// ignores actor tenant scoping: organizations are the tenants.
type OrganizationManager = manager.BaseManager[entity.Organization, *entity.Organization, OrganizationCreate, OrganizationUpdate]

// NewOrganizations builds the tenant manager.
func NewOrganizations(delegate store.Delegate[entity.Organization], cache *cachetier.Client, opts ...manager.Option) (*OrganizationManager, error) {
	cfg := flatConfig(entity.TypeOrganization, entity.KeyPrefixOrganization)
	cfg.TenantAgnostic = true
	return manager.NewBase[entity.Organization, *entity.Organization, OrganizationCreate, OrganizationUpdate](
		cfg, delegate, cache,
		func(in OrganizationCreate) *entity.Organization {
			return &entity.Organization{Name: in.Name, Credits: in.Credits}
		},
		func(o *entity.Organization, p OrganizationUpdate) {
			if p.Name != nil {
				o.Name = *p.Name
			}
			if p.Credits != nil {
				o.Credits = *p.Credits
			}
		},
		opts...)
}

// UserCreate is the input for creating a user account.
type UserCreate struct {
	Name     string
	Email    string
	Timezone string
	Status   string
}

// UserUpdate patches a user. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Timezone *string
	Status   *string
}

type UserManager = manager.BaseManager[entity.User, *entity.User, UserCreate, UserUpdate]

// NewUsers builds the user manager.
func NewUsers(delegate store.Delegate[entity.User], cache *cachetier.Client, opts ...manager.Option) (*UserManager, error) {
	return manager.NewBase[entity.User, *entity.User, UserCreate, UserUpdate](
		flatConfig(entity.TypeUser, entity.KeyPrefixUser), delegate, cache,
		func(in UserCreate) *entity.User {
			return &entity.User{Name: in.Name, Email: in.Email, Timezone: in.Timezone, Status: in.Status}
		},
		func(u *entity.User, p UserUpdate) {
			if p.Name != nil {
				u.Name = *p.Name
			}
			if p.Email != nil {
				u.Email = *p.Email
			}
			if p.Timezone != nil {
				u.Timezone = *p.Timezone
			}
			if p.Status != nil {
				u.Status = *p.Status
			}
		},
		opts...)
}

// ClientCreate is the input for registering a client application.
type ClientCreate struct {
	Name     string
	Platform string
	UserID   string
}

// ClientUpdate patches a client application. Nil fields are left untouched.
type ClientUpdate struct {
	Name     *string
	Platform *string
}

type ClientManager = manager.BaseManager[entity.Client, *entity.Client, ClientCreate, ClientUpdate]

// NewClients builds the client-application manager.
func NewClients(delegate store.Delegate[entity.Client], cache *cachetier.Client, opts ...manager.Option) (*ClientManager, error) {
	return manager.NewBase[entity.Client, *entity.Client, ClientCreate, ClientUpdate](
		flatConfig(entity.TypeClient, entity.KeyPrefixClient), delegate, cache,
		func(in ClientCreate) *entity.Client {
			return &entity.Client{Name: in.Name, Platform: in.Platform, UserID: in.UserID}
		},
		func(c *entity.Client, p ClientUpdate) {
			if p.Name != nil {
				c.Name = *p.Name
			}
			if p.Platform != nil {
				c.Platform = *p.Platform
			}
		},
		opts...)
}

// AgentCreate is the input for creating an agent.
type AgentCreate struct {
	Name         string
	AgentType    string
	Model        string
	SystemPrompt string
	Metadata     map[string]any
}

// AgentUpdate patches an agent. Nil fields are left untouched; a non-nil
// Metadata replaces the whole map.
type AgentUpdate struct {
	Name         *string
	Model        *string
	SystemPrompt *string
	Metadata     map[string]any
}

type AgentManager = manager.BaseManager[entity.Agent, *entity.Agent, AgentCreate, AgentUpdate]

// NewAgents builds the agent manager.
func NewAgents(delegate store.Delegate[entity.Agent], cache *cachetier.Client, opts ...manager.Option) (*AgentManager, error) {
	return manager.NewBase[entity.Agent, *entity.Agent, AgentCreate, AgentUpdate](
		flatConfig(entity.TypeAgent, entity.KeyPrefixAgent), delegate, cache,
		func(in AgentCreate) *entity.Agent {
			return &entity.Agent{
				Name:         in.Name,
				AgentType:    in.AgentType,
				Model:        in.Model,
				SystemPrompt: in.SystemPrompt,
				Metadata:     in.Metadata,
			}
		},
		func(a *entity.Agent, p AgentUpdate) {
			if p.Name != nil {
				a.Name = *p.Name
			}
			if p.Model != nil {
				a.Model = *p.Model
			}
			if p.SystemPrompt != nil {
				a.SystemPrompt = *p.SystemPrompt
			}
			if p.Metadata != nil {
				a.Metadata = p.Metadata
			}
		},
		opts...)
}

// ToolCreate is the input for registering a tool.
type ToolCreate struct {
	Name        string
	Description string
	SourceType  string
	Schema      map[string]any
	Tags        []string
}

// ToolUpdate patches a tool. Nil fields are left untouched.
type ToolUpdate struct {
	Description *string
	Schema      map[string]any
	Tags        []string
}

type ToolManager = manager.BaseManager[entity.Tool, *entity.Tool, ToolCreate, ToolUpdate]

// NewTools builds the tool manager.
func NewTools(delegate store.Delegate[entity.Tool], cache *cachetier.Client, opts ...manager.Option) (*ToolManager, error) {
	return manager.NewBase[entity.Tool, *entity.Tool, ToolCreate, ToolUpdate](
		flatConfig(entity.TypeTool, entity.KeyPrefixTool), delegate, cache,
		func(in ToolCreate) *entity.Tool {
			return &entity.Tool{
				Name:        in.Name,
				Description: in.Description,
				SourceType:  in.SourceType,
				Schema:      in.Schema,
				Tags:        in.Tags,
			}
		},
		func(t *entity.Tool, p ToolUpdate) {
			if p.Description != nil {
				t.Description = *p.Description
			}
			if p.Schema != nil {
				t.Schema = p.Schema
			}
			if p.Tags != nil {
				t.Tags = p.Tags
			}
		},
		opts...)
}

// MessageCreate is the input for recording a conversational turn.
type MessageCreate struct {
	AgentID    string
	UserID     string
	Role       string
	Content    string
	Model      string
	ToolCallID string
}

// MessageUpdate patches a message. Nil fields are left untouched.
type MessageUpdate struct {
	Content *string
	ReadAt  *time.Time
}

type MessageManager = manager.BaseManager[entity.Message, *entity.Message, MessageCreate, MessageUpdate]

// NewMessages builds the message manager.
func NewMessages(delegate store.Delegate[entity.Message], cache *cachetier.Client, opts ...manager.Option) (*MessageManager, error) {
	return manager.NewBase[entity.Message, *entity.Message, MessageCreate, MessageUpdate](
		flatConfig(entity.TypeMessage, entity.KeyPrefixMessage), delegate, cache,
		func(in MessageCreate) *entity.Message {
			return &entity.Message{
				AgentID:    in.AgentID,
				UserID:     in.UserID,
				Role:       in.Role,
				Content:    in.Content,
				Model:      in.Model,
				ToolCallID: in.ToolCallID,
			}
		},
		func(m *entity.Message, p MessageUpdate) {
			if p.Content != nil {
				m.Content = *p.Content
			}
			if p.ReadAt != nil {
				m.ReadAt = p.ReadAt
			}
		},
		opts...)
}

// ListAgentMessages lists one agent's conversation turns on top of the
// actor's tenant scope. Pagination and ordering follow opts.
func ListAgentMessages(ctx context.Context, m *MessageManager, actor *manager.Actor, agentID string, opts *manager.ListOptions) (*manager.Page[*entity.Message], error) {
	var o manager.ListOptions
	if opts != nil {
		o = *opts
	}
	o.Filters = append(o.Filters, store.FieldEquals{Column: "agent_id", Value: agentID})
	return m.List(ctx, actor, &o)
}
