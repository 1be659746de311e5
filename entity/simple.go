package entity

import "time"

// The simple entity types below use the flat cache form: no nested structure
// beyond small JSON-encoded maps, and no vector payloads.

// Organization is the tenant. It is the one entity read and written without
// tenant scoping.
type Organization struct {
	Base
	Name    string  `bun:"name,unique,notnull" json:"name"`
	Credits float64 `bun:"credits" json:"credits"`
}

// User is an account inside an organization.
type User struct {
	Base
	Name     string `bun:"name,notnull" json:"name"`
	Email    string `bun:"email" json:"email,omitempty"`
	Timezone string `bun:"timezone" json:"timezone,omitempty"`
	Status   string `bun:"status" json:"status,omitempty"`
}

// Client is a registered client application (API consumer) of a tenant.
type Client struct {
	Base
	Name     string `bun:"name,notnull" json:"name"`
	Platform string `bun:"platform" json:"platform,omitempty"`
	UserID   string `bun:"user_id" json:"user_id,omitempty"`
}

// Agent is a conversational agent owned by a tenant.
type Agent struct {
	Base
	Name         string         `bun:"name,notnull" json:"name"`
	AgentType    string         `bun:"agent_type" json:"agent_type,omitempty"`
	Model        string         `bun:"model" json:"model,omitempty"`
	SystemPrompt string         `bun:"system_prompt" json:"system_prompt,omitempty"`
	Metadata     map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
}

// Tool is a callable tool definition available to agents.
type Tool struct {
	Base
	Name        string         `bun:"name,notnull" json:"name"`
	Description string         `bun:"description" json:"description,omitempty"`
	SourceType  string         `bun:"source_type" json:"source_type,omitempty"`
	Schema      map[string]any `bun:"schema,type:jsonb" json:"schema,omitempty"`
	Tags        []string       `bun:"tags,type:jsonb" json:"tags,omitempty"`
}

// Message is one conversational turn between a user and an agent.
type Message struct {
	Base
	AgentID    string     `bun:"agent_id,notnull" json:"agent_id"`
	UserID     string     `bun:"user_id" json:"user_id,omitempty"`
	Role       string     `bun:"role,notnull" json:"role"`
	Content    string     `bun:"content" json:"content,omitempty"`
	Model      string     `bun:"model" json:"model,omitempty"`
	ToolCallID string     `bun:"tool_call_id" json:"tool_call_id,omitempty"`
	ReadAt     *time.Time `bun:"read_at" json:"read_at,omitempty"`
}

func (m *Message) GetAgentID() string { return m.AgentID }
