package manager

import "time"

// Actor identifies the calling principal. Every operation against a
// multi-tenant entity is scoped by the actor's organization unless the
// entity itself is tenant-agnostic. A nil *Actor means an unscoped call.
type Actor struct {
	ID             string
	OrganizationID string
	UserID         string
	Permissions    []string
}

// actorID tolerates nil actors.
func (a *Actor) actorID() string {
	if a == nil {
		return ""
	}
	return a.ID
}

// organizationID tolerates nil actors.
func (a *Actor) organizationID() string {
	if a == nil {
		return ""
	}
	return a.OrganizationID
}

// Record is the surface every mediated record exposes: identifier, tenant
// scope, soft-delete flag, and bookkeeping stamps. entity.Base implements it.
type Record interface {
	GetID() string
	SetID(string)
	GetOrganizationID() string
	SetOrganizationID(string)
	GetDeleted() bool
	SetDeleted(bool)
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
	StampCreated(actorID string, at time.Time)
	StampUpdated(actorID string, at time.Time)
}

// RecordPtr constrains a manager's record pointer type: *T implementing
// Record.
type RecordPtr[T any] interface {
	*T
	Record
}

// MemoryRecord extends Record with the owning-agent scope carried by the
// memory-record kinds. entity.MemoryBase implements it.
type MemoryRecord interface {
	Record
	GetAgentID() string
	SetAgentID(string)
}

// MemoryRecordPtr constrains a memory manager's record pointer type.
type MemoryRecordPtr[T any] interface {
	*T
	MemoryRecord
}

// sortValue reads the sort key of a record for cursor resolution.
func sortValue(rec Record, field string) time.Time {
	if field == SortFieldUpdatedAt {
		return rec.GetUpdatedAt()
	}
	return rec.GetCreatedAt()
}
