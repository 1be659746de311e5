// Package managers instantiates the generic mediators for each concrete
// record type: the six simple entities (organizations, users, clients,
// agents, tools, messages) on the cache-aside base, and the five memory
// kinds (episodic events, semantic items, procedural items, resource items,
// vault items) on the store-only memory base.
//
// Each constructor fixes the entity's cache policy (form, key prefix, TTL
// from the entity package) and its input shapes: a Create struct of the
// settable fields and an Update struct of optional pointers where nil means
// "leave as is". Everything else, scoping, pagination, error taxonomy, is
// the generic base's behavior.
//
// The Memoized* constructors wrap the hot memory kinds in a
// readcache.Memoizer. Vault items never get one.
package managers
