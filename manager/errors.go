package manager

import "github.com/engramlab/engram/store"

// The mediator error taxonomy. These alias the store sentinels: driver
// failures are classified once (in the delegate implementation), and the
// mediator adds entity and identifier context on the way out. Callers test
// with errors.Is and never see store-implementation-specific shapes.
var (
	ErrNotFound         = store.ErrNotFound
	ErrConflict         = store.ErrConflict
	ErrInvalidReference = store.ErrInvalidReference
)
