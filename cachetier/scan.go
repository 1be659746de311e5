package cachetier

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Scan returns a restartable iterator over keys matching pattern. Keys are
// delivered in batches so that large key spaces never block the service.
//
// The iteration is not a stable snapshot: keys written concurrently may be
// delivered more than once or not at all, but a key that exists for the whole
// scan is never dropped.
func (c *Client) Scan(ctx context.Context, pattern string) *ScanIterator {
	return &ScanIterator{client: c, pattern: pattern}
}

// ScanIterator walks a key pattern cursor batch by batch.
type ScanIterator struct {
	client  *Client
	pattern string
	cursor  uint64
	done    bool
	err     error
}

// Next returns the next non-empty batch of keys. It reports false once the
// cursor is exhausted or an error occurred; check Err afterwards.
func (it *ScanIterator) Next(ctx context.Context) ([]string, bool) {
	for !it.done {
		keys, cursor, err := it.client.rdb.Scan(ctx, it.cursor, it.pattern, scanBatchSize).Result()
		if err != nil {
			it.err = it.client.wrap(err, "scan failed", goerr.V("pattern", it.pattern))
			it.done = true
			return nil, false
		}
		it.cursor = cursor
		if cursor == 0 {
			it.done = true
		}
		if len(keys) > 0 {
			return keys, true
		}
	}
	return nil, false
}

// Err returns the first error the iterator hit, if any.
func (it *ScanIterator) Err() error {
	return it.err
}

// Keys drains the iterator and returns all matching keys. Intended for tests
// and small key spaces; production callers should consume batches from Next.
func (it *ScanIterator) Keys(ctx context.Context) ([]string, error) {
	var all []string
	for {
		batch, ok := it.Next(ctx)
		if !ok {
			break
		}
		all = append(all, batch...)
	}
	return all, it.Err()
}
