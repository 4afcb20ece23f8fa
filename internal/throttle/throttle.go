// Package throttle implements the ephemeral, TTL-windowed failure counter
// keyed by client network address. Entries live for a fixed window measured
// from the most recent write; once the window lapses the entry is gone and
// the count observably resets to zero.
package throttle

import "context"

// Store is the address throttle abstraction. Increment must be atomic with
// respect to the TTL check: concurrent failures for the same address must
// never lose an update, so implementations expose an increment-or-create
// primitive rather than a read-then-write pair.
type Store interface {
	// Count returns the current failure count for an address, 0 if the
	// entry is absent or expired.
	Count(ctx context.Context, address string) (int, error)

	// Increment records a failure: creates the entry with a fresh TTL if
	// absent, otherwise increments the count and refreshes the TTL.
	// Returns the post-increment count.
	Increment(ctx context.Context, address string) (int, error)

	// Clear removes the entry for an address, resetting its count early
	// instead of waiting for the window to lapse.
	Clear(ctx context.Context, address string) error
}
