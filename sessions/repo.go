package sessions

import "context"

// Store persists the single session record of the client. Implementations
// hold no business logic and make no calls to the backend.
type Store interface {
	// Save replaces any stored record. A reader never observes a partial record.
	Save(ctx context.Context, s Session) error

	// Load returns the stored record. Missing, unreadable or corrupt data all
	// report false.
	Load(ctx context.Context) (Session, bool)

	// Clear removes the stored record. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
