package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
)

// Collection names, one record per team in each
const (
	CollectionTeams     = "teams"
	CollectionSelection = "selection"
	CollectionPrizes    = "prizes"
	CollectionResults   = "results"
)

// DefaultMaxAttempts bounds optimistic transaction retries when no limit is configured
const DefaultMaxAttempts = 25

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create when the key is taken
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict signals that the record changed between the transaction's read and its commit
	ErrConflict = errors.New("record modified concurrently")
	// ErrTransactionAborted is returned when every transaction attempt hit a conflict
	ErrTransactionAborted = errors.New("transaction aborted")
	// ErrSubscriberLagged ends a subscription whose consumer fell too far behind
	ErrSubscriberLagged = errors.New("subscriber fell behind")
	// ErrFeedLost ends a subscription whose change feed failed without a cause
	ErrFeedLost = errors.New("change feed lost")
)

// ChangeType is the kind of change delivered by a subscription
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"

	// ChangeStopped is the last delivery of a subscription the store ended on its own.
	// Err holds the cause. Unsubscribe and ctx cancellation end quietly.
	ChangeStopped ChangeType = "stopped"
)

// Change is a committed change to a single record. Doc is nil for deletions and stops.
type Change[T any] struct {
	Type ChangeType
	Key  string
	Doc  *T
	Err  error
}

// StoppedChange builds the final delivery of a subscription ended by the store
func StoppedChange[T any](key string, err error) Change[T] {
	if err == nil {
		err = ErrFeedLost
	}
	return Change[T]{Type: ChangeStopped, Key: key, Err: err}
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Collection is a key-addressed document collection. Every mutation is atomic per key;
// nothing is atomic across keys.
type Collection[T any] interface {
	// Read returns the record stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) (*T, error)

	// Write unconditionally stores doc under key, creating the record if needed.
	Write(ctx context.Context, key string, doc *T) error

	// Create stores doc under key only if no record exists, else ErrAlreadyExists.
	Create(ctx context.Context, key string, doc *T) error

	// Transact reads the record, applies fn to a private copy and commits the copy only if
	// the record is unchanged since the read. Revisions are never reused, so a record
	// deleted and written again after the read also counts as changed. On conflict the whole read-apply-commit cycle
	// is retried; once the attempts are exhausted ErrTransactionAborted is returned.
	// An error from fn aborts without retrying and is returned as is.
	// A missing record yields ErrNotFound without calling fn.
	Transact(ctx context.Context, key string, fn func(doc *T) error) (*T, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, key string) error

	// Subscribe delivers committed changes of the record under key to onChange, in commit
	// order, until the returned Unsubscribe is called or ctx is done. If the store ends the
	// subscription itself, onChange receives a final ChangeStopped.
	Subscribe(ctx context.Context, key string, onChange func(Change[T])) (Unsubscribe, error)
}

// TeamRepository holds team rosters
type TeamRepository = Collection[models.Team]

// SelectionRepository holds slot pools
type SelectionRepository = Collection[models.Selection]

// PrizeRepository holds prize pools
type PrizeRepository = Collection[models.Prizes]

// ResultRepository holds allocation results
type ResultRepository = Collection[models.Results]

// Repositories bundles the record collections of the raffle
type Repositories struct {
	Teams      TeamRepository
	Selections SelectionRepository
	Prizes     PrizeRepository
	Results    ResultRepository
}

// IsNotFound reports whether err means the record is missing
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
