package ports

import (
	"context"
	"encoding/json"

	"github.com/nexusplan/core/internal/domain/entities"
)

// Medium is the synchronous key-value persistence layer shared by every
// process of the same user. Values are serialized collection arrays.
type Medium interface {
	// Get returns the stored value for key, with ok reporting presence.
	Get(key string) (value string, ok bool, err error)
	// Set overwrites the value for key and records this process as the
	// medium's last writer.
	Set(key, value string) error
	// Delete removes the key if present.
	Delete(key string) error
	// LastWrite identifies the most recent write to the medium: the writer
	// process id and the key it wrote. Used by the cross-process watcher to
	// suppress self-echo.
	LastWrite() (writerID, key string, err error)
	Close() error
}

// UserRepository manages cloud sync accounts.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// RemoteDataRepository is the per-user remote document store. Each document
// is addressed by (user id, short collection name) and holds the full
// serialized collection plus a server-stamped update time.
type RemoteDataRepository interface {
	// Upsert merges the document into the user's data set, overwriting
	// content and stamping updated_at server-side. Other documents of the
	// user are untouched.
	Upsert(ctx context.Context, userID, doc string, content json.RawMessage) error
	// Get returns the document content, or entities.ErrDocNotFound.
	Get(ctx context.Context, userID, doc string) (json.RawMessage, error)
	// List returns all documents of the user keyed by short name.
	List(ctx context.Context, userID string) (map[string]json.RawMessage, error)
	// Subscribe opens a standing push subscription for changes to the
	// user's documents. fn is invoked with the short document name of each
	// changed document until the subscription is closed.
	Subscribe(userID string, fn func(doc string)) (RemoteSubscription, error)
}

// RemoteSubscription is a standing inbound change feed.
type RemoteSubscription interface {
	Close() error
}
