package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// notifyChannel is raised by the user_data trigger on every insert/update.
const notifyChannel = "user_data_changed"

// RemoteDataRepositoryImpl stores one document per (user, collection) in the
// user_data table. Content is kept as text, byte-for-byte as pushed, so the
// bridge's serialized-equality check survives the round-trip.
type RemoteDataRepositoryImpl struct {
	db     *sqlx.DB
	dsn    string
	logger *logger.Logger
}

// NewRemoteDataRepository creates a new remote data repository. dsn is
// needed separately because LISTEN/NOTIFY requires a dedicated connection.
func NewRemoteDataRepository(db *sqlx.DB, dsn string, log *logger.Logger) *RemoteDataRepositoryImpl {
	return &RemoteDataRepositoryImpl{
		db:     db,
		dsn:    dsn,
		logger: log.WithComponent("repository.remote"),
	}
}

// Upsert merges the document into the user's data set: content is
// overwritten, updated_at is stamped server-side, and no other document of
// the user is touched.
func (r *RemoteDataRepositoryImpl) Upsert(ctx context.Context, userID, doc string, content json.RawMessage) error {
	query := `
		INSERT INTO user_data (user_id, doc, content, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, doc) DO UPDATE
		SET content = excluded.content, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, userID, doc, string(content)); err != nil {
		return fmt.Errorf("upsert user data: %w", err)
	}
	return nil
}

func (r *RemoteDataRepositoryImpl) Get(ctx context.Context, userID, doc string) (json.RawMessage, error) {
	var content string
	query := `SELECT content FROM user_data WHERE user_id = $1 AND doc = $2`

	err := r.db.GetContext(ctx, &content, query, userID, doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrDocNotFound
		}
		return nil, fmt.Errorf("get user data: %w", err)
	}
	return json.RawMessage(content), nil
}

func (r *RemoteDataRepositoryImpl) List(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	rows := []struct {
		Doc     string `db:"doc"`
		Content string `db:"content"`
	}{}

	query := `SELECT doc, content FROM user_data WHERE user_id = $1`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list user data: %w", err)
	}

	docs := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		docs[row.Doc] = json.RawMessage(row.Content)
	}
	return docs, nil
}

// notifyPayload is the trigger's JSON payload.
type notifyPayload struct {
	UserID string `json:"user_id"`
	Doc    string `json:"doc"`
}

// Subscribe opens a standing LISTEN on the user_data change channel and
// invokes fn with the document name of every change belonging to userID.
// The listener's transport reconnects on its own; the repository adds no
// retry logic beyond that.
func (r *RemoteDataRepositoryImpl) Subscribe(userID string, fn func(doc string)) (ports.RemoteSubscription, error) {
	listener := pq.NewListener(r.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warnw("Remote listener event", "event", ev, "error", err)
		}
	})

	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", notifyChannel, err)
	}

	sub := &remoteSubscription{
		listener: listener,
		done:     make(chan struct{}),
	}

	go func() {
		for {
			select {
			case n := <-listener.Notify:
				if n == nil {
					// nil marks a reconnection; changes made while
					// disconnected are not replayed.
					continue
				}
				var payload notifyPayload
				if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
					r.logger.Warnw("Malformed change notification", "payload", n.Extra, "error", err)
					continue
				}
				if payload.UserID != userID {
					continue
				}
				fn(payload.Doc)
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

type remoteSubscription struct {
	listener *pq.Listener
	done     chan struct{}
}

func (s *remoteSubscription) Close() error {
	close(s.done)
	return s.listener.Close()
}

var _ ports.RemoteDataRepository = (*RemoteDataRepositoryImpl)(nil)
