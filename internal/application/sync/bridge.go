// Package sync implements the bridge between the local store and the
// per-user remote document store. Outbound propagation is best-effort and
// fire-and-forget; inbound changes arrive over a standing subscription and
// are applied only when they differ from the local value.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nexusplan/core/internal/application/store"
	"github.com/nexusplan/core/internal/domain/entities"
	"github.com/nexusplan/core/internal/infrastructure/config"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/ports"
)

// Bridge propagates collection writes to and from the remote store. At most
// one subscription is active at a time; session transitions tear the old one
// down before establishing a new one.
type Bridge struct {
	store  *store.Store
	repo   ports.RemoteDataRepository
	cfg    config.SyncConfig
	logger *logger.Logger

	mu     sync.Mutex
	userID string
	sub    ports.RemoteSubscription

	pushes         atomic.Uint64
	pushFailures   atomic.Uint64
	inboundApplied atomic.Uint64
	inboundSkipped atomic.Uint64
}

// New creates a bridge. Callers attach it to the store with
// store.SetPropagator so local writes reach Push.
func New(st *store.Store, repo ports.RemoteDataRepository, cfg config.SyncConfig, log *logger.Logger) *Bridge {
	return &Bridge{
		store:  st,
		repo:   repo,
		cfg:    cfg,
		logger: log.WithComponent("sync"),
	}
}

// Push propagates a locally written collection value to the remote store.
// Without an authenticated session it is a no-op. Under the best-effort
// policy the upsert runs asynchronously, is never retried, never times out
// and never blocks or fails the local write that triggered it. Every local
// write produces one push; there is no debouncing.
func (b *Bridge) Push(collection entities.Collection, content json.RawMessage) {
	b.mu.Lock()
	userID := b.userID
	b.mu.Unlock()
	if userID == "" {
		return
	}

	doc := string(collection)
	upsert := func() {
		b.pushes.Add(1)
		if err := b.repo.Upsert(context.Background(), userID, doc, content); err != nil {
			b.pushFailures.Add(1)
			b.logger.LogSyncFailure("outbound", doc, err)
		}
	}

	if b.cfg.BestEffort {
		go upsert()
	} else {
		upsert()
	}
}

// HandleAuthChange reacts to session transitions. An empty userID means
// signed out. The previous subscription, if any, is closed before a new one
// is opened; on sign-in the user's remote documents are pulled once so local
// state catches up before push notifications take over.
func (b *Bridge) HandleAuthChange(userID string) {
	b.mu.Lock()
	if b.sub != nil {
		if err := b.sub.Close(); err != nil {
			b.logger.Warnw("Failed to close remote subscription", "error", err)
		}
		b.sub = nil
	}
	b.userID = userID

	if userID == "" {
		b.mu.Unlock()
		b.logger.Infow("Cloud sync stopped")
		return
	}

	sub, err := b.repo.Subscribe(userID, b.onRemoteChange)
	if err != nil {
		b.mu.Unlock()
		// No reconnect or backoff here: sync stays off until the next
		// session transition.
		b.logger.LogSyncFailure("subscribe", "", err)
		return
	}
	b.sub = sub
	b.mu.Unlock()
	b.logger.Infow("Cloud sync started", "user_id", userID)

	// Initial pull so local state catches up before push notifications
	// take over. Runs outside the lock: applying content broadcasts
	// synchronously and listeners may write.
	docs, err := b.repo.List(context.Background(), userID)
	if err != nil {
		b.logger.LogSyncFailure("initial-pull", "", err)
		return
	}
	for doc, content := range docs {
		b.applyContent(doc, content)
	}
}

// onRemoteChange handles one push notification for a changed document.
func (b *Bridge) onRemoteChange(doc string) {
	b.mu.Lock()
	userID := b.userID
	b.mu.Unlock()
	if userID == "" {
		return
	}

	content, err := b.repo.Get(context.Background(), userID, doc)
	if err != nil {
		if !errors.Is(err, entities.ErrDocNotFound) {
			b.logger.LogSyncFailure("inbound", doc, err)
		}
		return
	}
	b.applyContent(doc, content)
}

// applyContent overwrites the local collection with remote content unless
// the serialized values already match. The equality check is what breaks the
// echo cycle when our own outbound write round-trips back.
func (b *Bridge) applyContent(doc string, content json.RawMessage) {
	collection, ok := entities.CollectionFromDoc(doc)
	if !ok {
		b.logger.Debugw("Ignoring unknown remote document", "doc", doc)
		return
	}

	local, present := b.store.Current(collection)
	if present && equalSerialized(local, content) {
		b.inboundSkipped.Add(1)
		return
	}

	if err := b.store.ApplyRemote(collection, content); err != nil {
		b.logger.LogSyncFailure("inbound", doc, err)
		return
	}
	b.inboundApplied.Add(1)
	b.logger.Infow("Cloud update applied", "collection", collection)
}

// Close tears down any active subscription.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userID = ""
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}

// equalSerialized compares two serialized values, tolerating formatting
// differences introduced by storage round-trips.
func equalSerialized(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Stats reports sync counters for metrics exposure.
type Stats struct {
	Pushes         uint64
	PushFailures   uint64
	InboundApplied uint64
	InboundSkipped uint64
}

// Stats returns a snapshot of the bridge's counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Pushes:         b.pushes.Load(),
		PushFailures:   b.pushFailures.Load(),
		InboundApplied: b.inboundApplied.Load(),
		InboundSkipped: b.inboundSkipped.Load(),
	}
}
