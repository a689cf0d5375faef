// Package app wires authentication, storage and the session engine into a
// per-user runtime. When the signed-in user changes, the previous engine is
// flushed and torn down and a new one is loaded against that user's
// namespaced store. While signed out there is no engine and nothing is
// persisted.
package app

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/earthchat/earth/pkg/attachments"
	"github.com/earthchat/earth/pkg/auth"
	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/session"
	"github.com/earthchat/earth/pkg/store"
)

// Runtime reacts to auth changes by building and tearing down per-user
// session engines.
type Runtime struct {
	mu          sync.Mutex
	kv          store.KV
	repo        attachments.Repository
	backend     backend.Backend
	engineOpts  []session.Option
	userID      string
	engine      *session.Engine
	unsubscribe func()
}

type RuntimeOption func(*Runtime)

// WithEngineOptions passes extra options to every engine the runtime builds.
func WithEngineOptions(options ...session.Option) RuntimeOption {
	return func(r *Runtime) {
		r.engineOpts = options
	}
}

func NewRuntime(b backend.Backend, kv store.KV, repo attachments.Repository, options ...RuntimeOption) *Runtime {
	ret := &Runtime{
		kv:      kv,
		repo:    repo,
		backend: b,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Start subscribes to the auth provider. The provider fires synchronously
// with the current state, so when Start returns the runtime already reflects
// the signed-in user.
func (r *Runtime) Start(provider auth.Provider) error {
	unsub, err := provider.Subscribe(func(userID string) {
		r.switchUser(userID)
	})
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to auth provider")
	}
	r.mu.Lock()
	r.unsubscribe = unsub
	r.mu.Unlock()
	return nil
}

func (r *Runtime) switchUser(userID string) {
	r.mu.Lock()
	if userID == r.userID && r.engine != nil {
		r.mu.Unlock()
		return
	}
	old := r.engine
	r.engine = nil
	r.userID = userID
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if userID == "" {
		log.Info().Msg("signed out, session engine released")
		return
	}

	var opts []session.Option
	cs, err := store.NewConversationStore(r.kv, userID)
	if err != nil {
		log.Warn().Err(err).Msg("could not open conversation store, running without persistence")
	} else {
		opts = append(opts, session.WithStore(cs))
	}
	if r.repo != nil {
		opts = append(opts, session.WithRepository(r.repo))
	}
	opts = append(opts, r.engineOpts...)

	e := session.New(r.backend, opts...)
	e.Load(context.Background())

	r.mu.Lock()
	// the user may have changed again while we were loading
	if r.userID != userID {
		r.mu.Unlock()
		e.Close()
		return
	}
	r.engine = e
	r.mu.Unlock()
	log.Info().Str("user_id", userID).Msg("session engine ready")
}

// Engine returns the engine for the signed-in user, or nil while signed out.
func (r *Runtime) Engine() *session.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

// UserID returns the signed-in user id, or "" while signed out.
func (r *Runtime) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Close unsubscribes from auth changes and tears down the current engine.
func (r *Runtime) Close() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	engine := r.engine
	r.engine = nil
	r.userID = ""
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if engine != nil {
		engine.Close()
	}
}
