// Package helpers provides the shared test environment used by engine
// and server tests: an engine wired to an in-memory store and a
// recording bridge.
package helpers

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/config"
	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/internal/script"
	"github.com/mvoevodskiy/botcms/internal/storage"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

// TestEnv holds all the components needed for engine testing
type TestEnv struct {
	Engine  *engine.Engine
	Scripts *script.Compiler
	Store   *storage.MemoryStore
	Bridge  *MemoryBridge
	Config  *config.Config
}

// NewTestConfig creates a default configuration with debug logging
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestEnv creates a fully configured engine environment with an
// in-memory store and a recording bridge
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	cfg := NewTestConfig()
	scripts := script.New(logger)
	store := storage.NewMemoryStore()

	eng := engine.New(scripts, store, cfg, logger)
	bridge := NewMemoryBridge()
	eng.RegisterBridge(bridge)

	return &TestEnv{
		Engine:  eng,
		Scripts: scripts,
		Store:   store,
		Bridge:  bridge,
		Config:  cfg,
	}
}

// WithTestEnv creates a test environment and executes the provided
// function with it
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	fn(NewTestEnv(t))
}

// LoadScript compiles a YAML script document into the environment
func (e *TestEnv) LoadScript(t *testing.T, doc string) {
	t.Helper()
	require.NoError(t, e.Scripts.LoadYAML([]byte(doc)))
}

// TextUpdate builds an inbound text update from a default user
func TextUpdate(text string) *api.Update {
	return &api.Update{
		Bridge:    BridgeName,
		Chat:      api.Chat{ID: "chat-1", Type: "user"},
		Sender:    api.User{ID: "user-1", Username: "tester"},
		Author:    api.User{ID: "user-1", Username: "tester"},
		MessageID: 11,
		Text:      text,
	}
}

// SelfUpdate builds an update authored by the engine itself, as seen
// when a button on an engine-sent message is pressed
func SelfUpdate(text string) *api.Update {
	upd := TextUpdate(text)
	upd.Author = api.User{ID: api.SelfSender}
	return upd
}

// SessionKey is the store key TextUpdate sessions persist under
const SessionKey = BridgeName + ":chat-1:user-1"

// Session loads the persisted session for the default test user
func (e *TestEnv) Session(t *testing.T) (*api.Session, bool) {
	t.Helper()
	var sess api.Session
	ok, err := e.Store.Get(t.Context(), SessionKey, &sess)
	require.NoError(t, err)
	if !ok {
		return nil, false
	}
	return &sess, true
}
