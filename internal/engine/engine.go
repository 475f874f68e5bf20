package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mvoevodskiy/botcms/internal/config"
	"github.com/mvoevodskiy/botcms/internal/engine/predicate"
	"github.com/mvoevodskiy/botcms/internal/script"
	"github.com/mvoevodskiy/botcms/internal/storage"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

type (
	// Engine is the dialogue state machine. Bridges feed it inbound
	// updates; it consults the compiled script tree, executes the
	// resolved steps, and dispatches outbound parcels back through the
	// bridges
	Engine struct {
		logger     *slog.Logger
		cfg        *config.Config
		scripts    *script.Compiler
		store      storage.Store
		callbacks  *storage.CallbackStore
		predicates *predicate.Registry
		locks      *keyedMutex
		lexicon    Lexicon

		mu        sync.RWMutex
		bridges   map[string]Bridge
		methods   map[string]Method
		keyboards map[string]*api.KeyboardRef
	}

	// Bridge is the transport contract a messaging network adapter
	// implements. Send returns the ids of the messages it produced
	Bridge interface {
		Name() string
		Send(ctx context.Context, parcel *api.Parcel) ([]int64, error)
		Remove(ctx context.Context, chatID string, msgIDs []int64) error
		AnswerCallback(ctx context.Context, queryID string, answer any) error
	}

	// Method is a named capability invokable from step actions and
	// validator outcomes
	Method func(ctx context.Context, upd *api.Update, params api.Params) error
)

var (
	ErrBridgeNotFound   = errors.New("bridge not found")
	ErrMethodNotFound   = errors.New("method not found")
	ErrCallbackNotFound = errors.New("callback data not found")
	ErrStepNotFound     = errors.New("step not found")
)

// New creates an engine around a compiled script tree and a key-value
// store
func New(
	scripts *script.Compiler, store storage.Store,
	cfg *config.Config, logger *slog.Logger,
) *Engine {
	return &Engine{
		logger:     logger,
		cfg:        cfg,
		scripts:    scripts,
		store:      store,
		callbacks:  storage.NewCallbackStore(store, cfg.CallbackTTL),
		predicates: predicate.NewRegistry(logger),
		locks:      newKeyedMutex(),
		lexicon:    PassthroughLexicon{},
		bridges:    map[string]Bridge{},
		methods:    map[string]Method{},
		keyboards:  map[string]*api.KeyboardRef{},
	}
}

// Scripts returns the engine's compiled script tree
func (e *Engine) Scripts() *script.Compiler {
	return e.scripts
}

// Predicates returns the trigger predicate registry
func (e *Engine) Predicates() *predicate.Registry {
	return e.predicates
}

// SetLexicon replaces the message text delegate
func (e *Engine) SetLexicon(l Lexicon) {
	e.lexicon = l
}

// RegisterBridge installs a transport adapter under its name
func (e *Engine) RegisterBridge(b Bridge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bridges[b.Name()] = b
}

// Bridge returns the registered transport adapter with the given name
func (e *Engine) Bridge(name string) (Bridge, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bridges[name]
	return b, ok
}

// BridgeNames returns the names of every registered transport adapter
func (e *Engine) BridgeNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.bridges))
	for name := range e.bridges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterMethod installs a named capability. Step actions and
// validator outcomes refer to methods by this name
func (e *Engine) RegisterMethod(name string, fn Method) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.methods[name] = fn
}

// Method returns the capability registered under name
func (e *Engine) Method(name string) (Method, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.methods[name]
	return fn, ok
}

// RegisterKeyboard installs a named keyboard spec that steps can refer
// to instead of declaring one inline
func (e *Engine) RegisterKeyboard(name string, ref *api.KeyboardRef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keyboards[name] = ref
}

func (e *Engine) namedKeyboard(name string) (*api.KeyboardRef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ref, ok := e.keyboards[name]
	return ref, ok
}

// Launch announces readiness per bridge, staggered by the configured
// delay, and sends the optional launch notification parcel
func (e *Engine) Launch(ctx context.Context) {
	e.mu.RLock()
	bridges := make([]Bridge, 0, len(e.bridges))
	for _, b := range e.bridges {
		bridges = append(bridges, b)
	}
	e.mu.RUnlock()

	for i, b := range bridges {
		if i > 0 && e.cfg.LaunchDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.LaunchDelay):
			}
		}
		e.logger.Info("bridge ready", log.Bridge(b.Name()))
		if e.cfg.NotifyBridge != b.Name() || e.cfg.NotifyPeer == "" {
			continue
		}
		_, err := b.Send(ctx, &api.Parcel{
			PeerID:  e.cfg.NotifyPeer,
			Message: e.cfg.NotifyMessage,
		})
		if err != nil {
			e.logger.Error("launch notification failed",
				log.Bridge(b.Name()), log.Error(err))
		}
	}
}
