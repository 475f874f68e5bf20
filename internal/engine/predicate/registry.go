// Package predicate implements the pluggable trigger and validator
// predicates consulted by the dialogue engine. Each trigger type names
// one predicate; evaluation is ordered and first-match-wins.
package predicate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

type (
	// Func tests one declared trigger value against an inbound update
	Func func(ctx context.Context, upd *api.Update, value string) (bool, error)

	// Registry maps trigger type names to predicate implementations
	Registry struct {
		logger *slog.Logger

		mu    sync.RWMutex
		preds map[api.TriggerType]Func
	}
)

var ErrPredicateNotFound = errors.New("predicate not found")

// NewRegistry creates a registry preloaded with the built-in predicate
// types plus the lua and expr scripted ones
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		logger: logger,
		preds:  map[api.TriggerType]Func{},
	}
	registerBuiltins(r)
	r.Register(api.TriggerLua, NewLuaEnv().Predicate())
	r.Register(api.TriggerExpr, newExprEnv().predicate())
	return r
}

// Register installs or replaces the predicate for a trigger type
func (r *Registry) Register(typ api.TriggerType, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[typ] = fn
}

// Get returns the predicate registered for a trigger type. An empty
// type resolves to the default text predicate
func (r *Registry) Get(typ api.TriggerType) (Func, error) {
	if typ == "" {
		typ = api.TriggerText
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.preds[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPredicateNotFound, typ)
	}
	return fn, nil
}

// Match evaluates normalized triggers against an update in declared
// order, returning true on the first positive match. An unknown
// trigger type or a failing predicate is logged and counts as no match
func (r *Registry) Match(
	ctx context.Context, upd *api.Update, triggers []api.Trigger,
) bool {
	for _, t := range triggers {
		fn, err := r.Get(t.Type)
		if err != nil {
			r.logger.Warn("unknown trigger type",
				slog.String("type", string(t.Type)))
			continue
		}
		for _, value := range t.Value {
			ok, err := fn(ctx, upd, value)
			if err != nil {
				r.logger.Warn("trigger predicate failed",
					slog.String("type", string(t.Type)),
					slog.String("error", err.Error()))
				continue
			}
			if ok {
				return true
			}
		}
	}
	return false
}

// Check evaluates a named validator predicate against an update. The
// declared values come from the validate spec's params; with none
// declared the predicate sees one empty value
func (r *Registry) Check(
	ctx context.Context, upd *api.Update, name string, values []string,
) (bool, error) {
	fn, err := r.Get(api.TriggerType(name))
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		values = []string{""}
	}
	for _, value := range values {
		ok, err := fn(ctx, upd, value)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
