package predicate_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/engine/predicate"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

func newRegistry() *predicate.Registry {
	return predicate.NewRegistry(slog.New(slog.DiscardHandler))
}

func update(text string) *api.Update {
	return &api.Update{
		Bridge: "memory",
		Text:   text,
		Chat:   api.Chat{ID: "chat-1", Type: "user"},
		Sender: api.User{ID: "user-1", Username: "tester"},
	}
}

func TestBuiltinPredicates(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	tests := []struct {
		name     string
		triggers []api.Trigger
		text     string
		expect   bool
	}{
		{"text match", []api.Trigger{
			{Value: []string{"hello"}},
		}, "hello", true},
		{"text mismatch", []api.Trigger{
			{Value: []string{"hello"}},
		}, "hi", false},
		{"contains", []api.Trigger{
			{Type: api.TriggerContains, Value: []string{"ell"}},
		}, "hello", true},
		{"prefix", []api.Trigger{
			{Type: api.TriggerPrefix, Value: []string{"/start"}},
		}, "/start now", true},
		{"regexp", []api.Trigger{
			{Type: api.TriggerRegexp, Value: []string{`^\d+$`}},
		}, "42", true},
		{"second value wins", []api.Trigger{
			{Value: []string{"one", "two"}},
		}, "two", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Match(ctx, update(tt.text), tt.triggers)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestEventPredicate(t *testing.T) {
	r := newRegistry()
	upd := update("")
	upd.Event = api.EventChatJoin

	ok := r.Match(context.Background(), upd, []api.Trigger{
		{Type: api.TriggerEvent, Value: []string{api.EventChatJoin}},
	})
	assert.True(t, ok)
}

func TestMatchOrderSensitive(t *testing.T) {
	// both triggers match; the first declared must win either way
	r := newRegistry()
	ctx := context.Background()
	upd := update("/start now")

	first := api.Trigger{
		Type: api.TriggerPrefix, Value: []string{"/start"},
	}
	second := api.Trigger{
		Type: api.TriggerContains, Value: []string{"now"},
	}

	calls := make([]api.TriggerType, 0, 2)
	for _, typ := range []api.TriggerType{"spyA", "spyB"} {
		typ := typ
		r.Register(typ, func(context.Context, *api.Update, string) (bool, error) {
			calls = append(calls, typ)
			return true, nil
		})
	}

	assert.True(t, r.Match(ctx, upd, []api.Trigger{
		{Type: "spyA", Value: []string{"x"}},
		{Type: "spyB", Value: []string{"x"}},
	}))
	assert.Equal(t, []api.TriggerType{"spyA"}, calls)

	calls = calls[:0]
	assert.True(t, r.Match(ctx, upd, []api.Trigger{
		{Type: "spyB", Value: []string{"x"}},
		{Type: "spyA", Value: []string{"x"}},
	}))
	assert.Equal(t, []api.TriggerType{"spyB"}, calls)

	assert.True(t, r.Match(ctx, upd, []api.Trigger{first, second}))
}

func TestMatchUnknownType(t *testing.T) {
	r := newRegistry()
	ok := r.Match(context.Background(), update("hello"), []api.Trigger{
		{Type: "bogus", Value: []string{"hello"}},
	})
	assert.False(t, ok)
}

func TestCheckValidators(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	ok, err := r.Check(ctx, update("anything"), predicate.ValidatorNone, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Check(ctx, update("  "), predicate.ValidatorNonEmpty, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Check(ctx, update("42"),
		string(api.TriggerRegexp), []string{`^\d+$`})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.Check(ctx, update("x"), "bogus", nil)
	assert.ErrorIs(t, err, predicate.ErrPredicateNotFound)
}

func TestLuaPredicate(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	ok := r.Match(ctx, update("hello"), []api.Trigger{
		{Type: api.TriggerLua, Value: []string{`text == "hello"`}},
	})
	assert.True(t, ok)

	ok = r.Match(ctx, update("hello"), []api.Trigger{
		{Type: api.TriggerLua, Value: []string{`sender.id == "user-2"`}},
	})
	assert.False(t, ok)

	// repeated evaluation exercises the bytecode cache
	for i := 0; i < 3; i++ {
		ok = r.Match(ctx, update("hello"), []api.Trigger{
			{Type: api.TriggerLua, Value: []string{`text == "hello"`}},
		})
		assert.True(t, ok)
	}
}

func TestExprPredicate(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	ok := r.Match(ctx, update("42"), []api.Trigger{
		{Type: api.TriggerExpr, Value: []string{`text == "42"`}},
	})
	assert.True(t, ok)

	ok = r.Match(ctx, update("42"), []api.Trigger{
		{Type: api.TriggerExpr, Value: []string{`chat.id == "chat-9"`}},
	})
	assert.False(t, ok)

	// a non-boolean result is an error, which counts as no match
	ok = r.Match(ctx, update("42"), []api.Trigger{
		{Type: api.TriggerExpr, Value: []string{`text`}},
	})
	assert.False(t, ok)
}
