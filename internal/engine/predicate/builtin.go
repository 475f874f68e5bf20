package predicate

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// builtin validator names usable wherever a trigger type is accepted
const (
	ValidatorNone     = "none"
	ValidatorNonEmpty = "nonEmpty"
)

func registerBuiltins(r *Registry) {
	r.Register(api.TriggerText, textPredicate)
	r.Register(api.TriggerContains, containsPredicate)
	r.Register(api.TriggerPrefix, prefixPredicate)
	r.Register(api.TriggerRegexp, newRegexpPredicate())
	r.Register(api.TriggerEvent, eventPredicate)
	r.Register(ValidatorNone, nonePredicate)
	r.Register(ValidatorNonEmpty, nonEmptyPredicate)
}

func textPredicate(_ context.Context, upd *api.Update, value string) (bool, error) {
	return upd.Text == value, nil
}

func containsPredicate(_ context.Context, upd *api.Update, value string) (bool, error) {
	return value != "" && strings.Contains(upd.Text, value), nil
}

func prefixPredicate(_ context.Context, upd *api.Update, value string) (bool, error) {
	return value != "" && strings.HasPrefix(upd.Text, value), nil
}

func eventPredicate(_ context.Context, upd *api.Update, value string) (bool, error) {
	return upd.Event != "" && upd.Event == value, nil
}

func nonePredicate(context.Context, *api.Update, string) (bool, error) {
	return true, nil
}

func nonEmptyPredicate(_ context.Context, upd *api.Update, _ string) (bool, error) {
	return strings.TrimSpace(upd.Text) != "", nil
}

// newRegexpPredicate compiles patterns on first use and keeps them for
// the lifetime of the registry
func newRegexpPredicate() Func {
	var mu sync.Mutex
	compiled := map[string]*regexp.Regexp{}

	return func(_ context.Context, upd *api.Update, value string) (bool, error) {
		mu.Lock()
		re, ok := compiled[value]
		mu.Unlock()
		if !ok {
			var err error
			re, err = regexp.Compile(value)
			if err != nil {
				return false, err
			}
			mu.Lock()
			compiled[value] = re
			mu.Unlock()
		}
		return re.MatchString(upd.Text), nil
	}
}
