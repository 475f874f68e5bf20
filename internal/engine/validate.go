package engine

import (
	"context"
	"fmt"

	"github.com/mvoevodskiy/botcms/internal/engine/predicate"
	"github.com/mvoevodskiy/botcms/internal/util"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// outcome is the resolved result of a goto or validate spec: methods
// to invoke, an optional help path for a side render, and the next
// step address
type outcome struct {
	methods []string
	help    api.Path
	goTo    api.Path
}

// processGoto resolves a goto/validate spec into an outcome. A bare
// target short-circuits. Otherwise the named validator predicate runs
// against the update; on success the switch table is consulted first,
// then the success branch; on failure the failure branch
func (e *Engine) processGoto(
	ctx context.Context, upd *api.Update, spec *api.GotoSpec,
) outcome {
	if spec == nil {
		return outcome{}
	}
	if spec.Target != "" {
		return outcome{goTo: spec.Target}
	}

	name := spec.Validator
	if name == "" {
		name = predicate.ValidatorNone
	}
	ok, err := e.predicates.Check(ctx, upd, name, specValues(spec.Params))
	if err != nil {
		e.logger.Warn("validator failed",
			log.Method(name), log.Error(err))
		ok = false
	}

	if ok {
		if target, found := spec.Switch[upd.Text]; found {
			return outcome{goTo: target}
		}
		return branchOutcome(spec.Success)
	}
	return branchOutcome(spec.Failure)
}

func branchOutcome(b *api.Branch) outcome {
	if b == nil {
		return outcome{}
	}
	return outcome{methods: b.Methods, help: b.Help, goTo: b.Goto}
}

// specValues extracts the declared validator values from a spec's
// params
func specValues(params api.Params) []string {
	raw, ok := params["value"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// findNextStep resolves a goto target to a concrete step. A children
// container is scanned in declared order for the first trigger match
// outside the exclusion set; a direct path is accepted unless excluded
func (e *Engine) findNextStep(
	ctx context.Context, upd *api.Update,
	target api.Path, exclude util.Set[api.Path],
) *api.Step {
	if target == "" {
		return nil
	}
	if target.IsChildren() {
		for _, kid := range e.scripts.Children(target) {
			if exclude.Contains(kid.Path) {
				continue
			}
			if e.predicates.Match(ctx, upd, kid.Trigger) {
				return kid
			}
		}
		return nil
	}

	step, ok := e.scripts.Lookup(target)
	if !ok {
		e.logger.Error("goto target not found", log.Path(target))
		return nil
	}
	if exclude.Contains(step.Path) {
		return nil
	}
	return step
}

// runMethods invokes resolved validator methods sequentially, each
// awaited before the next. An unresolved name is logged and skipped
func (e *Engine) runMethods(
	ctx context.Context, upd *api.Update, names []string,
) {
	for _, name := range names {
		fn, ok := e.Method(name)
		if !ok {
			e.logger.Error("method not registered",
				log.Method(name), log.Error(ErrMethodNotFound))
			continue
		}
		if err := fn(ctx, upd, nil); err != nil {
			e.logger.Error("method failed",
				log.Method(name), log.Error(err))
		}
	}
}
