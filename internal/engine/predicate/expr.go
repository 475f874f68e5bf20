package predicate

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lrucache "github.com/hashicorp/golang-lru/v2"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// exprEnv evaluates expr-language predicates. A trigger of type "expr"
// carries the expression source as its value; the expression sees the
// same argument table as the Lua environment and must yield a boolean
type exprEnv struct {
	cache *lrucache.Cache[string, *vm.Program]
}

const exprCacheSize = 4096

var ErrExprNotBool = errors.New("expression did not yield a boolean")

func newExprEnv() *exprEnv {
	cache, _ := lrucache.New[string, *vm.Program](exprCacheSize)
	return &exprEnv{cache: cache}
}

func (e *exprEnv) predicate() Func {
	return func(_ context.Context, upd *api.Update, value string) (bool, error) {
		return e.evaluate(upd, value)
	}
}

func (e *exprEnv) evaluate(upd *api.Update, source string) (bool, error) {
	program, err := e.compiled(source)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, updateArgs(upd))
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrExprNotBool, out)
	}
	return result, nil
}

func (e *exprEnv) compiled(source string) (*vm.Program, error) {
	key := hashScript(source)
	if program, ok := e.cache.Get(key); ok {
		return program, nil
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, program)
	return program, nil
}
