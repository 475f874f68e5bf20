package predicate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"
	lrucache "github.com/hashicorp/golang-lru/v2"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

type (
	// LuaEnv is a sandboxed Lua execution environment with bytecode
	// caching and state pooling. A trigger of type "lua" carries the
	// script source as its value; the script sees the update fields as
	// locals and its last expression decides the match
	LuaEnv struct {
		cache     *lrucache.Cache[string, *compiledLua]
		statePool chan *lua.State
	}

	compiledLua struct {
		bytecode []byte
	}
)

const (
	luaCacheSize        = 4096
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3
	luaArgLocalTemplate = "local %s = select(%d, ...)"
	luaGlobalTableName  = "_G"
	luaSeparator        = "\n"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// luaArgNames is the fixed, ordered set of locals every predicate
// script receives
var luaArgNames = [...]string{"bridge", "chat", "event", "query", "sender", "text"}

// NewLuaEnv creates a Lua execution environment with a state pool for
// efficient script reuse
func NewLuaEnv() *LuaEnv {
	cache, _ := lrucache.New[string, *compiledLua](luaCacheSize)
	return &LuaEnv{
		cache:     cache,
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// Predicate adapts the environment to the registry contract
func (e *LuaEnv) Predicate() Func {
	return func(_ context.Context, upd *api.Update, value string) (bool, error) {
		return e.Evaluate(upd, value)
	}
}

// Evaluate compiles the script if needed and runs it against the
// update, returning the boolean result
func (e *LuaEnv) Evaluate(upd *api.Update, script string) (bool, error) {
	proc, err := e.compiled(script)
	if err != nil {
		return false, err
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(bytes.NewReader(proc.bytecode), "chunk", "b"); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	inputs := updateArgs(upd)
	for _, name := range luaArgNames {
		goToLua(L, inputs[name])
	}

	if err := L.ProtectedCall(len(luaArgNames), 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

func (e *LuaEnv) compiled(script string) (*compiledLua, error) {
	key := hashScript(script)
	if proc, ok := e.cache.Get(key); ok {
		return proc, nil
	}
	proc, err := e.compile(e.wrapSource(script))
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, proc)
	return proc, nil
}

func (e *LuaEnv) wrapSource(script string) string {
	argLocals := make([]string, len(luaArgNames))
	for i, name := range luaArgNames {
		argLocals[i] = fmt.Sprintf(luaArgLocalTemplate, name, i+1)
	}
	body := script
	if !strings.Contains(script, "return") {
		body = "return " + script
	}
	return strings.Join([]string{
		strings.Join(argLocals, luaSeparator), body,
	}, luaSeparator)
}

func (e *LuaEnv) compile(src string) (*compiledLua, error) {
	L := lua.NewState()

	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	return &compiledLua{bytecode: buf.Bytes()}, nil
}

func (e *LuaEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
}

func hashScript(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}
