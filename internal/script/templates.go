package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// TemplatePrefix marks a string value that references a registered
// template, optionally followed by inline JSON parameters
const TemplatePrefix = "$TEMPLATE "

var ErrTemplateNotFound = errors.New("template not found")

// templateSet holds the named templates and global variables collected
// from loaded documents. Expansion is single pass: an expanded template
// body is never re-scanned for further template references
type templateSet struct {
	templates map[string]any
	vars      map[string]any
}

func newTemplateSet() *templateSet {
	return &templateSet{
		templates: map[string]any{},
		vars:      map[string]any{},
	}
}

// Register stores a deep copy of body under name. A later registration
// with the same name replaces the earlier one
func (t *templateSet) Register(name string, body any) {
	t.templates[name] = copyValue(body)
}

// RegisterVars merges global variables used for ${var} substitution
func (t *templateSet) RegisterVars(vars map[string]any) {
	for name, value := range vars {
		t.vars[name] = value
	}
}

// Expand replaces a "$TEMPLATE name {params}" string with a deep copy
// of the registered template body, substituting ${var} placeholders
// from global variables merged with the inline parameters. Any other
// value passes through untouched
func (t *templateSet) Expand(value any) (any, error) {
	s, ok := value.(string)
	if !ok || !strings.HasPrefix(s, TemplatePrefix) {
		return value, nil
	}
	name, params, _ := strings.Cut(
		strings.TrimPrefix(s, TemplatePrefix), " ",
	)
	body, ok := t.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return substituteVars(copyValue(body), t.replacers(params)), nil
}

func (t *templateSet) replacers(params string) map[string]string {
	merged := map[string]any{
		"templates":  templatesKey,
		"template":   TemplatePrefix,
		"globalVars": globalVarsKey,
	}
	for name, value := range t.vars {
		merged[name] = value
	}
	if strings.HasPrefix(params, "{") && gjson.Valid(params) {
		if local, ok := gjson.Parse(params).Value().(map[string]any); ok {
			for name, value := range local {
				merged[name] = value
			}
		}
	}
	result := make(map[string]string, len(merged))
	for name, value := range merged {
		result["${"+name+"}"] = fmt.Sprint(value)
	}
	return result
}

func substituteVars(value any, replacers map[string]string) any {
	switch v := value.(type) {
	case string:
		for token, repl := range replacers {
			v = strings.ReplaceAll(v, token, repl)
		}
		return v
	case map[string]any:
		for key, entry := range v {
			v[key] = substituteVars(entry, replacers)
		}
		return v
	case []any:
		for i, entry := range v {
			v[i] = substituteVars(entry, replacers)
		}
		return v
	default:
		return value
	}
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		res := make(map[string]any, len(v))
		for key, entry := range v {
			res[key] = copyValue(entry)
		}
		return res
	case []any:
		res := make([]any, len(v))
		for i, entry := range v {
			res[i] = copyValue(entry)
		}
		return res
	default:
		return value
	}
}
