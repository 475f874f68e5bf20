package script

import (
	"fmt"
	"strings"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

var (
	rootAliases = map[string]string{
		"trg": "trigger",
		"cmd": "command",
		"msg": "message",
		"kb":  "keyboard",
		"vld": "validate",
	}

	gotoAliases = map[string]string{
		"vld": "validator",
		"f":   "failure",
		"t":   "success",
		"sw":  "switch",
	}
)

// expandAliases renames shorthand keys to their canonical spelling. A
// canonical key already present wins; the shorthand is dropped either
// way
func expandAliases(fields map[string]any, aliases map[string]string) {
	for short, full := range aliases {
		value, ok := fields[short]
		if !ok {
			continue
		}
		if _, exists := fields[full]; !exists {
			fields[full] = value
		}
		delete(fields, short)
	}
}

// normalizeStep massages raw field shapes into the canonical forms the
// typed step decoder expects
func normalizeStep(fields map[string]any) {
	if s, ok := fields["message"].(string); ok {
		fields["message"] = map[string]any{"text": s}
	}
	if s, ok := fields["keyboard"].(string); ok {
		fields["keyboard"] = map[string]any{"name": s}
	}
	if s, ok := fields["keyboard_name"].(string); ok {
		if _, exists := fields["keyboard"]; !exists {
			fields["keyboard"] = map[string]any{"name": s}
		}
		delete(fields, "keyboard_name")
	}
	for _, key := range []string{"validate", "goto"} {
		if value, ok := fields[key]; ok {
			fields[key] = normalizeGoto(value)
		}
	}
	if value, ok := fields["storePre"]; ok {
		if _, exists := fields["store_pre"]; !exists {
			fields["store_pre"] = value
		}
		delete(fields, "storePre")
	}
	for _, key := range []string{"store", "store_pre"} {
		if value, ok := fields[key]; ok {
			fields[key] = normalizeStore(value)
		}
	}
	if value, ok := fields["action"]; ok {
		fields["action"] = normalizeAction(value)
	}
	if value, ok := fields["form"]; ok {
		fields["form"] = normalizeForm(value)
	}
	if b, ok := fields["replace"].(bool); ok {
		if b {
			fields["replace"] = string(api.ReplaceEdit)
		} else {
			delete(fields, "replace")
		}
	}
}

func normalizeGoto(value any) any {
	switch v := value.(type) {
	case string:
		return map[string]any{"target": v}
	case map[string]any:
		expandAliases(v, gotoAliases)
		for _, key := range []string{"success", "failure"} {
			branch, ok := v[key]
			if !ok {
				continue
			}
			if s, isStr := branch.(string); isStr {
				v[key] = map[string]any{"goto": s}
				continue
			}
			if bm, isMap := branch.(map[string]any); isMap {
				if s, isStr := bm["methods"].(string); isStr {
					bm["methods"] = []any{s}
				}
			}
		}
		return v
	default:
		return value
	}
}

func normalizeStore(value any) any {
	switch v := value.(type) {
	case bool:
		if !v {
			return nil
		}
		return map[string]any{}
	case map[string]any:
		if clear, ok := v["clear"]; ok {
			if _, exists := v["clean"]; !exists {
				v["clean"] = clear
			}
			delete(v, "clear")
		}
		if _, ok := v["value"]; ok {
			v["has_value"] = true
		}
		if key, ok := v["key"]; ok {
			if _, isStr := key.(string); !isStr {
				v["key"] = fmt.Sprint(key)
			}
		}
		return v
	default:
		return value
	}
}

func normalizeAction(value any) any {
	switch v := value.(type) {
	case string:
		return map[string]any{
			"type": string(api.ActionMethod),
			"name": v,
		}
	case map[string]any:
		if _, ok := v["type"]; !ok {
			v["type"] = string(api.ActionMethod)
		}
		for _, alias := range []string{"method", "value"} {
			if name, ok := v[alias]; ok {
				if _, exists := v["name"]; !exists {
					v["name"] = name
				}
				delete(v, alias)
			}
		}
		if opts, ok := v["options"]; ok {
			if _, exists := v["params"]; !exists {
				v["params"] = opts
			}
			delete(v, "options")
		}
		return v
	default:
		return value
	}
}

func normalizeForm(value any) any {
	switch v := value.(type) {
	case bool:
		if !v {
			return nil
		}
		return map[string]any{"open": true}
	case string:
		return map[string]any{v: true}
	default:
		return value
	}
}

// parseTrigger normalizes any of the accepted trigger declarations
// into the canonical list form. A bare string with a ":" separator
// splits into type and value
func parseTrigger(raw any) []api.Trigger {
	items := asList(raw)
	out := make([]api.Trigger, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if typ, val, found := strings.Cut(v, ":"); found {
				out = append(out, api.Trigger{
					Type:  api.TriggerType(typ),
					Value: []string{val},
				})
				continue
			}
			out = append(out, api.Trigger{Value: []string{v}})
		case []any:
			out = append(out, api.Trigger{Value: asStrings(v)})
		case map[string]any:
			t := api.Trigger{Value: asStrings(asList(v["value"]))}
			if typ, ok := v["type"].(string); ok {
				t.Type = api.TriggerType(typ)
			}
			out = append(out, t)
		default:
			out = append(out, api.Trigger{
				Value: []string{fmt.Sprint(v)},
			})
		}
	}
	return out
}

func asList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func asStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
