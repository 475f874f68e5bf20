package script

import (
	"strings"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// placeholders returns the textual replacement table for the relative
// path tokens usable inside a step's goto and validate values. Each
// token has a short and a long spelling; ancestors above the sixth
// resolve to the empty string
func placeholders(path, parent api.Path) map[string]string {
	table := map[string]string{
		"((s))":        string(path),
		"((self))":     string(path),
		"((path))":     string(path),
		"((p))":        string(parent),
		"((parent))":   string(parent),
		"((c))":        string(path) + "." + childKey,
		"((children))": string(path) + "." + childKey,
	}
	up := parent
	for i := 1; i <= 6; i++ {
		up = up.Up()
		short := "((gp" + suffix(i) + "))"
		long := "((grandpa" + suffix(i) + "))"
		table[short] = string(up)
		table[long] = string(up)
	}
	return table
}

func suffix(i int) string {
	if i == 1 {
		return ""
	}
	return string(rune('0' + i))
}

// substitutePaths rewrites placeholder tokens inside a goto or
// validate value, recursing through nested maps and lists
func substitutePaths(value any, table map[string]string) any {
	switch v := value.(type) {
	case string:
		for token, repl := range table {
			v = strings.ReplaceAll(v, token, repl)
		}
		return v
	case map[string]any:
		for key, entry := range v {
			v[key] = substitutePaths(entry, table)
		}
		return v
	case []any:
		for i, entry := range v {
			v[i] = substitutePaths(entry, table)
		}
		return v
	default:
		return value
	}
}
