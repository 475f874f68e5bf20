package engine

import "github.com/mvoevodskiy/botcms/pkg/api"

type (
	// Lexicon renders message text. Implementations may translate keys
	// into localized strings; the engine passes the session language
	Lexicon interface {
		Process(key string, params api.Params, language string) string
	}

	// PassthroughLexicon returns keys untouched
	PassthroughLexicon struct{}

	// MapLexicon resolves keys against per-language tables, falling
	// back to the key itself
	MapLexicon map[string]map[string]string
)

func (PassthroughLexicon) Process(key string, _ api.Params, _ string) string {
	return key
}

func (m MapLexicon) Process(key string, _ api.Params, language string) string {
	if table, ok := m[language]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	return key
}

// language resolves the lexicon language for a session, falling back
// to the configured default
func (e *Engine) language(sess *api.Session) string {
	if sess != nil && sess.Language != "" {
		return sess.Language
	}
	return e.cfg.Language
}
