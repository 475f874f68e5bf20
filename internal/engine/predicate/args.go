package predicate

import "github.com/mvoevodskiy/botcms/pkg/api"

// updateArgs projects an update into the flat argument table visible
// to scripted predicates
func updateArgs(upd *api.Update) map[string]any {
	args := map[string]any{
		"bridge": upd.Bridge,
		"text":   upd.Text,
		"event":  upd.Event,
		"chat": map[string]any{
			"id":   upd.Chat.ID,
			"type": upd.Chat.Type,
		},
		"sender": map[string]any{
			"id":       upd.Sender.ID,
			"username": upd.Sender.Username,
			"fullname": upd.Sender.Fullname,
			"is_bot":   upd.Sender.IsBot,
		},
		"query": nil,
	}
	if upd.Query != nil {
		args["query"] = map[string]any{
			"data":    upd.Query.Data,
			"path":    string(upd.Query.Path),
			"handler": upd.Query.Handler,
		}
	}
	return args
}
