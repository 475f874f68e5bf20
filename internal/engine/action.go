package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mvoevodskiy/botcms/internal/util"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// RunStepAction executes a step's action outside of any inbound event,
// the way scheduled jobs fire. The action runs against an empty session
// and a synthetic update, so send targets must be explicit peers
func (e *Engine) RunStepAction(ctx context.Context, step *api.Step) {
	st := &execState{
		upd:     &api.Update{UID: uuid.NewString()},
		session: &sessionState{data: &api.Session{}},
		exclude: util.SetOf[api.Path](),
	}
	e.runAction(ctx, st, step)
}

// runAction executes a step's declared action. Method actions resolve
// through the capability registry. Send actions fan out one parcel per
// declared bridge peer and wait for every dispatch to settle; any
// individual failure is logged without cancelling its siblings or
// aborting the step
func (e *Engine) runAction(
	ctx context.Context, st *execState, step *api.Step,
) {
	action := step.Action
	if action == nil {
		return
	}
	switch action.Type {
	case api.ActionMethod:
		fn, ok := e.Method(action.Name)
		if !ok {
			e.logger.Error("action method not registered",
				log.Method(action.Name), log.Error(ErrMethodNotFound))
			return
		}
		if err := fn(ctx, st.upd, action.Params); err != nil {
			e.logger.Error("action method failed",
				log.Method(action.Name), log.Error(err))
		}
	case api.ActionSend:
		e.runSendAction(ctx, st, step, action.Params)
	}
}

func (e *Engine) runSendAction(
	ctx context.Context, st *execState, step *api.Step, params api.Params,
) {
	targets, ok := params["target"].(map[string]any)
	if !ok || len(targets) == 0 {
		return
	}

	message := e.sendActionMessage(st, step, params)
	keyboard := e.buildKeyboard(ctx, step.Keyboard)

	var wg sync.WaitGroup
	for name, rawPeers := range targets {
		bridge, found := e.Bridge(name)
		if !found {
			e.logger.Error("unknown bridge in action target",
				log.Bridge(name), log.Error(ErrBridgeNotFound))
			continue
		}
		for _, peer := range peerList(rawPeers) {
			if peer == api.SelfSender {
				peer = st.upd.Sender.ID
			}
			parcel := &api.Parcel{
				PeerID:   peer,
				Message:  message,
				Keyboard: keyboard,
			}
			wg.Add(1)
			go func(b Bridge, p *api.Parcel) {
				defer wg.Done()
				if _, err := b.Send(ctx, p); err != nil {
					e.logger.Error("action send failed",
						log.Bridge(b.Name()), log.Error(err))
				}
			}(bridge, parcel)
		}
	}
	wg.Wait()
}

// sendActionMessage renders the parcel text, optionally prefixing it
// with the answers previously stored in a named thread
func (e *Engine) sendActionMessage(
	st *execState, step *api.Step, params api.Params,
) string {
	language := e.language(st.session.data)

	text := ""
	if step.Message != nil {
		text = e.lexicon.Process(step.Message.Text, nil, language)
	}
	if override, ok := params["message"].(string); ok {
		text = e.lexicon.Process(override, nil, language)
	}

	thread, ok := params["from_thread"].(string)
	if !ok {
		thread, ok = params["from_scope"].(string)
	}
	if !ok || thread == "" {
		return text
	}
	answers := st.session.data.Answers[thread]
	if len(answers) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n")
	for _, a := range answers {
		b.WriteString(e.lexicon.Process(a.Message, nil, language))
		b.WriteString(">> ")
		b.WriteString(answerText(a.Answer))
		b.WriteString("\n\n")
	}
	return b.String()
}

func peerList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func answerText(answer any) string {
	switch v := answer.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
