package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/mvoevodskiy/botcms/internal/util"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// execState carries the per-event processing state through the render
// chain for one inbound update
type execState struct {
	upd     *api.Update
	session *sessionState

	// from is the step that resolved the event, consulted when a later
	// render decides its edit target
	from *api.Step

	// exclude holds the just-visited paths a chained goto must not
	// resolve back into
	exclude util.Set[api.Path]

	// persist is false when an explicit path override suppressed
	// session-step persistence for this pass
	persist bool

	// forceNone, once set by a step, disables in-place editing for the
	// rest of the chain
	forceNone bool
}

// setStep records step as the session's current step unless an
// explicit path override suppressed persistence for this pass
func (st *execState) setStep(step *api.Step) {
	if !st.persist {
		return
	}
	copied := *step
	st.session.data.Step = &copied
	st.session.markDirty()
}

// anchorStep records step as the session's current step even when
// persistence is suppressed, and re-enables it for the rest of the
// chain. Form steps anchor so the next inbound answer resolves from
// the form rather than the step the override left behind
func (st *execState) anchorStep(step *api.Step) {
	copied := *step
	st.session.data.Step = &copied
	st.session.markDirty()
	st.persist = true
}

// HandleUpdate processes one inbound update end to end: resolves the
// applicable step, executes it, follows chained transitions, and
// flushes the net session mutation. Processing for one session key is
// serialized; failures degrade to no further output
func (e *Engine) HandleUpdate(ctx context.Context, upd *api.Update) error {
	if upd.SelfSent() || upd.Processed {
		return nil
	}
	upd.Processed = true
	if upd.UID == "" {
		upd.UID = uuid.NewString()
	}
	e.logger.Debug("update received",
		log.Bridge(upd.Bridge), log.ChatID(upd.Chat.ID),
		log.SenderID(upd.Sender.ID), log.UID(upd.UID))

	unlock := e.locks.Lock(sessionKey(upd))
	defer unlock()

	st, err := e.beginEvent(ctx, upd)
	if err != nil {
		return err
	}

	e.answerQuery(ctx, upd)

	next := e.resolveStep(ctx, st)
	if next == nil && e.cfg.HelpPath != "" {
		if help, ok := e.scripts.Lookup(e.cfg.HelpPath); ok {
			st.persist = false
			next = help
		}
	}
	if next != nil {
		e.formTrack(ctx, st, st.from, []int64{upd.MessageID}, false)
		e.render(ctx, st, next, 0)
	}

	return e.flushSession(ctx, st.session)
}

func (e *Engine) beginEvent(
	ctx context.Context, upd *api.Update,
) (*execState, error) {
	session, err := e.loadSession(ctx, upd)
	if err != nil {
		return nil, err
	}
	return &execState{
		upd:     upd,
		session: session,
		exclude: util.SetOf[api.Path](),
		persist: true,
	}, nil
}

// answerQuery performs the acknowledgement exchange and the handler
// capability call carried by an activated interactive control
func (e *Engine) answerQuery(ctx context.Context, upd *api.Update) {
	q := upd.Query
	if q == nil {
		return
	}
	if q.Answer != nil {
		if bridge, ok := e.Bridge(upd.Bridge); ok {
			if err := bridge.AnswerCallback(ctx, q.ID, q.Answer); err != nil {
				e.logger.Error("callback answer failed",
					log.Bridge(upd.Bridge), log.Error(err))
			}
		}
	}
	if q.Handler != "" {
		fn, ok := e.Method(q.Handler)
		if !ok {
			e.logger.Error("query handler not registered",
				log.Method(q.Handler), log.Error(ErrMethodNotFound))
			return
		}
		if err := fn(ctx, upd, q.Params); err != nil {
			e.logger.Error("query handler failed",
				log.Method(q.Handler), log.Error(err))
		}
	}
}

// resolveStep finds the step the update transitions to. Commands are
// scanned first and skip validation entirely; otherwise the current
// step's validate spec runs and its goto outcome is resolved
func (e *Engine) resolveStep(
	ctx context.Context, st *execState,
) *api.Step {
	upd := st.upd

	if cmd := e.stepByCommand(ctx, upd); cmd != nil {
		st.from = cmd
		return cmd
	}

	path := upd.QueryPath()
	if path != "" {
		st.persist = false
	} else {
		path = st.session.data.StepPath()
	}
	if path == "" {
		path = e.cfg.RootPath
	}

	step, ok := e.scripts.Lookup(path)
	if !ok {
		// a children container has no step of its own; scan it for
		// the first trigger match instead
		if path.IsChildren() {
			return e.findNextStep(ctx, upd, path, st.exclude)
		}
		e.logger.Error("current step not found",
			log.Path(path), log.Error(ErrStepNotFound))
		return nil
	}
	st.from = step

	out := e.processGoto(ctx, upd, step.Validate)
	e.runMethods(ctx, upd, out.methods)
	e.renderHelp(ctx, st, out.help)
	e.storeAnswer(st, step, true)
	return e.findNextStep(ctx, upd, out.goTo, st.exclude)
}

// stepByCommand scans the global command list in registration order
// and returns the first command step whose trigger matches
func (e *Engine) stepByCommand(
	ctx context.Context, upd *api.Update,
) *api.Step {
	for _, path := range e.scripts.Commands() {
		step, ok := e.scripts.Lookup(path)
		if !ok || len(step.Trigger) == 0 {
			continue
		}
		if e.predicates.Match(ctx, upd, step.Trigger) {
			return step
		}
	}
	return nil
}

// render executes one resolved step and recurses for its chained goto
// in tail position, bounded by the configured hop count. Renders for
// one event are strictly sequential
func (e *Engine) render(
	ctx context.Context, st *execState, step *api.Step, hops int,
) {
	if step.IsEmpty() {
		return
	}
	if hops >= e.cfg.MaxHops {
		e.logger.Error("chained transition limit reached",
			log.Path(step.Path))
		return
	}

	st.setStep(step)
	e.storeAnswer(st, step, false)

	if step.Replace == api.ReplaceForce {
		st.forceNone = true
	}

	e.runAction(ctx, st, step)

	if step.Message != nil {
		e.dispatch(ctx, st, step)
	}

	if step.Goto == nil {
		return
	}
	out := e.processGoto(ctx, st.upd, step.Goto)
	e.runMethods(ctx, st.upd, out.methods)
	e.renderHelp(ctx, st, out.help)

	st.exclude.Add(step.Path)
	if next := e.findNextStep(ctx, st.upd, out.goTo, st.exclude); next != nil {
		e.render(ctx, st, next, hops+1)
	}
}

// dispatch builds and sends the step's outbound parcel, reporting the
// produced message ids back to the form tracker
func (e *Engine) dispatch(ctx context.Context, st *execState, step *api.Step) {
	bridge, ok := e.Bridge(st.upd.Bridge)
	if !ok {
		e.logger.Error("bridge not registered",
			log.Bridge(st.upd.Bridge), log.Error(ErrBridgeNotFound))
		return
	}

	sess := st.session.data
	parcel := &api.Parcel{
		PeerID:      st.upd.Chat.ID,
		Message:     e.lexicon.Process(step.Message.Text, nil, e.language(sess)),
		Markup:      step.Message.Markup,
		Keyboard:    e.buildKeyboard(ctx, step.Keyboard),
		Attachments: step.Attachments,
		EditMsgID:   e.editTarget(st, step),
	}
	if parcel.Keyboard == nil && e.oneTimeShown(st.from) {
		parcel.Keyboard = &api.Keyboard{
			Options: []string{api.KeyboardRemove},
		}
	}
	if step.Replace != api.ReplaceNone && sess.Form != nil &&
		sess.Form.ChatID != "" {
		parcel.PeerID = sess.Form.ChatID
	}

	ids, err := bridge.Send(ctx, parcel)
	if err != nil {
		e.logger.Error("dispatch failed",
			log.Bridge(st.upd.Bridge),
			log.ChatID(parcel.PeerID), log.Error(err))
		return
	}
	e.formTrack(ctx, st, step, ids, true)
}

// renderHelp renders a help step as a side render that never persists
// as the session's current step
func (e *Engine) renderHelp(
	ctx context.Context, st *execState, help api.Path,
) {
	if help == "" {
		return
	}
	step, ok := e.scripts.Lookup(help)
	if !ok {
		e.logger.Error("help step not found",
			log.Path(help), log.Error(ErrStepNotFound))
		return
	}
	side := &execState{
		upd:       st.upd,
		session:   st.session,
		from:      st.from,
		exclude:   util.SetOf[api.Path](),
		persist:   false,
		forceNone: st.forceNone,
	}
	e.render(ctx, side, step, 0)
}
