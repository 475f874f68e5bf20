package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// sessionState owns the in-memory session for the duration of one
// event. Mutations must go through markDirty so an untouched session
// never produces a store write
type sessionState struct {
	key   string
	data  *api.Session
	dirty bool
}

func (s *sessionState) markDirty() {
	s.dirty = true
}

// sessionKey derives the durable store key for an update
func sessionKey(upd *api.Update) string {
	return strings.Join(
		[]string{upd.Bridge, upd.Chat.ID, upd.Sender.ID}, ":",
	)
}

func (e *Engine) loadSession(
	ctx context.Context, upd *api.Update,
) (*sessionState, error) {
	st := &sessionState{key: sessionKey(upd)}
	var sess api.Session
	ok, err := e.store.Get(ctx, st.key, &sess)
	if err != nil {
		return nil, err
	}
	if ok {
		st.data = &sess
	} else {
		st.data = &api.Session{}
	}
	return st, nil
}

// flushSession writes the session back only when it was mutated. A
// trivially empty record deletes instead
func (e *Engine) flushSession(ctx context.Context, st *sessionState) error {
	if !st.dirty {
		return nil
	}
	if st.data.IsEmpty() {
		return e.store.Delete(ctx, st.key)
	}
	return e.store.Set(ctx, st.key, st.data)
}

// storeAnswer applies a step's store or storePre directive to the
// session's answers
func (e *Engine) storeAnswer(st *execState, step *api.Step, pre bool) {
	spec := step.Store
	if pre {
		spec = step.StorePre
	}
	if spec == nil {
		return
	}

	thread := spec.Thread
	if thread == "" {
		thread = step.AnswerThread()
	}

	sess := st.session.data
	if sess.Answers == nil {
		sess.Answers = map[string]api.Thread{}
	}
	if spec.Clean {
		sess.Answers[thread] = nil
	}

	key := spec.Key
	if key == "" {
		key = strconv.Itoa(len(sess.Answers[thread]) + 1)
	}
	answer := api.Answer{Key: key, Answer: st.upd.Text}
	if step.Message != nil {
		answer.Message = step.Message.Text
	}
	if spec.HasValue {
		answer.Answer = spec.Value
	}
	sess.Answers[thread] = sess.Answers[thread].Put(answer)
	st.session.markDirty()
}
