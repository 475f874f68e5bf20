package engine

import (
	"context"
	"slices"

	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// formTrack maintains the message-id bookkeeping of a multi-message
// form. It runs once with the triggering inbound id before rendering
// and once with the produced ids after each dispatch
func (e *Engine) formTrack(
	ctx context.Context, st *execState, step *api.Step,
	ids []int64, outbound bool,
) {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id int64) bool {
		return id == 0
	})
	sess := st.session.data

	if step.FormOpen() {
		if sess.Form == nil {
			sess.PrevStep = sess.Step
			sess.Form = &api.Form{
				ChatID: st.upd.Chat.ID,
				MsgID:  firstID(ids),
			}
		} else {
			e.removeTracked(ctx, st, sess.Form)
			old := sess.Form.MsgID
			if old == 0 {
				old = firstID(ids)
			}
			sess.Form = &api.Form{
				ChatID: st.upd.Chat.ID,
				MsgID:  old,
			}
		}
		if st.upd.SelfWrote() && len(ids) > 0 {
			sess.Form.MsgID = ids[0]
		}
		st.anchorStep(step)
	}

	if step.FormQuestion() && sess.Form != nil {
		if outbound {
			for _, id := range ids {
				if !slices.Contains(sess.Form.QuestionIDs, id) {
					sess.Form.QuestionIDs = append(
						sess.Form.QuestionIDs, id,
					)
				}
			}
		} else {
			for _, id := range ids {
				if !slices.Contains(sess.Form.AnswerIDs, id) &&
					!slices.Contains(sess.Form.QuestionIDs, id) {
					sess.Form.AnswerIDs = append(
						sess.Form.AnswerIDs, id,
					)
				}
			}
		}
		st.anchorStep(step)
	}

	if step.FormClear() && sess.Form != nil {
		e.formClear(ctx, st)
	}

	if sess.Form == nil && sess.PrevStep != nil {
		sess.Step = sess.PrevStep
		sess.PrevStep = nil
		st.session.markDirty()
	}
}

// formClear deletes every tracked question and answer message,
// restores the remembered prior step, and discards the form state
func (e *Engine) formClear(ctx context.Context, st *execState) {
	sess := st.session.data
	e.removeTracked(ctx, st, sess.Form)
	if sess.PrevStep != nil {
		sess.Step = sess.PrevStep
		sess.PrevStep = nil
	}
	sess.Form = nil
	st.session.markDirty()
}

func (e *Engine) removeTracked(
	ctx context.Context, st *execState, form *api.Form,
) {
	if form == nil {
		return
	}
	bridge, ok := e.Bridge(st.upd.Bridge)
	if !ok {
		return
	}
	for _, ids := range [][]int64{form.QuestionIDs, form.AnswerIDs} {
		if len(ids) == 0 {
			continue
		}
		if err := bridge.Remove(ctx, form.ChatID, ids); err != nil {
			e.logger.Error("form message removal failed",
				log.ChatID(form.ChatID), log.Error(err))
		}
	}
	form.QuestionIDs = nil
	form.AnswerIDs = nil
}

// editTarget resolves which previously sent message this render edits
// in place, or zero for a fresh send
func (e *Engine) editTarget(st *execState, step *api.Step) int64 {
	if !step.WantsReplace() || st.forceNone {
		return 0
	}
	form := st.session.data.Form

	switch {
	case step.FormOpen():
		if form != nil && form.MsgID != 0 {
			return form.MsgID
		}
		if !st.from.FormQuestion() {
			return st.upd.MessageID
		}
		return 0
	case step.FormQuestion():
		if st.upd.SelfWrote() {
			return st.upd.MessageID
		}
		return lastQuestionID(form)
	default:
		if form != nil && form.MsgID != 0 {
			return form.MsgID
		}
		if st.upd.SelfWrote() {
			return st.upd.MessageID
		}
		return 0
	}
}

func lastQuestionID(form *api.Form) int64 {
	if form == nil || len(form.QuestionIDs) == 0 {
		return 0
	}
	return form.QuestionIDs[len(form.QuestionIDs)-1]
}

func firstID(ids []int64) int64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}
