package engine

import (
	"context"

	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// buildKeyboard turns a step's keyboard declaration into the built,
// network-neutral form. Inline controls persist their payload through
// the callback data store and carry only the short opaque key
func (e *Engine) buildKeyboard(
	ctx context.Context, ref *api.KeyboardRef,
) *api.Keyboard {
	if ref == nil {
		return nil
	}
	if ref.Name != "" {
		named, ok := e.namedKeyboard(ref.Name)
		if !ok {
			e.logger.Error("keyboard not registered",
				log.ErrorString(ref.Name))
			return nil
		}
		ref = named
	}

	kb := &api.Keyboard{Options: ref.Options}
	for _, row := range ref.Buttons {
		built := make([]api.Button, 0, len(row))
		for _, text := range row {
			built = append(built, api.Button{Text: text})
		}
		kb.Buttons = append(kb.Buttons, built)
	}

	if len(ref.Inline) > 0 {
		row := make([]api.Button, 0, len(ref.Inline))
		for _, btn := range ref.Inline {
			key, err := e.callbacks.Build(ctx, &api.CallbackData{
				Data:    btn.Data,
				Handler: btn.Handler,
				Params:  btn.Params,
				Answer:  btn.Answer,
				Path:    btn.Goto,
			})
			if err != nil {
				e.logger.Error("callback data store failed",
					log.Error(err))
				continue
			}
			row = append(row, api.Button{Text: btn.Text, Callback: key})
		}
		kb.Buttons = append(kb.Buttons, row)
	}

	if kb.IsEmpty() {
		return nil
	}
	return kb
}

// oneTimeShown reports whether the step that resolved the event showed
// a one-time keyboard, so a reply without its own keyboard clears it
func (e *Engine) oneTimeShown(from *api.Step) bool {
	if from == nil || from.Keyboard == nil {
		return false
	}
	ref := from.Keyboard
	if ref.Name != "" {
		named, ok := e.namedKeyboard(ref.Name)
		if !ok {
			return false
		}
		ref = named
	}
	return ref.IsOneTime()
}
