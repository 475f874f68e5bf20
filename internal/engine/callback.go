package engine

import (
	"context"
	"fmt"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// ResolveCallback loads the payload stored behind an interactive
// control's opaque key and merges it onto the update's query. Bridges
// call it before handing an activation to HandleUpdate; the payload
// stays in the store afterwards
func (e *Engine) ResolveCallback(
	ctx context.Context, upd *api.Update, key string,
) error {
	data, ok, err := e.callbacks.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCallbackNotFound, key)
	}

	if upd.Query == nil {
		upd.Query = &api.Query{}
	}
	q := upd.Query
	if data.Data != "" {
		q.Data = data.Data
	}
	if data.Handler != "" {
		q.Handler = data.Handler
	}
	if len(data.Params) > 0 {
		q.Params = data.Params
	}
	if data.Answer != nil {
		q.Answer = data.Answer
	}
	if data.Path != "" {
		q.Path = data.Path
	}
	if upd.Event == "" {
		upd.Event = api.EventQueryCallback
	}
	return nil
}
