package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// maxWebhookBody bounds how much of a posted payload is read
const maxWebhookBody = 1 << 20

// handleWebhook turns a posted JSON payload into an inbound update for
// the named bridge. The payload uses the normalized update shape; a
// callback key, when present, resolves through the callback data store
// before the update runs
func (s *Server) handleWebhook(c *gin.Context) {
	name := c.Param("bridge")
	if _, ok := s.engine.Bridge(name); !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("unknown bridge: %s", name),
			Status: http.StatusNotFound,
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("read payload: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "invalid JSON payload",
			Status: http.StatusBadRequest,
		})
		return
	}

	upd := updateFromPayload(name, body)
	if upd.Chat.ID == "" || upd.Sender.ID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "payload missing chat.id or sender.id",
			Status: http.StatusBadRequest,
		})
		return
	}

	ctx := c.Request.Context()
	if key := gjson.GetBytes(body, "callback").String(); key != "" {
		if err := s.engine.ResolveCallback(ctx, upd, key); err != nil {
			s.logger.Warn("webhook callback key did not resolve",
				log.Bridge(name), log.Error(err))
		}
	}

	if err := s.engine.HandleUpdate(ctx, upd); err != nil {
		s.logger.Error("webhook update failed",
			log.Bridge(name), log.Error(err))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("handle update: %v", err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.UpdateAccepted{
		Status: "accepted",
		UID:    upd.UID,
	})
}

// updateFromPayload extracts the normalized update fields from a
// webhook body
func updateFromPayload(bridge string, body []byte) *api.Update {
	get := func(path string) gjson.Result {
		return gjson.GetBytes(body, path)
	}

	upd := &api.Update{
		Bridge:    bridge,
		Text:      get("text").String(),
		Event:     get("event").String(),
		MessageID: get("message_id").Int(),
		Date:      get("date").Int(),
		Edited:    get("edited").Bool(),
		Chat: api.Chat{
			ID:   get("chat.id").String(),
			Type: get("chat.type").String(),
		},
		Sender: api.User{
			ID:       get("sender.id").String(),
			Username: get("sender.username").String(),
			Fullname: get("sender.fullname").String(),
			IsBot:    get("sender.is_bot").Bool(),
		},
	}

	upd.Author = upd.Sender
	if author := get("author"); author.Exists() {
		upd.Author = api.User{
			ID:       get("author.id").String(),
			Username: get("author.username").String(),
			Fullname: get("author.fullname").String(),
		}
	}

	if upd.Date == 0 {
		upd.Date = time.Now().Unix()
	}

	if query := get("query"); query.Exists() {
		upd.Query = &api.Query{
			ID:      get("query.id").String(),
			Data:    get("query.data").String(),
			MsgID:   get("query.msg_id").Int(),
			Path:    api.Path(get("query.path").String()),
			Handler: get("query.handler").String(),
		}
		if answer := get("query.answer"); answer.Exists() {
			upd.Query.Answer = answer.Value()
		}
	}

	return upd
}
