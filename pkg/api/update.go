package api

type (
	// User identifies a network account taking part in a conversation
	User struct {
		ID       string `json:"id"`
		Username string `json:"username,omitempty"`
		Fullname string `json:"fullname,omitempty"`
		IsBot    bool   `json:"is_bot,omitempty"`
	}

	// Chat identifies the conversation an update belongs to
	Chat struct {
		ID   string `json:"id"`
		Type string `json:"type,omitempty"`
	}

	// Query is the interactive-control activation attached to an
	// update. The inbound layer merges the stored callback payload onto
	// it before the engine runs
	Query struct {
		ID      string `json:"id,omitempty"`
		Data    string `json:"data,omitempty"`
		MsgID   int64  `json:"msg_id,omitempty"`
		Path    Path   `json:"path,omitempty"`
		Answer  any    `json:"answer,omitempty"`
		Handler string `json:"handler,omitempty"`
		Params  Params `json:"params,omitempty"`
	}

	// Update is one inbound message-like event, normalized by the
	// owning bridge. Sender is who delivered the update; Author is who
	// wrote the underlying message (they differ when the engine edits
	// its own output)
	Update struct {
		UID       string `json:"uid"`
		Bridge    string `json:"bridge"`
		Chat      Chat   `json:"chat"`
		Sender    User   `json:"sender"`
		Author    User   `json:"author"`
		MessageID int64  `json:"message_id,omitempty"`
		Text      string `json:"text,omitempty"`
		Date      int64  `json:"date,omitempty"`
		Event     string `json:"event,omitempty"`
		Edited    bool   `json:"edited,omitempty"`
		Query     *Query `json:"query,omitempty"`
		Processed bool   `json:"-"`
	}
)

// Message event names used by bridges and the engine's event triggers
const (
	EventMessageNew    = "message_new"
	EventMessageEdit   = "message_edit"
	EventMessageRemove = "message_remove"
	EventChatJoin      = "chat_join"
	EventChatLeave     = "chat_leave"
	EventQueryCallback = "query_callback"
)

// SelfSent reports whether the update was delivered by the engine itself
func (u *Update) SelfSent() bool {
	return u.Sender.ID == SelfSender
}

// SelfWrote reports whether the underlying message was authored by the
// engine (for example, a pressed button on an engine-sent message)
func (u *Update) SelfWrote() bool {
	return u.Author.ID == SelfSender
}

// QueryPath returns the explicit step-path override carried by the update,
// if any
func (u *Update) QueryPath() Path {
	if u.Query == nil {
		return ""
	}
	return u.Query.Path
}
