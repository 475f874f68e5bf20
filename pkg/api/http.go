package api

type (
	// ErrorResponse is the JSON body returned by failed API requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// HealthResponse reports service liveness and the engine's basic
	// shape
	HealthResponse struct {
		Status  string   `json:"status"`
		Version string   `json:"version"`
		Steps   int      `json:"steps"`
		Bridges []string `json:"bridges"`
	}

	// UpdateAccepted acknowledges an inbound webhook update
	UpdateAccepted struct {
		Status string `json:"status"`
		UID    string `json:"uid"`
	}

	// SocketInbound is one client frame on the websocket chat bridge.
	// Callback carries the opaque key of a pressed inline control
	SocketInbound struct {
		Text      string `json:"text,omitempty"`
		Event     string `json:"event,omitempty"`
		MessageID int64  `json:"message_id,omitempty"`
		Callback  string `json:"callback,omitempty"`
		QueryID   string `json:"query_id,omitempty"`
	}

	// SocketOutbound is one server frame on the websocket chat bridge
	SocketOutbound struct {
		Type      string    `json:"type"`
		MessageID int64     `json:"message_id,omitempty"`
		MsgIDs    []int64   `json:"msg_ids,omitempty"`
		Text      string    `json:"text,omitempty"`
		Markup    string    `json:"markup,omitempty"`
		Keyboard  *Keyboard `json:"keyboard,omitempty"`
		EditMsgID int64     `json:"edit_msg_id,omitempty"`
		QueryID   string    `json:"query_id,omitempty"`
		Answer    any       `json:"answer,omitempty"`
	}
)

// Frame types carried by SocketOutbound
const (
	SocketFrameMessage = "message"
	SocketFrameRemove  = "remove"
	SocketFrameAnswer  = "answer"
)
