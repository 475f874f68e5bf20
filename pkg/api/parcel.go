package api

// Parcel is one outbound dispatch from the engine to a bridge. EditMsgID,
// when non-zero, asks the bridge to edit that message in place instead of
// sending a new one
type Parcel struct {
	PeerID      string              `json:"peer_id"`
	Message     string              `json:"message,omitempty"`
	Markup      string              `json:"markup,omitempty"`
	Keyboard    *Keyboard           `json:"keyboard,omitempty"`
	Attachments map[string][]string `json:"attachments,omitempty"`
	ReplyMsgID  int64               `json:"reply_msg_id,omitempty"`
	FwChatID    string              `json:"fw_chat_id,omitempty"`
	FwMsgIDs    []int64             `json:"fw_msg_ids,omitempty"`
	EditMsgID   int64               `json:"edit_msg_id,omitempty"`
}
