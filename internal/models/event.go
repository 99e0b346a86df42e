package models

// Server-to-client websocket events.
const (
	EventReceiveMessage  = "receive_message"
	EventMessagesRead    = "messages_read"
	EventReceiveReaction = "receive_reaction"
	EventMessageDeleted  = "message_deleted"
)

// Client-to-server websocket events.
const (
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventSendMessage  = "send_message"
	EventMarkAsRead   = "mark_as_read"
	EventReactMessage = "react_message"
)

// Event is the websocket frame shape in both directions.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}
