package domain

// Wire event names. Client-to-server events are dispatched by the
// websocket server; server-to-client events are emitted by the
// presence, room, signal and message services.
const (
	// client -> server
	EventUserConnected     = "user_connected"
	EventSendDirectMessage = "send_direct_message"
	EventCreateGroup       = "create_group"
	EventJoinGroup         = "join_group"
	EventLeaveGroup        = "leave_group"
	EventSendGroupMessage  = "send_group_message"
	EventSendGroupSignal   = "send_group_signal"
	EventStartTypingGroup  = "start_typing_group"
	EventStopTypingGroup   = "stop_typing_group"

	// server -> client
	EventOnlineUsers       = "online_users"
	EventUserStatusChange  = "user_status_change"
	EventDirectMessage     = "direct_message"
	EventDirectMessageSent = "direct_message_sent"
	EventGroupMessage      = "group_message"
	EventGroupSignal       = "group_signal"
	EventMemberJoined      = "member_joined"
	EventMemberLeft        = "member_left"
	EventMemberTypingStart = "member_typing_start"
	EventMemberTypingStop  = "member_typing_stop"
	EventAck               = "ack"
	EventError             = "error"
)
