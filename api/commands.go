package api

import "strings"

// The command catalog. Field order follows the gateway's documented
// parameter order; sessionKey is supplied by the transport and never
// appears here.
var Commands = []*Spec{
	{Name: "about", Alias: "about", Method: MethodGet},
	{Name: "sessionInfo", Alias: "session_info", Method: MethodGet},
	{Name: "messageFromId", Alias: "message_from_id", Method: MethodGet, Fields: []string{"id"}},

	{Name: "friendList", Alias: "friend_list", Method: MethodGet},
	{Name: "groupList", Alias: "group_list", Method: MethodGet},
	{Name: "memberList", Alias: "member_list", Method: MethodGet, Fields: []string{"target"}},
	{Name: "botProfile", Alias: "bot_profile", Method: MethodGet},
	{Name: "friendProfile", Alias: "friend_profile", Method: MethodGet, Fields: []string{"target"}},
	{Name: "memberProfile", Alias: "member_profile", Method: MethodGet, Fields: []string{"target", "memberId"}},

	{Name: "sendFriendMessage", Alias: "send_friend_message", Method: MethodPost, Fields: []string{"target", "messageChain", "quote"}},
	{Name: "sendGroupMessage", Alias: "send_group_message", Method: MethodPost, Fields: []string{"target", "messageChain", "quote"}},
	{Name: "sendTempMessage", Alias: "send_temp_message", Method: MethodPost, Fields: []string{"qq", "group", "messageChain", "quote"}},
	{Name: "sendNudge", Alias: "send_nudge", Method: MethodPost, Fields: []string{"target", "subject", "kind"}},
	{Name: "recall", Alias: "recall", Method: MethodPost, Fields: []string{"target"}},

	{Name: "file/list", Alias: "file_list", Method: MethodGet, Fields: []string{"id", "target", "withDownloadInfo", "path", "offset", "size"}},
	{Name: "file/info", Alias: "file_info", Method: MethodGet, Fields: []string{"id", "target", "withDownloadInfo", "path"}},
	{Name: "file/mkdir", Alias: "file_mkdir", Method: MethodPost, Fields: []string{"id", "target", "directoryName", "path"}},
	{Name: "file/delete", Alias: "file_delete", Method: MethodPost, Fields: []string{"id", "target", "path"}},
	{Name: "file/move", Alias: "file_move", Method: MethodPost, Fields: []string{"id", "target", "moveTo", "path", "moveToPath"}},
	{Name: "file/rename", Alias: "file_rename", Method: MethodPost, Fields: []string{"id", "target", "renameTo", "path"}},
	{Name: "file/upload", Alias: "file_upload", Method: MethodMultipart, Fields: []string{"type", "target", "file", "path"}, FileField: "file"},
	{Name: "uploadImage", Alias: "upload_image", Method: MethodMultipart, Fields: []string{"type", "img"}, FileField: "img"},
	{Name: "uploadVoice", Alias: "upload_voice", Method: MethodMultipart, Fields: []string{"type", "voice"}, FileField: "voice"},

	{Name: "deleteFriend", Alias: "delete_friend", Method: MethodPost, Fields: []string{"target"}},
	{Name: "mute", Alias: "mute", Method: MethodPost, Fields: []string{"target", "memberId", "time"}},
	{Name: "unmute", Alias: "unmute", Method: MethodPost, Fields: []string{"target", "memberId"}},
	{Name: "kick", Alias: "kick", Method: MethodPost, Fields: []string{"target", "memberId", "msg"}},
	{Name: "quit", Alias: "quit", Method: MethodPost, Fields: []string{"target"}},
	{Name: "muteAll", Alias: "mute_all", Method: MethodPost, Fields: []string{"target"}},
	{Name: "unmuteAll", Alias: "unmute_all", Method: MethodPost, Fields: []string{"target"}},
	{Name: "setEssence", Alias: "set_essence", Method: MethodPost, Fields: []string{"target"}},
	{Name: "memberAdmin", Alias: "member_admin", Method: MethodPost, Fields: []string{"target", "memberId", "assign"}},

	{Name: "groupConfig", Alias: "group_config", Method: MethodRestGet, Fields: []string{"target", "config"}},
	{Name: "memberInfo", Alias: "member_info", Method: MethodRestGet, Fields: []string{"target", "memberId", "info"}},

	{Name: "resp/newFriendRequestEvent", Alias: "resp_new_friend_request_event", Method: MethodPost, Fields: []string{"eventId", "fromId", "groupId", "operate", "message"}},
	{Name: "resp/memberJoinRequestEvent", Alias: "resp_member_join_request_event", Method: MethodPost, Fields: []string{"eventId", "fromId", "groupId", "operate", "message"}},
	{Name: "resp/botInvitedJoinGroupRequestEvent", Alias: "resp_bot_invited_join_group_request_event", Method: MethodPost, Fields: []string{"eventId", "fromId", "groupId", "operate", "message"}},

	{Name: "cmd/execute", Alias: "cmd_execute", Method: MethodPost, Fields: []string{"command"}},
	{Name: "cmd/register", Alias: "cmd_register", Method: MethodPost, Fields: []string{"name", "usage", "description", "alias"}},

	{Name: "countMessage", Alias: "count_message", Method: MethodGet},
	{Name: "fetchMessage", Alias: "fetch_message", Method: MethodGet, Fields: []string{"count"}},
	{Name: "fetchLatestMessage", Alias: "fetch_latest_message", Method: MethodGet, Fields: []string{"count"}},
	{Name: "peekMessage", Alias: "peek_message", Method: MethodGet, Fields: []string{"count"}},
	{Name: "peekLatestMessage", Alias: "peek_latest_message", Method: MethodGet, Fields: []string{"count"}},
}

var commandIndex = func() map[string]*Spec {
	idx := make(map[string]*Spec, 2*len(Commands))
	for _, spec := range Commands {
		idx[spec.Name] = spec
		idx[spec.Alias] = spec
	}
	return idx
}()

// Lookup finds a command by wire name or snake-cased alias.
func Lookup(name string) (*Spec, bool) {
	spec, ok := commandIndex[name]
	return spec, ok
}

// WireCommand converts a catalog name to the WebSocket command form,
// replacing path slashes with underscores.
func WireCommand(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
