package miraigo

import (
	"context"
	"encoding/json"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/event"
	"github.com/miraigo/miraigo/message"
	"github.com/miraigo/miraigo/model"
)

// The typed command surface: one method per catalog command, bound at
// compile time. Optional trailing parameters use the zero value as
// "absent" (quote 0 means no reply quote).

// SessionInfo is the session_info payload.
type SessionInfo struct {
	SessionKey string       `json:"sessionKey"`
	QQ         model.Friend `json:"qq"`
}

// About returns the gateway plugin information.
func (b *Bot) About(ctx context.Context) (map[string]any, error) {
	resp, err := b.CallAPI(ctx, "about", api.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeData[map[string]any](resp)
}

// GetSessionInfo returns the bound account information.
func (b *Bot) GetSessionInfo(ctx context.Context) (SessionInfo, error) {
	resp, err := b.CallAPI(ctx, "sessionInfo", api.MethodGet, nil)
	if err != nil {
		return SessionInfo{}, err
	}
	return api.DecodeData[SessionInfo](resp)
}

// MessageFromID fetches a past message as its message event.
func (b *Bot) MessageFromID(ctx context.Context, id int64) (event.Event, error) {
	resp, err := b.CallAPI(ctx, "messageFromId", api.MethodGet, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	data, err := api.DecodeData[json.RawMessage](resp)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return event.Parse(data)
}

// FriendList returns the bot's friends.
func (b *Bot) FriendList(ctx context.Context) ([]model.Friend, error) {
	resp, err := b.CallAPI(ctx, "friendList", api.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeData[[]model.Friend](resp)
}

// GroupList returns the bot's groups.
func (b *Bot) GroupList(ctx context.Context) ([]model.Group, error) {
	resp, err := b.CallAPI(ctx, "groupList", api.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	return api.DecodeData[[]model.Group](resp)
}

// MemberList returns the members of a group.
func (b *Bot) MemberList(ctx context.Context, target int64) ([]model.GroupMember, error) {
	resp, err := b.CallAPI(ctx, "memberList", api.MethodGet, map[string]any{"target": target})
	if err != nil {
		return nil, err
	}
	return api.DecodeData[[]model.GroupMember](resp)
}

// BotProfile returns the bot's own profile.
func (b *Bot) BotProfile(ctx context.Context) (model.Profile, error) {
	return b.profile(ctx, "botProfile", nil)
}

// FriendProfile returns a friend's profile.
func (b *Bot) FriendProfile(ctx context.Context, target int64) (model.Profile, error) {
	return b.profile(ctx, "friendProfile", map[string]any{"target": target})
}

// MemberProfile returns a group member's profile.
func (b *Bot) MemberProfile(ctx context.Context, target, memberID int64) (model.Profile, error) {
	return b.profile(ctx, "memberProfile", map[string]any{"target": target, "memberId": memberID})
}

func (b *Bot) profile(ctx context.Context, name string, params map[string]any) (model.Profile, error) {
	resp, err := b.CallAPI(ctx, name, api.MethodGet, params)
	if err != nil {
		return model.Profile{}, err
	}
	return api.DecodeData[model.Profile](resp)
}

// SendFriendMessage sends a message chain to a friend. quote, when
// non-zero, makes the message a reply to that message id. The new
// message id is returned.
func (b *Bot) SendFriendMessage(ctx context.Context, target int64, chain message.Chain, quote int64) (int64, error) {
	return b.sendMessage(ctx, "sendFriendMessage", map[string]any{"target": target}, chain, quote)
}

// SendGroupMessage sends a message chain to a group.
func (b *Bot) SendGroupMessage(ctx context.Context, target int64, chain message.Chain, quote int64) (int64, error) {
	return b.sendMessage(ctx, "sendGroupMessage", map[string]any{"target": target}, chain, quote)
}

// SendTempMessage sends a message chain to a group member in a
// temporary session.
func (b *Bot) SendTempMessage(ctx context.Context, qq, group int64, chain message.Chain, quote int64) (int64, error) {
	return b.sendMessage(ctx, "sendTempMessage", map[string]any{"qq": qq, "group": group}, chain, quote)
}

func (b *Bot) sendMessage(ctx context.Context, name string, params map[string]any, chain message.Chain, quote int64) (int64, error) {
	if err := validateOutgoing(chain); err != nil {
		return 0, err
	}
	params["messageChain"] = chain
	if quote != 0 {
		params["quote"] = quote
	}
	resp, err := b.CallAPI(ctx, name, api.MethodPost, params)
	if err != nil {
		return 0, err
	}
	return api.DecodeField[int64](resp, "messageId")
}

// validateOutgoing rejects chains the gateway cannot accept before
// they hit the network.
func validateOutgoing(chain message.Chain) error {
	if chain.Len() == 0 {
		return &api.ParamError{Command: "send", Field: "messageChain", Reason: "empty message chain"}
	}
	return nil
}

// SendNudge pokes a target within the given subject context; kind is
// "Friend", "Group" or "Stranger".
func (b *Bot) SendNudge(ctx context.Context, target, subject int64, kind string) error {
	_, err := b.CallAPI(ctx, "sendNudge", api.MethodPost, map[string]any{
		"target": target, "subject": subject, "kind": kind,
	})
	return err
}

// Recall withdraws a sent message by id.
func (b *Bot) Recall(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "recall", api.MethodPost, map[string]any{"target": target})
	return err
}

// DeleteFriend removes a friend.
func (b *Bot) DeleteFriend(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "deleteFriend", api.MethodPost, map[string]any{"target": target})
	return err
}

// Mute silences a group member for the given number of seconds.
func (b *Bot) Mute(ctx context.Context, target, memberID int64, seconds int) error {
	_, err := b.CallAPI(ctx, "mute", api.MethodPost, map[string]any{
		"target": target, "memberId": memberID, "time": seconds,
	})
	return err
}

// Unmute lifts a member's mute.
func (b *Bot) Unmute(ctx context.Context, target, memberID int64) error {
	_, err := b.CallAPI(ctx, "unmute", api.MethodPost, map[string]any{
		"target": target, "memberId": memberID,
	})
	return err
}

// Kick removes a member from a group.
func (b *Bot) Kick(ctx context.Context, target, memberID int64, msg string) error {
	_, err := b.CallAPI(ctx, "kick", api.MethodPost, map[string]any{
		"target": target, "memberId": memberID, "msg": msg,
	})
	return err
}

// Quit leaves a group.
func (b *Bot) Quit(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "quit", api.MethodPost, map[string]any{"target": target})
	return err
}

// MuteAll mutes the whole group.
func (b *Bot) MuteAll(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "muteAll", api.MethodPost, map[string]any{"target": target})
	return err
}

// UnmuteAll lifts a whole-group mute.
func (b *Bot) UnmuteAll(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "unmuteAll", api.MethodPost, map[string]any{"target": target})
	return err
}

// SetEssence marks a message as group essence.
func (b *Bot) SetEssence(ctx context.Context, target int64) error {
	_, err := b.CallAPI(ctx, "setEssence", api.MethodPost, map[string]any{"target": target})
	return err
}

// MemberAdmin grants or revokes a member's administrator role.
func (b *Bot) MemberAdmin(ctx context.Context, target, memberID int64, assign bool) error {
	_, err := b.CallAPI(ctx, "memberAdmin", api.MethodPost, map[string]any{
		"target": target, "memberId": memberID, "assign": assign,
	})
	return err
}

// GroupConfig reads a group's settings.
func (b *Bot) GroupConfig(ctx context.Context, target int64) (model.GroupConfig, error) {
	resp, err := b.CallAPI(ctx, "groupConfig", api.MethodRestGet, map[string]any{"target": target})
	if err != nil {
		return model.GroupConfig{}, err
	}
	return api.DecodeData[model.GroupConfig](resp)
}

// SetGroupConfig updates a group's settings.
func (b *Bot) SetGroupConfig(ctx context.Context, target int64, config model.GroupConfig) error {
	_, err := b.CallAPI(ctx, "groupConfig", api.MethodRestPost, map[string]any{
		"target": target, "config": config,
	})
	return err
}

// MemberInfo reads a member's group-local record.
func (b *Bot) MemberInfo(ctx context.Context, target, memberID int64) (model.MemberInfo, error) {
	resp, err := b.CallAPI(ctx, "memberInfo", api.MethodRestGet, map[string]any{
		"target": target, "memberId": memberID,
	})
	if err != nil {
		return model.MemberInfo{}, err
	}
	return api.DecodeData[model.MemberInfo](resp)
}

// SetMemberInfo updates a member's group-local record.
func (b *Bot) SetMemberInfo(ctx context.Context, target, memberID int64, info model.MemberInfo) error {
	_, err := b.CallAPI(ctx, "memberInfo", api.MethodRestPost, map[string]any{
		"target": target, "memberId": memberID, "info": info,
	})
	return err
}

// FileList lists a directory in group file storage; id "" is the
// root.
func (b *Bot) FileList(ctx context.Context, id string, target int64, withDownloadInfo bool) ([]model.FileProperties, error) {
	resp, err := b.CallAPI(ctx, "file/list", api.MethodGet, map[string]any{
		"id": id, "target": target, "withDownloadInfo": withDownloadInfo,
	})
	if err != nil {
		return nil, err
	}
	return api.DecodeData[[]model.FileProperties](resp)
}

// FileInfo describes one file.
func (b *Bot) FileInfo(ctx context.Context, id string, target int64, withDownloadInfo bool) (model.FileProperties, error) {
	resp, err := b.CallAPI(ctx, "file/info", api.MethodGet, map[string]any{
		"id": id, "target": target, "withDownloadInfo": withDownloadInfo,
	})
	if err != nil {
		return model.FileProperties{}, err
	}
	return api.DecodeData[model.FileProperties](resp)
}

// FileMkdir creates a directory under the given parent id.
func (b *Bot) FileMkdir(ctx context.Context, id string, target int64, directoryName string) (model.FileProperties, error) {
	resp, err := b.CallAPI(ctx, "file/mkdir", api.MethodPost, map[string]any{
		"id": id, "target": target, "directoryName": directoryName,
	})
	if err != nil {
		return model.FileProperties{}, err
	}
	return api.DecodeData[model.FileProperties](resp)
}

// FileDelete removes a file.
func (b *Bot) FileDelete(ctx context.Context, id string, target int64) error {
	_, err := b.CallAPI(ctx, "file/delete", api.MethodPost, map[string]any{"id": id, "target": target})
	return err
}

// FileMove moves a file into another directory.
func (b *Bot) FileMove(ctx context.Context, id string, target int64, moveTo string) error {
	_, err := b.CallAPI(ctx, "file/move", api.MethodPost, map[string]any{
		"id": id, "target": target, "moveTo": moveTo,
	})
	return err
}

// FileRename renames a file.
func (b *Bot) FileRename(ctx context.Context, id string, target int64, renameTo string) error {
	_, err := b.CallAPI(ctx, "file/rename", api.MethodPost, map[string]any{
		"id": id, "target": target, "renameTo": renameTo,
	})
	return err
}

// FileUpload uploads a local file into group storage; kind is
// "group", dir "" targets the root.
func (b *Bot) FileUpload(ctx context.Context, kind string, target int64, path, dir string) (model.FileProperties, error) {
	resp, err := b.CallAPI(ctx, "file/upload", api.MethodMultipart, map[string]any{
		"type": kind, "target": target, "file": path, "path": dir,
	})
	if err != nil {
		return model.FileProperties{}, err
	}
	return api.DecodeData[model.FileProperties](resp)
}

// UploadImage uploads a local image and returns the reusable Image
// component; kind is "friend", "group" or "temp".
func (b *Bot) UploadImage(ctx context.Context, kind, path string) (*message.Image, error) {
	resp, err := b.CallAPI(ctx, "uploadImage", api.MethodMultipart, map[string]any{
		"type": kind, "img": path,
	})
	if err != nil {
		return nil, err
	}
	return api.DecodeData[*message.Image](resp)
}

// UploadVoice uploads a local voice clip; kind is "group", "friend"
// or "temp".
func (b *Bot) UploadVoice(ctx context.Context, kind, path string) (*message.Voice, error) {
	resp, err := b.CallAPI(ctx, "uploadVoice", api.MethodMultipart, map[string]any{
		"type": kind, "voice": path,
	})
	if err != nil {
		return nil, err
	}
	return api.DecodeData[*message.Voice](resp)
}

// CmdExecute runs a console command on the gateway.
func (b *Bot) CmdExecute(ctx context.Context, command message.Chain) error {
	_, err := b.CallAPI(ctx, "cmd/execute", api.MethodPost, map[string]any{"command": command})
	return err
}

// CmdRegister registers a console command.
func (b *Bot) CmdRegister(ctx context.Context, name, usage, description string, alias []string) error {
	params := map[string]any{"name": name, "usage": usage, "description": description}
	if len(alias) > 0 {
		params["alias"] = alias
	}
	_, err := b.CallAPI(ctx, "cmd/register", api.MethodPost, params)
	return err
}
