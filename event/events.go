package event

import (
	"encoding/json"

	"github.com/miraigo/miraigo/message"
	"github.com/miraigo/miraigo/model"
)

// MessageEvent is implemented by the five message event variants.
type MessageEvent interface {
	Event
	// Chain returns the message content.
	Chain() message.Chain
	// SenderID returns the id of the sending entity.
	SenderID() int64
}

// RequestEvent is implemented by the three request-approval events; it
// exposes the fields the resp commands need.
type RequestEvent interface {
	Event
	Key() RequestKey
}

// RequestKey identifies an inbound request for response commands.
type RequestKey struct {
	EventID int64 `json:"eventId"`
	FromID  int64 `json:"fromId"`
	GroupID int64 `json:"groupId"`
}

// Bot lifecycle events.

type BotOnlineEvent struct {
	QQ int64 `json:"qq"`
}

func (*BotOnlineEvent) EventType() string { return TypeBotOnlineEvent }

type BotOfflineEventActive struct {
	QQ int64 `json:"qq"`
}

func (*BotOfflineEventActive) EventType() string { return TypeBotOfflineEventActive }

type BotOfflineEventForce struct {
	QQ int64 `json:"qq"`
}

func (*BotOfflineEventForce) EventType() string { return TypeBotOfflineEventForce }

type BotOfflineEventDropped struct {
	QQ int64 `json:"qq"`
}

func (*BotOfflineEventDropped) EventType() string { return TypeBotOfflineEventDropped }

type BotReloginEvent struct {
	QQ int64 `json:"qq"`
}

func (*BotReloginEvent) EventType() string { return TypeBotReloginEvent }

// Friend events.

type FriendInputStatusChangedEvent struct {
	Friend    model.Friend `json:"friend"`
	Inputting bool         `json:"inputting"`
}

func (*FriendInputStatusChangedEvent) EventType() string { return TypeFriendInputStatusChangedEvent }

type FriendNickChangedEvent struct {
	Friend model.Friend `json:"friend"`
	From   string       `json:"from"`
	To     string       `json:"to"`
}

func (*FriendNickChangedEvent) EventType() string { return TypeFriendNickChangedEvent }

// FriendRecallEvent does not carry a Friend and sits directly under
// Event, matching the gateway's shape.
type FriendRecallEvent struct {
	AuthorID  int64 `json:"authorId"`
	MessageID int64 `json:"messageId"`
	Time      int64 `json:"time"`
	Operator  int64 `json:"operator"`
}

func (*FriendRecallEvent) EventType() string { return TypeFriendRecallEvent }

// Group events. Some carry the group directly; others only through the
// member or operator.

type BotGroupPermissionChangeEvent struct {
	Origin  model.Permission `json:"origin"`
	Current model.Permission `json:"current"`
	Group   model.Group      `json:"group"`
}

func (*BotGroupPermissionChangeEvent) EventType() string { return TypeBotGroupPermissionChangeEvent }

type BotMuteEvent struct {
	DurationSeconds int                `json:"durationSeconds"`
	Operator        *model.GroupMember `json:"operator,omitempty"`
}

func (*BotMuteEvent) EventType() string { return TypeBotMuteEvent }

// Group returns the group the bot was muted in.
func (e *BotMuteEvent) Group() model.Group {
	if e.Operator != nil {
		return e.Operator.Group
	}
	return model.Group{}
}

type BotUnmuteEvent struct {
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*BotUnmuteEvent) EventType() string { return TypeBotUnmuteEvent }

type BotJoinGroupEvent struct {
	Group model.Group `json:"group"`
}

func (*BotJoinGroupEvent) EventType() string { return TypeBotJoinGroupEvent }

type BotLeaveEventActive struct {
	Group model.Group `json:"group"`
}

func (*BotLeaveEventActive) EventType() string { return TypeBotLeaveEventActive }

type BotLeaveEventKick struct {
	Group model.Group `json:"group"`
}

func (*BotLeaveEventKick) EventType() string { return TypeBotLeaveEventKick }

type GroupRecallEvent struct {
	AuthorID  int64              `json:"authorId"`
	MessageID int64              `json:"messageId"`
	Time      int64              `json:"time"`
	Group     model.Group        `json:"group"`
	Operator  *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupRecallEvent) EventType() string { return TypeGroupRecallEvent }

type GroupNameChangeEvent struct {
	Origin   string             `json:"origin"`
	Current  string             `json:"current"`
	Group    model.Group        `json:"group"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupNameChangeEvent) EventType() string { return TypeGroupNameChangeEvent }

type GroupEntranceAnnouncementChangeEvent struct {
	Origin   string             `json:"origin"`
	Current  string             `json:"current"`
	Group    model.Group        `json:"group"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupEntranceAnnouncementChangeEvent) EventType() string {
	return TypeGroupEntranceAnnouncementChangeEvent
}

type GroupMuteAllEvent struct {
	Origin   bool               `json:"origin"`
	Current  bool               `json:"current"`
	Group    model.Group        `json:"group"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupMuteAllEvent) EventType() string { return TypeGroupMuteAllEvent }

type GroupAllowAnonymousChatEvent struct {
	Origin   bool               `json:"origin"`
	Current  bool               `json:"current"`
	Group    model.Group        `json:"group"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupAllowAnonymousChatEvent) EventType() string { return TypeGroupAllowAnonymousChatEvent }

type GroupAllowConfessTalkEvent struct {
	Origin  bool        `json:"origin"`
	Current bool        `json:"current"`
	Group   model.Group `json:"group"`
	IsByBot bool        `json:"isByBot"`
}

func (*GroupAllowConfessTalkEvent) EventType() string { return TypeGroupAllowConfessTalkEvent }

type GroupAllowMemberInviteEvent struct {
	Origin   bool               `json:"origin"`
	Current  bool               `json:"current"`
	Group    model.Group        `json:"group"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*GroupAllowMemberInviteEvent) EventType() string { return TypeGroupAllowMemberInviteEvent }

type MemberJoinEvent struct {
	Member model.GroupMember `json:"member"`
}

func (*MemberJoinEvent) EventType() string { return TypeMemberJoinEvent }

// Group returns the group the member joined.
func (e *MemberJoinEvent) Group() model.Group { return e.Member.Group }

type MemberLeaveEventKick struct {
	Member   model.GroupMember  `json:"member"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*MemberLeaveEventKick) EventType() string { return TypeMemberLeaveEventKick }

type MemberLeaveEventQuit struct {
	Member model.GroupMember `json:"member"`
}

func (*MemberLeaveEventQuit) EventType() string { return TypeMemberLeaveEventQuit }

type MemberCardChangeEvent struct {
	Origin  string            `json:"origin"`
	Current string            `json:"current"`
	Member  model.GroupMember `json:"member"`
}

func (*MemberCardChangeEvent) EventType() string { return TypeMemberCardChangeEvent }

type MemberSpecialTitleChangeEvent struct {
	Origin  string            `json:"origin"`
	Current string            `json:"current"`
	Member  model.GroupMember `json:"member"`
}

func (*MemberSpecialTitleChangeEvent) EventType() string { return TypeMemberSpecialTitleChangeEvent }

type MemberPermissionChangeEvent struct {
	Origin  model.Permission  `json:"origin"`
	Current model.Permission  `json:"current"`
	Member  model.GroupMember `json:"member"`
}

func (*MemberPermissionChangeEvent) EventType() string { return TypeMemberPermissionChangeEvent }

type MemberMuteEvent struct {
	DurationSeconds int                `json:"durationSeconds"`
	Member          model.GroupMember  `json:"member"`
	Operator        *model.GroupMember `json:"operator,omitempty"`
}

func (*MemberMuteEvent) EventType() string { return TypeMemberMuteEvent }

type MemberUnmuteEvent struct {
	Member   model.GroupMember  `json:"member"`
	Operator *model.GroupMember `json:"operator,omitempty"`
}

func (*MemberUnmuteEvent) EventType() string { return TypeMemberUnmuteEvent }

type MemberHonorChangeEvent struct {
	Member model.GroupMember `json:"member"`
	// Action is "achieve" or "lose".
	Action string `json:"action"`
	Honor  string `json:"honor"`
}

func (*MemberHonorChangeEvent) EventType() string { return TypeMemberHonorChangeEvent }

// Request-approval events.

type NewFriendRequestEvent struct {
	RequestKey
	Nick    string `json:"nick"`
	Message string `json:"message"`
}

func (*NewFriendRequestEvent) EventType() string { return TypeNewFriendRequestEvent }
func (e *NewFriendRequestEvent) Key() RequestKey { return e.RequestKey }

type MemberJoinRequestEvent struct {
	RequestKey
	GroupName string `json:"groupName"`
	Nick      string `json:"nick"`
	Message   string `json:"message"`
}

func (*MemberJoinRequestEvent) EventType() string { return TypeMemberJoinRequestEvent }
func (e *MemberJoinRequestEvent) Key() RequestKey { return e.RequestKey }

type BotInvitedJoinGroupRequestEvent struct {
	RequestKey
	GroupName string `json:"groupName"`
	Nick      string `json:"nick"`
	Message   string `json:"message"`
}

func (*BotInvitedJoinGroupRequestEvent) EventType() string {
	return TypeBotInvitedJoinGroupRequestEvent
}
func (e *BotInvitedJoinGroupRequestEvent) Key() RequestKey { return e.RequestKey }

// Command events.

type CommandExecutedEvent struct {
	Name   string             `json:"name"`
	Friend *model.Friend      `json:"friend,omitempty"`
	Member *model.GroupMember `json:"member,omitempty"`
	Args   message.Chain      `json:"args"`
}

func (*CommandExecutedEvent) EventType() string { return TypeCommandExecutedEvent }

// NudgeEvent is an avatar poke outside a message chain.
type NudgeEvent struct {
	FromID  int64         `json:"fromId"`
	Target  int64         `json:"target"`
	Subject model.Subject `json:"subject"`
	Action  string        `json:"action"`
	Suffix  string        `json:"suffix"`
}

func (*NudgeEvent) EventType() string { return TypeNudgeEvent }

// Message events.

type FriendMessage struct {
	Sender       model.Friend  `json:"sender"`
	MessageChain message.Chain `json:"messageChain"`
}

func (*FriendMessage) EventType() string { return TypeFriendMessage }
func (e *FriendMessage) Chain() message.Chain { return e.MessageChain }
func (e *FriendMessage) SenderID() int64 { return e.Sender.ID }

type GroupMessage struct {
	Sender       model.GroupMember `json:"sender"`
	MessageChain message.Chain     `json:"messageChain"`
}

func (*GroupMessage) EventType() string { return TypeGroupMessage }
func (e *GroupMessage) Chain() message.Chain { return e.MessageChain }
func (e *GroupMessage) SenderID() int64 { return e.Sender.ID }

// Group returns the group the message was sent in.
func (e *GroupMessage) Group() model.Group { return e.Sender.Group }

type TempMessage struct {
	Sender       model.GroupMember `json:"sender"`
	MessageChain message.Chain     `json:"messageChain"`
}

func (*TempMessage) EventType() string { return TypeTempMessage }
func (e *TempMessage) Chain() message.Chain { return e.MessageChain }
func (e *TempMessage) SenderID() int64 { return e.Sender.ID }

// Group returns the group the temp session originated from.
func (e *TempMessage) Group() model.Group { return e.Sender.Group }

type StrangerMessage struct {
	Sender       model.Friend  `json:"sender"`
	MessageChain message.Chain `json:"messageChain"`
}

func (*StrangerMessage) EventType() string { return TypeStrangerMessage }
func (e *StrangerMessage) Chain() message.Chain { return e.MessageChain }
func (e *StrangerMessage) SenderID() int64 { return e.Sender.ID }

type OtherClientMessage struct {
	Sender       model.Client  `json:"sender"`
	MessageChain message.Chain `json:"messageChain"`
}

func (*OtherClientMessage) EventType() string { return TypeOtherClientMessage }
func (e *OtherClientMessage) Chain() message.Chain { return e.MessageChain }
func (e *OtherClientMessage) SenderID() int64 { return e.Sender.ID }

// Unknown preserves an event whose discriminator this SDK does not
// recognize; it dispatches directly under Event.
type Unknown struct {
	Kind string
	Raw  json.RawMessage
}

func (e *Unknown) EventType() string {
	if e.Kind != "" {
		return e.Kind
	}
	return "Unknown"
}
