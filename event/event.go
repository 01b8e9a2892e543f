// Package event models the gateway's asynchronous event stream: a
// closed hierarchy of tagged variants selected by a string "type"
// discriminator. Dispatch walks the ancestry chain of each event, so a
// handler subscribed to a parent type (for example MessageEvent) fires
// for every subtype.
package event

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Event is implemented by every gateway event.
type Event interface {
	// EventType returns the wire discriminator, e.g. "FriendMessage".
	EventType() string
}

// TypeEvent is the root of the hierarchy; subscribing to it receives
// every event.
const TypeEvent = "Event"

// Abstract and concrete event type names.
const (
	TypeBotEvent     = "BotEvent"
	TypeFriendEvent  = "FriendEvent"
	TypeGroupEvent   = "GroupEvent"
	TypeRequestEvent = "RequestEvent"
	TypeCommandEvent = "CommandEvent"
	TypeMessageEvent = "MessageEvent"

	TypeBotOnlineEvent         = "BotOnlineEvent"
	TypeBotOfflineEventActive  = "BotOfflineEventActive"
	TypeBotOfflineEventForce   = "BotOfflineEventForce"
	TypeBotOfflineEventDropped = "BotOfflineEventDropped"
	TypeBotReloginEvent        = "BotReloginEvent"

	TypeFriendInputStatusChangedEvent = "FriendInputStatusChangedEvent"
	TypeFriendNickChangedEvent        = "FriendNickChangedEvent"
	TypeFriendRecallEvent             = "FriendRecallEvent"

	TypeBotGroupPermissionChangeEvent         = "BotGroupPermissionChangeEvent"
	TypeBotMuteEvent                          = "BotMuteEvent"
	TypeBotUnmuteEvent                        = "BotUnmuteEvent"
	TypeBotJoinGroupEvent                     = "BotJoinGroupEvent"
	TypeBotLeaveEventActive                   = "BotLeaveEventActive"
	TypeBotLeaveEventKick                     = "BotLeaveEventKick"
	TypeGroupRecallEvent                      = "GroupRecallEvent"
	TypeGroupNameChangeEvent                  = "GroupNameChangeEvent"
	TypeGroupEntranceAnnouncementChangeEvent  = "GroupEntranceAnnouncementChangeEvent"
	TypeGroupMuteAllEvent                     = "GroupMuteAllEvent"
	TypeGroupAllowAnonymousChatEvent          = "GroupAllowAnonymousChatEvent"
	TypeGroupAllowConfessTalkEvent            = "GroupAllowConfessTalkEvent"
	TypeGroupAllowMemberInviteEvent           = "GroupAllowMemberInviteEvent"
	TypeMemberJoinEvent                       = "MemberJoinEvent"
	TypeMemberLeaveEventKick                  = "MemberLeaveEventKick"
	TypeMemberLeaveEventQuit                  = "MemberLeaveEventQuit"
	TypeMemberCardChangeEvent                 = "MemberCardChangeEvent"
	TypeMemberSpecialTitleChangeEvent         = "MemberSpecialTitleChangeEvent"
	TypeMemberPermissionChangeEvent           = "MemberPermissionChangeEvent"
	TypeMemberMuteEvent                       = "MemberMuteEvent"
	TypeMemberUnmuteEvent                     = "MemberUnmuteEvent"
	TypeMemberHonorChangeEvent                = "MemberHonorChangeEvent"

	TypeNewFriendRequestEvent           = "NewFriendRequestEvent"
	TypeMemberJoinRequestEvent          = "MemberJoinRequestEvent"
	TypeBotInvitedJoinGroupRequestEvent = "BotInvitedJoinGroupRequestEvent"

	TypeCommandExecutedEvent = "CommandExecutedEvent"

	TypeNudgeEvent = "NudgeEvent"

	TypeFriendMessage      = "FriendMessage"
	TypeGroupMessage       = "GroupMessage"
	TypeTempMessage        = "TempMessage"
	TypeStrangerMessage    = "StrangerMessage"
	TypeOtherClientMessage = "OtherClientMessage"
)

// parents maps each type name to its immediate parent. Types not
// present (and unknown discriminators) are direct children of Event.
var parents = map[string]string{
	TypeBotOnlineEvent:         TypeBotEvent,
	TypeBotOfflineEventActive:  TypeBotEvent,
	TypeBotOfflineEventForce:   TypeBotEvent,
	TypeBotOfflineEventDropped: TypeBotEvent,
	TypeBotReloginEvent:        TypeBotEvent,

	TypeFriendInputStatusChangedEvent: TypeFriendEvent,
	TypeFriendNickChangedEvent:        TypeFriendEvent,

	TypeBotGroupPermissionChangeEvent:        TypeGroupEvent,
	TypeBotMuteEvent:                         TypeGroupEvent,
	TypeBotUnmuteEvent:                       TypeGroupEvent,
	TypeBotJoinGroupEvent:                    TypeGroupEvent,
	TypeBotLeaveEventActive:                  TypeGroupEvent,
	TypeBotLeaveEventKick:                    TypeGroupEvent,
	TypeGroupRecallEvent:                     TypeGroupEvent,
	TypeGroupNameChangeEvent:                 TypeGroupEvent,
	TypeGroupEntranceAnnouncementChangeEvent: TypeGroupEvent,
	TypeGroupMuteAllEvent:                    TypeGroupEvent,
	TypeGroupAllowAnonymousChatEvent:         TypeGroupEvent,
	TypeGroupAllowConfessTalkEvent:           TypeGroupEvent,
	TypeGroupAllowMemberInviteEvent:          TypeGroupEvent,
	TypeMemberJoinEvent:                      TypeGroupEvent,
	TypeMemberLeaveEventKick:                 TypeGroupEvent,
	TypeMemberLeaveEventQuit:                 TypeGroupEvent,
	TypeMemberCardChangeEvent:                TypeGroupEvent,
	TypeMemberSpecialTitleChangeEvent:        TypeGroupEvent,
	TypeMemberPermissionChangeEvent:          TypeGroupEvent,
	TypeMemberMuteEvent:                      TypeGroupEvent,
	TypeMemberUnmuteEvent:                    TypeGroupEvent,
	TypeMemberHonorChangeEvent:               TypeGroupEvent,

	TypeNewFriendRequestEvent:           TypeRequestEvent,
	TypeMemberJoinRequestEvent:          TypeRequestEvent,
	TypeBotInvitedJoinGroupRequestEvent: TypeRequestEvent,

	TypeCommandExecutedEvent: TypeCommandEvent,

	TypeFriendMessage:      TypeMessageEvent,
	TypeGroupMessage:       TypeMessageEvent,
	TypeTempMessage:        TypeMessageEvent,
	TypeStrangerMessage:    TypeMessageEvent,
	TypeOtherClientMessage: TypeMessageEvent,
}

var (
	chainMu    sync.RWMutex
	chainCache = map[string][]string{}
)

// Ancestry returns the dispatch chain for a type name: the type
// itself, its parents in order, ending at Event. Chains are cached.
func Ancestry(name string) []string {
	chainMu.RLock()
	chain, ok := chainCache[name]
	chainMu.RUnlock()
	if ok {
		return chain
	}

	chain = []string{name}
	for cur := name; cur != TypeEvent; {
		parent, ok := parents[cur]
		if !ok {
			parent = TypeEvent
		}
		chain = append(chain, parent)
		cur = parent
	}

	chainMu.Lock()
	chainCache[name] = chain
	chainMu.Unlock()
	return chain
}

// decoders maps concrete discriminators to decode functions.
var decoders = map[string]func([]byte) (Event, error){
	TypeBotOnlineEvent:         decodeInto[*BotOnlineEvent],
	TypeBotOfflineEventActive:  decodeInto[*BotOfflineEventActive],
	TypeBotOfflineEventForce:   decodeInto[*BotOfflineEventForce],
	TypeBotOfflineEventDropped: decodeInto[*BotOfflineEventDropped],
	TypeBotReloginEvent:        decodeInto[*BotReloginEvent],

	TypeFriendInputStatusChangedEvent: decodeInto[*FriendInputStatusChangedEvent],
	TypeFriendNickChangedEvent:        decodeInto[*FriendNickChangedEvent],
	TypeFriendRecallEvent:             decodeInto[*FriendRecallEvent],

	TypeBotGroupPermissionChangeEvent:        decodeInto[*BotGroupPermissionChangeEvent],
	TypeBotMuteEvent:                         decodeInto[*BotMuteEvent],
	TypeBotUnmuteEvent:                       decodeInto[*BotUnmuteEvent],
	TypeBotJoinGroupEvent:                    decodeInto[*BotJoinGroupEvent],
	TypeBotLeaveEventActive:                  decodeInto[*BotLeaveEventActive],
	TypeBotLeaveEventKick:                    decodeInto[*BotLeaveEventKick],
	TypeGroupRecallEvent:                     decodeInto[*GroupRecallEvent],
	TypeGroupNameChangeEvent:                 decodeInto[*GroupNameChangeEvent],
	TypeGroupEntranceAnnouncementChangeEvent: decodeInto[*GroupEntranceAnnouncementChangeEvent],
	TypeGroupMuteAllEvent:                    decodeInto[*GroupMuteAllEvent],
	TypeGroupAllowAnonymousChatEvent:         decodeInto[*GroupAllowAnonymousChatEvent],
	TypeGroupAllowConfessTalkEvent:           decodeInto[*GroupAllowConfessTalkEvent],
	TypeGroupAllowMemberInviteEvent:          decodeInto[*GroupAllowMemberInviteEvent],
	TypeMemberJoinEvent:                      decodeInto[*MemberJoinEvent],
	TypeMemberLeaveEventKick:                 decodeInto[*MemberLeaveEventKick],
	TypeMemberLeaveEventQuit:                 decodeInto[*MemberLeaveEventQuit],
	TypeMemberCardChangeEvent:                decodeInto[*MemberCardChangeEvent],
	TypeMemberSpecialTitleChangeEvent:        decodeInto[*MemberSpecialTitleChangeEvent],
	TypeMemberPermissionChangeEvent:          decodeInto[*MemberPermissionChangeEvent],
	TypeMemberMuteEvent:                      decodeInto[*MemberMuteEvent],
	TypeMemberUnmuteEvent:                    decodeInto[*MemberUnmuteEvent],
	TypeMemberHonorChangeEvent:               decodeInto[*MemberHonorChangeEvent],

	TypeNewFriendRequestEvent:           decodeInto[*NewFriendRequestEvent],
	TypeMemberJoinRequestEvent:          decodeInto[*MemberJoinRequestEvent],
	TypeBotInvitedJoinGroupRequestEvent: decodeInto[*BotInvitedJoinGroupRequestEvent],

	TypeCommandExecutedEvent: decodeInto[*CommandExecutedEvent],

	TypeNudgeEvent: decodeInto[*NudgeEvent],

	TypeFriendMessage:      decodeInto[*FriendMessage],
	TypeGroupMessage:       decodeInto[*GroupMessage],
	TypeTempMessage:        decodeInto[*TempMessage],
	TypeStrangerMessage:    decodeInto[*StrangerMessage],
	TypeOtherClientMessage: decodeInto[*OtherClientMessage],
}

func decodeInto[T Event](raw []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Parse decodes a raw wire event into its typed form. Unknown
// discriminators degrade to *Unknown rather than failing.
func Parse(raw json.RawMessage) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	decode, ok := decoders[probe.Type]
	if !ok {
		return &Unknown{Kind: probe.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	ev, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", probe.Type, err)
	}
	return ev, nil
}
