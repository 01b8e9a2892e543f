package miraigo

import (
	"context"
	"fmt"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/event"
	"github.com/miraigo/miraigo/message"
	"github.com/miraigo/miraigo/model"
)

// Send replies to a message event, resolving the destination from the
// event's kind: friend messages go back to the friend, group messages
// to the group, temp messages to the member's temp session. With
// quote true the reply quotes the source message.
func (b *Bot) Send(ctx context.Context, to event.MessageEvent, chain message.Chain, quote bool) (int64, error) {
	var quoteID int64
	if quote {
		quoteID = to.Chain().MessageID()
		if quoteID < 0 {
			quoteID = 0
		}
	}

	switch ev := to.(type) {
	case *event.FriendMessage:
		return b.SendFriendMessage(ctx, ev.Sender.ID, chain, quoteID)
	case *event.StrangerMessage:
		return b.SendFriendMessage(ctx, ev.Sender.ID, chain, quoteID)
	case *event.GroupMessage:
		return b.SendGroupMessage(ctx, ev.Group().ID, chain, quoteID)
	case *event.TempMessage:
		return b.SendTempMessage(ctx, ev.Sender.ID, ev.Group().ID, chain, quoteID)
	default:
		return 0, fmt.Errorf("cannot resolve send target from %s", to.EventType())
	}
}

// SendText is Send with a single plain-text component.
func (b *Bot) SendText(ctx context.Context, to event.MessageEvent, text string, quote bool) (int64, error) {
	return b.Send(ctx, to, message.Text(text), quote)
}

// respCommands maps request events to their response commands.
var respCommands = map[string]string{
	event.TypeNewFriendRequestEvent:           "resp/newFriendRequestEvent",
	event.TypeMemberJoinRequestEvent:          "resp/memberJoinRequestEvent",
	event.TypeBotInvitedJoinGroupRequestEvent: "resp/botInvitedJoinGroupRequestEvent",
}

// respond converts a request event into its response command.
func (b *Bot) respond(ctx context.Context, req event.RequestEvent, op model.RespOperate, msg string) error {
	command, ok := respCommands[req.EventType()]
	if !ok {
		return fmt.Errorf("%s is not a respondable request event", req.EventType())
	}
	code, err := api.OperateCode(command, op)
	if err != nil {
		return err
	}
	key := req.Key()
	_, err = b.CallAPI(ctx, command, api.MethodPost, map[string]any{
		"eventId": key.EventID,
		"fromId":  key.FromID,
		"groupId": key.GroupID,
		"operate": code,
		"message": msg,
	})
	return err
}

// Allow accepts a request event.
func (b *Bot) Allow(ctx context.Context, req event.RequestEvent, msg string) error {
	return b.respond(ctx, req, model.RespAllow, msg)
}

// Decline rejects a request event; ban additionally blocks the
// requester.
func (b *Bot) Decline(ctx context.Context, req event.RequestEvent, msg string, ban bool) error {
	op := model.RespDecline
	if ban {
		op |= model.RespBan
	}
	return b.respond(ctx, req, op, msg)
}

// Ignore drops a request event without answering; ban additionally
// blocks the requester.
func (b *Bot) Ignore(ctx context.Context, req event.RequestEvent, msg string, ban bool) error {
	op := model.RespIgnore
	if ban {
		op |= model.RespBan
	}
	return b.respond(ctx, req, op, msg)
}

// GetFriend looks a friend up by id.
func (b *Bot) GetFriend(ctx context.Context, id int64) (*model.Friend, error) {
	friends, err := b.FriendList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range friends {
		if friends[i].ID == id {
			return &friends[i], nil
		}
	}
	return nil, nil
}

// GetGroup looks a group up by id.
func (b *Bot) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	groups, err := b.GroupList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i], nil
		}
	}
	return nil, nil
}

// GetGroupMember looks a member up within a group.
func (b *Bot) GetGroupMember(ctx context.Context, groupID, id int64) (*model.GroupMember, error) {
	members, err := b.MemberList(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].ID == id {
			return &members[i], nil
		}
	}
	return nil, nil
}
