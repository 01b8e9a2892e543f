package api

import (
	"fmt"

	"github.com/miraigo/miraigo/model"
)

// operateCodes maps a composed RespOperate to the integer code each
// resp command expects on the wire. Ban composes with bitwise OR.
var operateCodes = map[string]map[model.RespOperate]int{
	"resp/newFriendRequestEvent": {
		model.RespAllow:                   0,
		model.RespDecline:                 1,
		model.RespDecline | model.RespBan: 2,
	},
	"resp/memberJoinRequestEvent": {
		model.RespAllow:                   0,
		model.RespDecline:                 1,
		model.RespIgnore:                  2,
		model.RespDecline | model.RespBan: 3,
		model.RespIgnore | model.RespBan:  4,
	},
	"resp/botInvitedJoinGroupRequestEvent": {
		model.RespAllow:   0,
		model.RespDecline: 1,
	},
}

// OperateCode translates a response operation into the wire code for
// the given resp command. Combinations the command does not accept
// (for example banning on an invitation) fail with a ParamError.
func OperateCode(command string, op model.RespOperate) (int, error) {
	codes, ok := operateCodes[command]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	code, ok := codes[op]
	if !ok {
		return 0, &ParamError{
			Command: command,
			Field:   "operate",
			Reason:  fmt.Sprintf("unsupported operation %b", op),
		}
	}
	return code, nil
}
