package api

import (
	"errors"
	"fmt"
)

// statusText carries the canonical messages for known gateway codes.
// Unknown codes pass the gateway's own message through verbatim.
var statusText = map[int]string{
	0:   "ok",
	1:   "wrong verify key",
	2:   "bot not found",
	3:   "session invalid or expired",
	4:   "session not authenticated",
	5:   "target not found",
	6:   "file not found",
	10:  "no permission",
	20:  "bot muted",
	30:  "message too long",
	400: "bad arguments",
	500: "gateway internal error",
}

// Error is a gateway domain error: the command reached the gateway and
// came back with a non-zero code.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string {
	text := statusText[e.Code]
	switch {
	case text != "" && e.Msg != "":
		return fmt.Sprintf("gateway error %d (%s): %s", e.Code, text, e.Msg)
	case text != "":
		return fmt.Sprintf("gateway error %d: %s", e.Code, text)
	default:
		return fmt.Sprintf("gateway error %d: %s", e.Code, e.Msg)
	}
}

// ParamError reports local argument validation failure; the command
// never reached the network.
type ParamError struct {
	Command string
	Field   string
	Reason  string
}

func (e *ParamError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: parameter %s: %s", e.Command, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// ErrWrongMethod is returned when a proxy is driven against its
// declared direction, e.g. Set on a read-only command.
var ErrWrongMethod = errors.New("command does not support this method")

// ErrUnknownCommand is returned when a command name or alias is not in
// the catalog.
var ErrUnknownCommand = errors.New("unknown command")
