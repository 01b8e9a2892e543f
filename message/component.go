// Package message models the gateway's message chains: ordered
// sequences of typed components with a string discriminator on the
// wire. Source and Quote metadata components are split off the head of
// the chain and exposed as accessors rather than iterated content.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Component is a single element of a message chain.
type Component interface {
	// Type returns the wire discriminator, e.g. "Plain".
	Type() string
	// String returns the plain-text rendering of the component.
	// Components without a text form render as "".
	String() string
	// AsMiraiCode returns the mirai-code rendering of the component.
	AsMiraiCode() string
}

// decoders maps wire discriminators to component decode functions.
// Unknown discriminators degrade to Unknown rather than failing.
var decoders = map[string]func([]byte) (Component, error){
	"Source":     decodeInto[*Source],
	"Quote":      decodeInto[*Quote],
	"Plain":      decodeInto[*Plain],
	"At":         decodeInto[*At],
	"AtAll":      decodeInto[*AtAll],
	"Face":       decodeInto[*Face],
	"Image":      decodeInto[*Image],
	"FlashImage": decodeInto[*FlashImage],
	"Voice":      decodeInto[*Voice],
	"Xml":        decodeInto[*Xml],
	"Json":       decodeInto[*JSON],
	"App":        decodeInto[*App],
	"Poke":       decodeInto[*Poke],
	"Dice":       decodeInto[*Dice],
	"MusicShare": decodeInto[*MusicShare],
	"Forward":    decodeInto[*Forward],
	"File":       decodeInto[*File],
	"MiraiCode":  decodeInto[*MiraiCode],
}

func decodeInto[T Component](raw []byte) (Component, error) {
	var c T
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode parses one wire-form component. Components with an
// unrecognized type are returned as *Unknown carrying the raw JSON.
func Decode(raw json.RawMessage) (Component, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode message component: %w", err)
	}
	decode, ok := decoders[probe.Type]
	if !ok {
		return &Unknown{Kind: probe.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	c, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s component: %w", probe.Type, err)
	}
	return c, nil
}

// Encode renders a component to its wire form, with the type
// discriminator spliced in ahead of the component's own fields.
func Encode(c Component) (json.RawMessage, error) {
	if u, ok := c.(*Unknown); ok && len(u.Raw) > 0 {
		return u.Raw, nil
	}
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s component: %w", c.Type(), err)
	}
	head := `{"type":` + fmt.Sprintf("%q", c.Type())
	if string(body) == "{}" {
		return json.RawMessage(head + "}"), nil
	}
	return json.RawMessage(head + "," + string(body[1:])), nil
}

var miraiCodeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`:`, `\:`,
	`,`, `\,`,
	"\n", `\n`,
	"\r", `\r`,
)

// Serialize escapes a plain string for embedding in mirai code. The
// escaped characters are exactly [ ] : , \ and newline/carriage-return.
func Serialize(s string) string {
	return miraiCodeEscaper.Replace(s)
}

// Deserialize reverses Serialize in a single pass.
func Deserialize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
