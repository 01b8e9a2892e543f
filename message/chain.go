package message

import (
	"encoding/json"
	"strings"
)

// Chain is an ordered sequence of message components. The Source and
// Quote metadata components, when present at the head of the wire
// form, are split off into their own fields and are not part of the
// iterated body.
//
// Chain values are cheap to copy; the algebra methods (Concat, Append,
// Exclude) return new chains and never mutate their receiver.
type Chain struct {
	// Source is the message origin metadata, nil on outbound chains.
	Source *Source
	// Quote is the reply-target metadata, nil when not a reply.
	Quote *Quote

	body []Component
}

// New builds a chain from components. Leading Source and Quote
// components are captured into the corresponding fields the same way
// wire-form decoding does.
func New(components ...Component) Chain {
	var c Chain
	rest := components
	if len(rest) > 0 {
		if s, ok := rest[0].(*Source); ok {
			c.Source, rest = s, rest[1:]
		}
	}
	if len(rest) > 0 {
		if q, ok := rest[0].(*Quote); ok {
			c.Quote, rest = q, rest[1:]
		}
	}
	c.body = append([]Component(nil), rest...)
	return c
}

// Text builds a single-Plain chain from a string.
func Text(s string) Chain {
	return New(&Plain{Text: s})
}

// Components returns the chain body. The returned slice must not be
// modified.
func (c Chain) Components() []Component { return c.body }

// Len returns the number of body components.
func (c Chain) Len() int { return len(c.body) }

// Index returns the component at position i of the body.
func (c Chain) Index(i int) Component { return c.body[i] }

// Concat returns a new chain holding the receiver's components
// followed by other's. Source and Quote are taken from the receiver.
func (c Chain) Concat(other Chain) Chain {
	out := Chain{Source: c.Source, Quote: c.Quote}
	out.body = make([]Component, 0, len(c.body)+len(other.body))
	out.body = append(out.body, c.body...)
	out.body = append(out.body, other.body...)
	return out
}

// Append returns a new chain with the given components appended.
func (c Chain) Append(components ...Component) Chain {
	return c.Concat(New(components...))
}

// AppendText returns a new chain with a Plain component appended.
// Appending the empty string is the identity.
func (c Chain) AppendText(s string) Chain {
	if s == "" {
		return c
	}
	return c.Append(&Plain{Text: s})
}

// Get returns all body components of type T in original order.
func Get[T Component](c Chain) []T {
	var out []T
	for _, comp := range c.body {
		if t, ok := comp.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// First returns the first body component of type T.
func First[T Component](c Chain) (T, bool) {
	for _, comp := range c.body {
		if t, ok := comp.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Has reports whether the chain body contains a component of type T.
func Has[T Component](c Chain) bool {
	_, ok := First[T](c)
	return ok
}

// Exclude returns a new chain with all components of type T removed;
// the order of the rest is preserved.
func Exclude[T Component](c Chain) Chain {
	return ExcludeN[T](c, -1)
}

// ExcludeN removes at most count components of type T; count < 0
// removes all.
func ExcludeN[T Component](c Chain, count int) Chain {
	out := Chain{Source: c.Source, Quote: c.Quote}
	for _, comp := range c.body {
		if _, ok := comp.(T); ok && count != 0 {
			if count > 0 {
				count--
			}
			continue
		}
		out.body = append(out.body, comp)
	}
	return out
}

// HasText reports whether the plain-text rendering of the chain
// contains the given substring.
func (c Chain) HasText(sub string) bool {
	return strings.Contains(c.String(), sub)
}

// String returns the concatenated plain-text rendering of the body.
func (c Chain) String() string {
	var b strings.Builder
	for _, comp := range c.body {
		b.WriteString(comp.String())
	}
	return b.String()
}

// AsMiraiCode returns the mirai-code rendering of the body.
func (c Chain) AsMiraiCode() string {
	var b strings.Builder
	for _, comp := range c.body {
		b.WriteString(comp.AsMiraiCode())
	}
	return b.String()
}

// MessageID returns the source message id, or -1 when the chain has no
// source.
func (c Chain) MessageID() int64 {
	if c.Source == nil {
		return -1
	}
	return c.Source.ID
}

// Equal reports whether two chains have equal bodies. Source and Quote
// metadata are not compared.
func (c Chain) Equal(other Chain) bool {
	if len(c.body) != len(other.body) {
		return false
	}
	for i := range c.body {
		a, err1 := Encode(c.body[i])
		b, err2 := Encode(other.body[i])
		if err1 != nil || err2 != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the wire form: a JSON array with the Source
// component, if any, at index 0. Quote is not re-serialized; the
// gateway reconstructs it from the quote parameter of send commands.
func (c Chain) MarshalJSON() ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(c.body)+1)
	if c.Source != nil {
		raw, err := Encode(c.Source)
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	for _, comp := range c.body {
		raw, err := Encode(comp)
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	return json.Marshal(parts)
}

// UnmarshalJSON parses the wire form, splitting a head Source and
// Quote into the metadata fields.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	components := make([]Component, 0, len(parts))
	for _, raw := range parts {
		comp, err := Decode(raw)
		if err != nil {
			return err
		}
		components = append(components, comp)
	}
	*c = New(components...)
	return nil
}
