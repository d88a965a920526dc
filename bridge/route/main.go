// Package route holds the topic routing table and the payload transforms.
// Both are pure data plumbing: the table is an exact-match map built once at
// startup, and Transform is total over all byte inputs.
package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnmarshalJSON accepts the three wire forms of a payload rule: a bare string
// ("copy", "omit", "invertBoolean"), {"string": s} or {"bytes": [...]}.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case "copy":
			r.Kind = Copy
		case "omit":
			r.Kind = Omit
		case "invertBoolean":
			r.Kind = InvertBoolean
		default:
			return fmt.Errorf("unknown payload rule %q", name)
		}
		return nil
	}
	var literal struct {
		String *string `json:"string"`
		Bytes  []int   `json:"bytes"`
	}
	if err := json.Unmarshal(data, &literal); err != nil {
		return fmt.Errorf("parsing payload rule: %w", err)
	}
	switch {
	case literal.String != nil:
		r.Kind = LiteralString
		r.Literal = []byte(*literal.String)
	case literal.Bytes != nil:
		buf := make([]byte, len(literal.Bytes))
		for i, v := range literal.Bytes {
			if v < 0 || v > 255 {
				return fmt.Errorf("payload rule byte %d out of range: %d", i, v)
			}
			buf[i] = byte(v)
		}
		r.Kind = LiteralBytes
		r.Literal = buf
	default:
		return errors.New(`payload rule must be "copy", "omit", "invertBoolean", {"string": ...} or {"bytes": ...}`)
	}
	return nil
}

// Transform applies a rule to a raw payload. It never fails: payloads that an
// invertBoolean rule cannot make sense of degrade to an empty payload.
func Transform(raw []byte, r Rule) []byte {
	switch r.Kind {
	case Copy:
		return raw
	case Omit:
		return []byte{}
	case InvertBoolean:
		switch strings.ToLower(string(raw)) {
		case "false", "0":
			return []byte("true")
		case "true", "1":
			return []byte("false")
		default:
			return []byte{}
		}
	case LiteralString, LiteralBytes:
		return r.Literal
	}
	return []byte{}
}

// Build constructs the table from the ordered entries. A later entry with a
// duplicate From silently overwrites the earlier one.
func Build(entries []Entry) Table {
	t := make(Table, len(entries))
	for _, e := range entries {
		t[e.From] = Route{To: e.To, Rule: e.Rule}
	}
	return t
}

// Lookup returns the route for a topic. Exact match only, no wildcard
// expansion. A miss is not an error; the caller drops the message.
func (t Table) Lookup(topic string) (Route, bool) {
	r, ok := t[topic]
	return r, ok
}

// Topics returns every source topic in the table, for the subscription batch.
func (t Table) Topics() []string {
	topics := make([]string, 0, len(t))
	for from := range t {
		topics = append(topics, from)
	}
	return topics
}
