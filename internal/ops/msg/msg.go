// Package msg builds chat messages and converts them between vector and
// map form.
package msg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/llm"
)

const category = "Messages"

// Role extracts a chat role from a keyword or string value. Both ":user"
// and "user" spellings are accepted.
func Role(v core.Value) (string, bool) {
	switch v.Kind() {
	case core.KindKeyword:
		return roleName(v.KeywordName())
	case core.KindString:
		return roleName(v.Str())
	}
	return "", false
}

func roleName(s string) (string, bool) {
	name := strings.TrimPrefix(s, ":")
	if llm.KnownRole(name) {
		return name, true
	}
	return "", false
}

// Normalize converts a message in vector or map form into the canonical
// message map. Message maps pass through unchanged.
func Normalize(v core.Value) (core.Value, error) {
	switch v.Kind() {
	case core.KindMap:
		roleV, ok := v.MapGet("role")
		if !ok {
			return core.Value{}, errors.New("map is not a message: missing role")
		}
		if _, ok := Role(roleV); !ok {
			return core.Value{}, unknownRole(roleV)
		}
		if _, ok := v.MapGet("content"); !ok {
			return core.Value{}, fmt.Errorf("message %s has no content", roleV.Display())
		}
		return v, nil
	case core.KindList, core.KindExpr:
		var head core.Value
		var rest []core.Value
		if v.Kind() == core.KindExpr {
			head = core.Keyword(v.Head())
			rest = v.Args()
		} else {
			items := v.Items()
			if len(items) == 0 {
				return core.Value{}, errors.New("empty vector is not a message")
			}
			head = items[0]
			rest = items[1:]
		}
		role, ok := Role(head)
		if !ok {
			return core.Value{}, unknownRole(head)
		}
		if len(rest) == 0 {
			return core.Value{}, fmt.Errorf("message %s has no content", head.Display())
		}
		return buildMessage(role, rest), nil
	default:
		return core.Value{}, fmt.Errorf("expected a message vector or map, got %s", v.Kind())
	}
}

func unknownRole(v core.Value) error {
	return fmt.Errorf("unknown role %s (expected one of system, user, assistant, function, tool)", v.Display())
}

// ToMessage converts a message value into the wire form used by the
// provider clients.
func ToMessage(v core.Value) (llm.Message, error) {
	mv, err := Normalize(v)
	if err != nil {
		return llm.Message{}, err
	}
	roleV, _ := mv.MapGet("role")
	role, _ := Role(roleV)
	contentV, _ := mv.MapGet("content")
	return llm.Message{Role: role, Content: contentAny(contentV)}, nil
}

func contentAny(v core.Value) any {
	if v.Kind() == core.KindString {
		return v.Str()
	}
	return v.Interface()
}

// isMediaPart recognizes attachment maps by their "type" entry.
func isMediaPart(v core.Value) bool {
	if v.Kind() != core.KindMap {
		return false
	}
	_, ok := v.MapGet("type")
	return ok
}

// buildMessage assembles the message map. Text parts join with spaces;
// when any part is a media map the content becomes a part list, with
// text runs folded into text parts around the media.
func buildMessage(role string, parts []core.Value) core.Value {
	hasMedia := false
	for _, p := range parts {
		if isMediaPart(p) {
			hasMedia = true
			break
		}
	}
	if !hasMedia {
		texts := make([]string, len(parts))
		for i, p := range parts {
			texts[i] = p.Display()
		}
		return core.MapOf(map[string]core.Value{
			"role":    core.String(role),
			"content": core.String(strings.Join(texts, " ")),
		})
	}
	var content []core.Value
	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		content = append(content, core.MapOf(map[string]core.Value{
			"type": core.String("text"),
			"text": core.String(strings.Join(pending, " ")),
		}))
		pending = nil
	}
	for _, p := range parts {
		if isMediaPart(p) {
			flush()
			content = append(content, p)
		} else {
			pending = append(pending, p.Display())
		}
	}
	flush()
	return core.MapOf(map[string]core.Value{
		"role":    core.String(role),
		"content": core.List(content...),
	})
}

// messageToVector renders a message map back in vector form. The role
// appears as an inert string head so the result reads back as data.
func messageToVector(mv core.Value) core.Value {
	roleV, _ := mv.MapGet("role")
	role, _ := Role(roleV)
	contentV, _ := mv.MapGet("content")
	elems := []core.Value{core.String(":" + role)}
	if contentV.Kind() == core.KindList {
		elems = append(elems, contentV.Items()...)
	} else {
		elems = append(elems, contentV)
	}
	return core.List(elems...)
}

func headIsRole(v core.Value) bool {
	items := v.Items()
	if len(items) == 0 {
		return false
	}
	_, ok := Role(items[0])
	return ok
}

func formatLine(mv core.Value) string {
	roleV, _ := mv.MapGet("role")
	role, _ := Role(roleV)
	contentV, _ := mv.MapGet("content")
	if contentV.Kind() != core.KindList {
		return fmt.Sprintf("[%s] %s", role, contentV.Display())
	}
	var parts []string
	for _, p := range contentV.Items() {
		if t, ok := p.MapGet("text"); ok {
			parts = append(parts, t.Display())
			continue
		}
		if ty, ok := p.MapGet("type"); ok {
			parts = append(parts, "<"+ty.Display()+">")
		} else {
			parts = append(parts, p.Display())
		}
	}
	return fmt.Sprintf("[%s] %s", role, strings.Join(parts, " "))
}

// Register installs the message construction and conversion operations.
func Register(reg *core.Registry) {
	for _, role := range []string{llm.RoleUser, llm.RoleSystem, llm.RoleAssistant} {
		reg.MustRegister(&core.Operation{
			Name:        ":" + role,
			Description: "Build a " + role + " chat message from its parts",
			Category:    category,
			Usage:       fmt.Sprintf(`[:%s "text"]`, role),
			Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
				if err := call.Require(1); err != nil {
					return core.Value{}, err
				}
				return buildMessage(role, call.Args), nil
			},
		})
	}

	v2m := func(ctx context.Context, call *core.Call) (core.Value, error) {
		arg, err := call.Arg(0)
		if err != nil {
			return core.Value{}, err
		}
		return Normalize(arg)
	}
	register(reg, ":msg/v2m", ":msg/vector-to-message",
		"Convert a message vector into a message map",
		`[:msg/v2m [":user" "hello"]]`, v2m)

	m2v := func(ctx context.Context, call *core.Call) (core.Value, error) {
		arg, err := call.Arg(0)
		if err != nil {
			return core.Value{}, err
		}
		mv, err := Normalize(arg)
		if err != nil {
			return core.Value{}, err
		}
		return messageToVector(mv), nil
	}
	register(reg, ":msg/m2v", ":msg/message-to-vector",
		"Convert a message map into vector form",
		`[:msg/m2v {"role" "user" "content" "hello"}]`, m2v)

	check := func(ctx context.Context, call *core.Call) (core.Value, error) {
		arg, err := call.Arg(0)
		if err != nil {
			return core.Value{}, err
		}
		_, convErr := Normalize(arg)
		return core.Bool(convErr == nil), nil
	}
	register(reg, ":msg/check", ":msg/validate",
		"Whether the value converts to a valid message",
		`[:msg/check [":user" "hello"]]`, check)

	batch := func(ctx context.Context, call *core.Call) (core.Value, error) {
		items, err := call.ListAt(0)
		if err != nil {
			return core.Value{}, err
		}
		out := make([]core.Value, len(items))
		for i, item := range items {
			mv, err := Normalize(item)
			if err != nil {
				return core.Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = mv
		}
		return core.List(out...), nil
	}
	register(reg, ":msg/batch", ":msg/list-convert",
		"Convert a list of message vectors into message maps",
		`[:msg/batch [[":system" "be brief"] [":user" "hi"]]]`, batch)

	format := func(ctx context.Context, call *core.Call) (core.Value, error) {
		if err := call.Require(1); err != nil {
			return core.Value{}, err
		}
		var lines []string
		add := func(v core.Value) error {
			mv, err := Normalize(v)
			if err != nil {
				return err
			}
			lines = append(lines, formatLine(mv))
			return nil
		}
		for _, arg := range call.Args {
			switch {
			case arg.Kind() == core.KindMap:
				if err := add(arg); err != nil {
					return core.Value{}, err
				}
			case arg.Kind() == core.KindList && headIsRole(arg):
				if err := add(arg); err != nil {
					return core.Value{}, err
				}
			case arg.Kind() == core.KindList:
				for _, e := range arg.Items() {
					if err := add(e); err != nil {
						return core.Value{}, err
					}
				}
			default:
				return core.Value{}, fmt.Errorf("expected a message or list of messages, got %s", arg.Kind())
			}
		}
		return core.String(strings.Join(lines, "\n")), nil
	}
	register(reg, ":msg/fmt", ":msg/format",
		"Render messages as readable conversation text",
		`[:msg/fmt [[":user" "hi"] [":assistant" "hello"]]]`, format)

	reg.MustRegister(&core.Operation{
		Name:        ":msg/multimedia",
		Description: "Report the part breakdown of a message",
		Category:    category,
		Usage:       `[:msg/multimedia [:user "see" [:file.upload/img "a.png"]]]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			arg, err := call.Arg(0)
			if err != nil {
				return core.Value{}, err
			}
			mv, err := Normalize(arg)
			if err != nil {
				return core.Value{}, err
			}
			roleV, _ := mv.MapGet("role")
			role, _ := Role(roleV)
			contentV, _ := mv.MapGet("content")
			var b strings.Builder
			fmt.Fprintf(&b, "role: %s\n", role)
			if contentV.Kind() != core.KindList {
				b.WriteString("parts: 1\n")
				fmt.Fprintf(&b, "- text: %s\n", contentV.Display())
			} else {
				items := contentV.Items()
				fmt.Fprintf(&b, "parts: %d\n", len(items))
				for _, p := range items {
					if t, ok := p.MapGet("text"); ok {
						fmt.Fprintf(&b, "- text: %s\n", t.Display())
					} else if ty, ok := p.MapGet("type"); ok {
						fmt.Fprintf(&b, "- media: %s\n", ty.Display())
					} else {
						fmt.Fprintf(&b, "- part: %s\n", p.String())
					}
				}
			}
			return core.String(strings.TrimRight(b.String(), "\n")), nil
		},
	})
}

// register installs one handler under a short name and its long alias.
func register(reg *core.Registry, short, long, desc, usage string, h core.Handler) {
	reg.MustRegister(&core.Operation{
		Name: short, Description: desc, Category: category, Usage: usage, Handler: h,
	})
	reg.MustRegister(&core.Operation{
		Name: long, Description: desc, Category: category, Usage: usage, Handler: h,
	})
}
