package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds. The reader fixes the kind
// when it produces the node; resolution never reinterprets it.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindKeyword
	KindList
	KindMap
	KindExpr
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindKeyword:
		return "keyword"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindExpr:
		return "expression"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one node of command-language data: a scalar, a collection, or
// an expression awaiting dispatch. Values are treated as immutable;
// operations build new ones instead of mutating arguments.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // string text, keyword name (colon included), or expression head
	seq  []Value
	m    map[string]Value
}

// Nil returns the nil value. It is also the zero Value.
func Nil() Value { return Value{kind: KindNil} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Keyword builds a keyword value. name carries the leading colon, e.g.
// ":user" or ":md/h1".
func Keyword(name string) Value { return Value{kind: KindKeyword, s: name} }

func List(elems ...Value) Value { return Value{kind: KindList, seq: elems} }

// MapOf builds a map value. Keyword-origin keys keep their printed form
// (":provider"); plain string keys carry no colon. MapGet accepts either
// spelling.
func MapOf(entries map[string]Value) Value { return Value{kind: KindMap, m: entries} }

// Expr builds an unresolved expression. head is the operation name with
// its leading colon.
func Expr(head string, args ...Value) Value {
	return Value{kind: KindExpr, s: head, seq: args}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

// Num widens an integer or float to float64.
func (v Value) Num() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Str returns the text of a string value.
func (v Value) Str() string { return v.s }

// KeywordName returns a keyword's printed name, colon included.
func (v Value) KeywordName() string { return v.s }

// Items returns the elements of a list. Callers must not modify the
// returned slice.
func (v Value) Items() []Value { return v.seq }

// Head returns the operation name of an expression, colon included.
func (v Value) Head() string { return v.s }

// Args returns the argument nodes of an expression. Callers must not
// modify the returned slice.
func (v Value) Args() []Value { return v.seq }

// MapGet looks key up directly, then under the alternate keyword
// spelling, so ":provider" and "provider" address the same entry.
func (v Value) MapGet(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	if e, ok := v.m[key]; ok {
		return e, true
	}
	if strings.HasPrefix(key, ":") {
		e, ok := v.m[key[1:]]
		return e, ok
	}
	e, ok := v.m[":"+key]
	return e, ok
}

func (v Value) MapLen() int { return len(v.m) }

// MapKeys returns the map's keys in sorted order.
func (v Value) MapKeys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MapEntries returns the underlying entries. Callers must not modify the
// returned map.
func (v Value) MapEntries() map[string]Value { return v.m }

// String renders the value in source notation. The rendering is
// canonical: map keys sort, floats keep a decimal point or exponent, and
// reading the text back yields an equal value.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case KindNil:
		b.WriteString("nil")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(formatFloat(v.f))
	case KindString:
		writeQuoted(b, v.s)
	case KindKeyword:
		b.WriteString(v.s)
	case KindList:
		b.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				b.WriteByte(' ')
			}
			e.write(b)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		for i, k := range v.MapKeys() {
			if i > 0 {
				b.WriteByte(' ')
			}
			if strings.HasPrefix(k, ":") {
				b.WriteString(k)
			} else {
				writeQuoted(b, k)
			}
			b.WriteByte(' ')
			v.m[k].write(b)
		}
		b.WriteByte('}')
	case KindExpr:
		b.WriteByte('[')
		b.WriteString(v.s)
		for _, a := range v.seq {
			b.WriteByte(' ')
			a.write(b)
		}
		b.WriteByte(']')
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// Display renders the value for human-facing text: strings appear bare,
// everything else in source notation. Text operations use this when they
// absorb non-string arguments.
func (v Value) Display() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

// Equal reports deep equality. Floats compare with ==.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString, KindKeyword:
		return v.s == o.s
	case KindList, KindExpr:
		if v.s != o.s || len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the value to plain Go data for JSON encoding.
// Keywords keep their printed names, map keys drop the colon, and
// expressions become head-first slices.
func (v Value) Interface() any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString, KindKeyword:
		return v.s
	case KindList:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[strings.TrimPrefix(k, ":")] = e.Interface()
		}
		return out
	case KindExpr:
		out := make([]any, 0, len(v.seq)+1)
		out = append(out, v.s)
		for _, a := range v.seq {
			out = append(out, a.Interface())
		}
		return out
	}
	return nil
}
