package core

import (
	"context"
	"fmt"
)

// Call carries one dispatch: the operation name, its resolved arguments,
// and the resolver handed back as an explicit capability so behaviors
// that evaluate further expressions share the same depth budget.
type Call struct {
	Name string
	Args []Value

	res   *Resolver
	depth int
}

// Resolve evaluates v with the dispatching resolver. Depth accounting
// continues from this call's frame.
func (c *Call) Resolve(ctx context.Context, v Value) (Value, error) {
	return c.res.resolve(ctx, v, c.depth+1)
}

// Registry exposes the registry behind the call for introspection
// operations.
func (c *Call) Registry() *Registry { return c.res.reg }

func (c *Call) Len() int { return len(c.Args) }

// Require fails unless at least n arguments were supplied.
func (c *Call) Require(n int) error {
	if len(c.Args) < n {
		return fmt.Errorf("expects at least %d argument(s), got %d", n, len(c.Args))
	}
	return nil
}

// Arg returns argument i.
func (c *Call) Arg(i int) (Value, error) {
	if i < 0 || i >= len(c.Args) {
		return Value{}, fmt.Errorf("argument %d: missing", i)
	}
	return c.Args[i], nil
}

// Str returns argument i, which must be a string.
func (c *Call) Str(i int) (string, error) {
	v, err := c.Arg(i)
	if err != nil {
		return "", err
	}
	if v.Kind() != KindString {
		return "", fmt.Errorf("argument %d: expected string, got %s", i, v.Kind())
	}
	return v.Str(), nil
}

// StrOr returns argument i as a string when present, or def when absent.
func (c *Call) StrOr(i int, def string) (string, error) {
	if i >= len(c.Args) {
		return def, nil
	}
	return c.Str(i)
}

// Text returns argument i rendered as display text. Any kind is
// accepted.
func (c *Call) Text(i int) (string, error) {
	v, err := c.Arg(i)
	if err != nil {
		return "", err
	}
	return v.Display(), nil
}

// TextOr returns argument i as display text when present, or def when
// absent.
func (c *Call) TextOr(i int, def string) string {
	if i >= len(c.Args) {
		return def
	}
	return c.Args[i].Display()
}

// Texts renders every argument as display text.
func (c *Call) Texts() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = a.Display()
	}
	return out
}

// Int returns argument i, which must be an integer.
func (c *Call) Int(i int) (int64, error) {
	v, err := c.Arg(i)
	if err != nil {
		return 0, err
	}
	if v.Kind() != KindInt {
		return 0, fmt.Errorf("argument %d: expected integer, got %s", i, v.Kind())
	}
	return v.Int(), nil
}

// IntOr returns argument i as an integer when present, or def when
// absent.
func (c *Call) IntOr(i int, def int64) (int64, error) {
	if i >= len(c.Args) {
		return def, nil
	}
	return c.Int(i)
}

// Bool returns argument i, which must be a bool.
func (c *Call) Bool(i int) (bool, error) {
	v, err := c.Arg(i)
	if err != nil {
		return false, err
	}
	if v.Kind() != KindBool {
		return false, fmt.Errorf("argument %d: expected bool, got %s", i, v.Kind())
	}
	return v.Bool(), nil
}

// BoolOr returns argument i as a bool when present, or def when absent.
func (c *Call) BoolOr(i int, def bool) (bool, error) {
	if i >= len(c.Args) {
		return def, nil
	}
	return c.Bool(i)
}

// ListAt returns the elements of argument i, which must be a list.
func (c *Call) ListAt(i int) ([]Value, error) {
	v, err := c.Arg(i)
	if err != nil {
		return nil, err
	}
	if v.Kind() != KindList {
		return nil, fmt.Errorf("argument %d: expected list, got %s", i, v.Kind())
	}
	return v.Items(), nil
}

// MapAt returns argument i, which must be a map.
func (c *Call) MapAt(i int) (Value, error) {
	v, err := c.Arg(i)
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != KindMap {
		return Value{}, fmt.Errorf("argument %d: expected map, got %s", i, v.Kind())
	}
	return v, nil
}
