// Package stringops registers the :str/* utilities.
package stringops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neromous/Beaver/internal/core"
)

const category = "StringOps"

// Register installs the string operations.
func Register(reg *core.Registry) {
	transforms := []struct {
		name string
		desc string
		fn   func(string) string
	}{
		{":str/upper", "Uppercase the joined arguments", strings.ToUpper},
		{":str/lower", "Lowercase the joined arguments", strings.ToLower},
		{":str/title", "Title-case the joined arguments", cases.Title(language.Und).String},
		{":str/trim", "Trim surrounding whitespace", strings.TrimSpace},
		{":str/reverse", "Reverse the joined arguments", reverse},
	}
	for _, t := range transforms {
		reg.MustRegister(&core.Operation{
			Name:        t.name,
			Description: t.desc,
			Category:    category,
			Usage:       fmt.Sprintf(`[%s "text"]`, t.name),
			Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
				return core.String(t.fn(strings.Join(call.Texts(), " "))), nil
			},
		})
	}

	reg.MustRegister(&core.Operation{
		Name:        ":str/length",
		Description: "Character count of the joined arguments",
		Category:    category,
		Usage:       `[:str/length "hello"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			joined := strings.Join(call.Texts(), " ")
			return core.Int(int64(utf8.RuneCountInString(joined))), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":str/replace",
		Description: "Replace every occurrence of old with new",
		Category:    category,
		Usage:       `[:str/replace "a-b" "-" "_"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(3); err != nil {
				return core.Value{}, err
			}
			text, _ := call.Text(0)
			old, _ := call.Text(1)
			repl, _ := call.Text(2)
			return core.String(strings.ReplaceAll(text, old, repl)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":str/split",
		Description: "Split text on a separator, space unless given",
		Category:    category,
		Usage:       `[:str/split "a,b,c" ","]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			text, err := call.Text(0)
			if err != nil {
				return core.Value{}, err
			}
			sep := call.TextOr(1, " ")
			parts := strings.Split(text, sep)
			elems := make([]core.Value, len(parts))
			for i, p := range parts {
				elems[i] = core.String(p)
			}
			return core.List(elems...), nil
		},
	})

	predicates := []struct {
		name string
		desc string
		fn   func(string, string) bool
	}{
		{":str/contains", "Whether text contains the substring", strings.Contains},
		{":str/starts-with", "Whether text starts with the prefix", strings.HasPrefix},
		{":str/ends-with", "Whether text ends with the suffix", strings.HasSuffix},
	}
	for _, p := range predicates {
		reg.MustRegister(&core.Operation{
			Name:        p.name,
			Description: p.desc,
			Category:    category,
			Usage:       fmt.Sprintf(`[%s "haystack" "needle"]`, p.name),
			Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
				if err := call.Require(2); err != nil {
					return core.Value{}, err
				}
				text, _ := call.Text(0)
				probe, _ := call.Text(1)
				return core.Bool(p.fn(text, probe)), nil
			},
		})
	}
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
