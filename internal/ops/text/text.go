// Package text registers the plain text composition operations: joining,
// emphasis, and the layout primitives every rendered document builds on.
package text

import (
	"context"
	"strings"

	"github.com/neromous/Beaver/internal/core"
)

const category = "Text"

// Register installs the text operations.
func Register(reg *core.Registry) {
	reg.MustRegister(&core.Operation{
		Name:        ":p",
		Description: "Concatenate arguments into one string",
		Category:    category,
		Usage:       `[:p "Hello" " " "World"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String(strings.Join(call.Texts(), "")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":row",
		Description: "Join arguments with spaces",
		Category:    category,
		Usage:       `[:row "a" "b" "c"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String(strings.Join(call.Texts(), " ")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":rows",
		Description: "Join arguments with newlines",
		Category:    category,
		Usage:       `[:rows "line one" "line two"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String(strings.Join(call.Texts(), "\n")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":bold",
		Description: "Wrap text in bold markers",
		Category:    category,
		Usage:       `[:bold "important"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("**" + strings.Join(call.Texts(), " ") + "**"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":italic",
		Description: "Wrap text in italic markers",
		Category:    category,
		Usage:       `[:italic "emphasis"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("*" + strings.Join(call.Texts(), " ") + "*"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":code",
		Description: "Wrap text in inline code markers",
		Category:    category,
		Usage:       `[:code "x := 1"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("`" + strings.Join(call.Texts(), " ") + "`"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":quote",
		Description: "Prefix text as a quotation",
		Category:    category,
		Usage:       `[:quote "as they say"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("> " + strings.Join(call.Texts(), " ")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":join",
		Description: "Join the remaining arguments with the first",
		Category:    category,
		Usage:       `[:join ", " "a" "b" "c"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			sep, err := call.Text(0)
			if err != nil {
				return core.Value{}, err
			}
			return core.String(strings.Join(call.Texts()[1:], sep)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":indent",
		Description: "Indent text by a level of two spaces each",
		Category:    category,
		Usage:       `[:indent 2 "nested"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			level, err := call.Int(0)
			if err != nil {
				return core.Value{}, err
			}
			if level < 0 {
				level = 0
			}
			body := strings.Join(call.Texts()[1:], " ")
			return core.String(strings.Repeat("  ", int(level)) + body), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":br",
		Description: "A line break",
		Category:    category,
		Usage:       `[:br]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("\n"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":sep",
		Description: "A separator line, --- unless given",
		Category:    category,
		Usage:       `[:sep] or [:sep "==="]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String(call.TextOr(0, "---")), nil
		},
	})
}
