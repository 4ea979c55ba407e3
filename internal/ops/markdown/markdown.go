// Package markdown registers the Markdown builders. Every operation
// returns finished Markdown text; terminal rendering happens at the CLI
// layer, never here.
package markdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/neromous/Beaver/internal/core"
)

const category = "Markdown"

// Register installs the Markdown operations.
func Register(reg *core.Registry) {
	for level := 1; level <= 6; level++ {
		prefix := strings.Repeat("#", level) + " "
		reg.MustRegister(&core.Operation{
			Name:        fmt.Sprintf(":md/h%d", level),
			Description: fmt.Sprintf("Level %d heading", level),
			Category:    category,
			Usage:       fmt.Sprintf(`[:md/h%d "Title"]`, level),
			Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
				return core.String(prefix + strings.Join(call.Texts(), " ")), nil
			},
		})
	}

	reg.MustRegister(&core.Operation{
		Name:        ":md/list",
		Description: "Bullet list, one item per argument",
		Category:    category,
		Usage:       `[:md/list "first" "second"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			lines := make([]string, len(call.Args))
			for i, t := range call.Texts() {
				lines[i] = "- " + t
			}
			return core.String(strings.Join(lines, "\n")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/ordered-list",
		Description: "Numbered list, one item per argument",
		Category:    category,
		Usage:       `[:md/ordered-list "first" "second"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			lines := make([]string, len(call.Args))
			for i, t := range call.Texts() {
				lines[i] = fmt.Sprintf("%d. %s", i+1, t)
			}
			return core.String(strings.Join(lines, "\n")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/link",
		Description: "Inline link from text and URL",
		Category:    category,
		Usage:       `[:md/link "docs" "https://example.com"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(2); err != nil {
				return core.Value{}, err
			}
			text, _ := call.Text(0)
			url, _ := call.Text(1)
			return core.String(fmt.Sprintf("[%s](%s)", text, url)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/image",
		Description: "Image reference, with optional title",
		Category:    category,
		Usage:       `[:md/image "alt" "img.png" "Title"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(2); err != nil {
				return core.Value{}, err
			}
			alt, _ := call.Text(0)
			url, _ := call.Text(1)
			if call.Len() > 2 {
				title, _ := call.Text(2)
				return core.String(fmt.Sprintf("![%s](%s %q)", alt, url, title)), nil
			}
			return core.String(fmt.Sprintf("![%s](%s)", alt, url)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/table-row",
		Description: "Table row from cell values",
		Category:    category,
		Usage:       `[:md/table-row "a" "b"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("| " + strings.Join(call.Texts(), " | ") + " |"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/table-header",
		Description: "Table header row with its separator line",
		Category:    category,
		Usage:       `[:md/table-header "Name" "Value"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			cells := call.Texts()
			header := "| " + strings.Join(cells, " | ") + " |"
			seps := make([]string, len(cells))
			for i := range seps {
				seps[i] = "---"
			}
			return core.String(header + "\n| " + strings.Join(seps, " | ") + " |"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/code-block",
		Description: "Fenced code block, language first when given",
		Category:    category,
		Usage:       `[:md/code-block "go" "x := 1"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(1); err != nil {
				return core.Value{}, err
			}
			if call.Len() == 1 {
				code, _ := call.Text(0)
				return core.String("```\n" + code + "\n```"), nil
			}
			lang, _ := call.Text(0)
			code := strings.Join(call.Texts()[1:], "\n")
			return core.String("```" + lang + "\n" + code + "\n```"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/blockquote",
		Description: "Block quotation, one line per argument",
		Category:    category,
		Usage:       `[:md/blockquote "first line" "second line"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			lines := make([]string, len(call.Args))
			for i, t := range call.Texts() {
				lines[i] = "> " + t
			}
			return core.String(strings.Join(lines, "\n")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/hr",
		Description: "Horizontal rule",
		Category:    category,
		Usage:       `[:md/hr]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("---"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/strikethrough",
		Description: "Struck-through text",
		Category:    category,
		Usage:       `[:md/strikethrough "old"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String("~~" + strings.Join(call.Texts(), " ") + "~~"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":md/task-list",
		Description: "Task list from [done description] pairs",
		Category:    category,
		Usage:       `[:md/task-list [true "shipped"] [false "pending"]]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			lines := make([]string, len(call.Args))
			for i, arg := range call.Args {
				items := arg.Items()
				if arg.Kind() == core.KindList && len(items) == 2 && items[0].Kind() == core.KindBool {
					mark := " "
					if items[0].Bool() {
						mark = "x"
					}
					lines[i] = fmt.Sprintf("- [%s] %s", mark, items[1].Display())
					continue
				}
				// anything not a pair becomes an open task
				lines[i] = "- [ ] " + arg.Display()
			}
			return core.String(strings.Join(lines, "\n")), nil
		},
	})
}
