// Package help renders command discovery surfaces from registry
// metadata.
package help

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neromous/Beaver/internal/core"
)

const category = "Help"

// Match pairs an operation with its search score.
type Match struct {
	Op    *core.Operation
	Score int
}

// Search scores every operation against query. A full-query hit on the
// name outweighs one on the description or category; individual words
// add smaller amounts. Results sort by score, ties keeping registration
// order.
func Search(reg *core.Registry, query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	words := strings.Fields(q)
	var out []Match
	for _, op := range reg.List() {
		name := strings.ToLower(op.Name)
		desc := strings.ToLower(op.Description)
		cat := strings.ToLower(op.Category)
		score := 0
		if strings.Contains(name, q) {
			score += 100
		}
		if strings.Contains(desc, q) {
			score += 50
		}
		if strings.Contains(cat, q) {
			score += 30
		}
		haystack := name + " " + desc + " " + cat
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score += 10
			}
		}
		if score > 0 {
			out = append(out, Match{Op: op, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Suggest returns up to limit operation names containing query, compared
// with colons stripped so ":use" and "use" suggest alike.
func Suggest(reg *core.Registry, query string, limit int) []string {
	q := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), ":"))
	if q == "" {
		return nil
	}
	var out []string
	for _, op := range reg.List() {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(strings.TrimPrefix(op.Name, ":")), q) {
			out = append(out, op.Name)
		}
	}
	return out
}

// Overview renders the full command catalog as markdown, grouped by
// category with long categories elided.
func Overview(reg *core.Registry) string {
	var b strings.Builder
	b.WriteString("# Commands\n\n")
	fmt.Fprintf(&b, "%d commands in %d categories\n", reg.Len(), len(reg.Categories()))
	for _, cat := range reg.Categories() {
		ops := reg.ListByCategory(cat)
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", cat, len(ops))
		for i, op := range ops {
			if i == 8 {
				fmt.Fprintf(&b, "- ... and %d more\n", len(ops)-8)
				break
			}
			fmt.Fprintf(&b, "- `%s` - %s\n", op.Name, op.Description)
		}
	}
	b.WriteString("\nUse [:help/find \":name\"] for one command or [:help/search \"query\"] to search.\n")
	return b.String()
}

func lookup(call *core.Call, name string) (*core.Operation, error) {
	if !strings.HasPrefix(name, ":") {
		name = ":" + name
	}
	op, ok := call.Registry().Lookup(name)
	if ok {
		return op, nil
	}
	if sugg := Suggest(call.Registry(), name, 5); len(sugg) > 0 {
		return nil, fmt.Errorf("unknown command %s (did you mean %s?)", name, strings.Join(sugg, ", "))
	}
	return nil, fmt.Errorf("unknown command %s", name)
}

// Register installs the discovery operations.
func Register(reg *core.Registry) {
	reg.MustRegister(&core.Operation{
		Name:        ":help",
		Description: "Show the command catalog, or one command's summary",
		Category:    category,
		Usage:       `[:help] or [:help ":user"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if call.Len() == 0 {
				return core.String(Overview(call.Registry())), nil
			}
			name, err := call.Text(0)
			if err != nil {
				return core.Value{}, err
			}
			op, err := lookup(call, name)
			if err != nil {
				return core.Value{}, err
			}
			return core.String(fmt.Sprintf("`%s` - %s", op.Name, op.Description)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":help/search",
		Description: "Search commands by name, description, and category",
		Category:    category,
		Usage:       `[:help/search "file"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(1); err != nil {
				return core.Value{}, err
			}
			query := strings.Join(call.Texts(), " ")
			matches := Search(call.Registry(), query)
			if len(matches) == 0 {
				return core.String(fmt.Sprintf("no commands match %q", query)), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%d commands match %q:\n", len(matches), query)
			for i, m := range matches {
				if i == 5 {
					break
				}
				fmt.Fprintf(&b, "%d. **%s** (%s) - %s\n", i+1, m.Op.Name, m.Op.Category, m.Op.Description)
			}
			return core.String(strings.TrimRight(b.String(), "\n")), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":help/find",
		Description: "Show one command's full reference card",
		Category:    category,
		Usage:       `[:help/find ":nexus/sync"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			name, err := call.Text(0)
			if err != nil {
				return core.Value{}, err
			}
			op, err := lookup(call, name)
			if err != nil {
				return core.Value{}, err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "# %s\n\n%s\n\n", op.Name, op.Description)
			fmt.Fprintf(&b, "**Category**: %s\n", op.Category)
			if op.Usage != "" {
				fmt.Fprintf(&b, "**Usage**: `%s`\n", op.Usage)
			}
			return core.String(strings.TrimRight(b.String(), "\n")), nil
		},
	})
}
