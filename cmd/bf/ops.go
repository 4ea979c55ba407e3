package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/engine"
	"github.com/neromous/Beaver/internal/ops/help"
)

var (
	flagOpsCategory string
	flagOpsSearch   string
	flagOpsPlain    bool
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the registered operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.New(cfg, engine.Options{NoHistory: true})
		if err != nil {
			return err
		}
		defer eng.Close()

		var ops []*core.Operation
		switch {
		case flagOpsSearch != "":
			for _, m := range help.Search(eng.Registry, flagOpsSearch) {
				ops = append(ops, m.Op)
			}
			if len(ops) == 0 {
				return fmt.Errorf("no operations match %q", flagOpsSearch)
			}
		case flagOpsCategory != "":
			ops = eng.Registry.ListByCategory(flagOpsCategory)
			if len(ops) == 0 {
				return fmt.Errorf("no operations in category %q (have: %s)",
					flagOpsCategory, strings.Join(eng.Registry.Categories(), ", "))
			}
		default:
			ops = eng.Registry.List()
		}

		var b strings.Builder
		b.WriteString("| Operation | Category | Description |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, op := range ops {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", op.Name, op.Category, op.Description)
		}
		table := b.String()
		if !flagOpsPlain {
			if rendered, err := renderMarkdown(table); err == nil {
				table = rendered
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), table)
		return err
	},
}

func init() {
	opsCmd.Flags().StringVar(&flagOpsCategory, "category", "", "only one category")
	opsCmd.Flags().StringVar(&flagOpsSearch, "search", "", "filter by search query")
	opsCmd.Flags().BoolVar(&flagOpsPlain, "plain", false, "raw markdown, no terminal rendering")
}
