package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/neromous/Beaver/internal/edn"
	"github.com/neromous/Beaver/internal/engine"
)

const replHistoryFile = ".beaver/repl_history"

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.New(cfg, engine.Options{NoHistory: flagNoHistory})
		if err != nil {
			return err
		}
		defer eng.Close()
		return runRepl(cmd, eng)
	},
}

func runRepl(cmd *cobra.Command, eng *engine.Engine) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completerFor(eng))

	if f, err := os.Open(replHistoryFile); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer saveReplHistory(ln)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bf %s - :quit to exit, [:help] for commands\n", version)

	ctx := cmd.Context()
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := readForm(ln)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		trimmed := strings.TrimSpace(input)
		switch trimmed {
		case "":
			continue
		case ":quit", ":exit", "exit":
			return nil
		}
		result, err := eng.EvalText(ctx, input)
		if err != nil {
			if errors.Is(err, edn.ErrEmptyInput) {
				continue
			}
			ln.AppendHistory(trimmed)
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		ln.AppendHistory(trimmed)
		if err := printResult(out, result); err != nil {
			return err
		}
	}
}

// readForm keeps prompting until the brackets balance, so multi-line
// forms paste naturally.
func readForm(ln *liner.State) (string, error) {
	input, err := ln.Prompt("bf> ")
	if err != nil {
		return "", err
	}
	for !bracketsBalanced(input) {
		more, err := ln.Prompt("... ")
		if err != nil {
			return "", err
		}
		input += "\n" + more
	}
	return input, nil
}

// bracketsBalanced reports whether every opened bracket has closed.
// Counting skips string literals and line comments. Over-closed input
// counts as balanced so the parser gets to report the error.
func bracketsBalanced(s string) bool {
	depth := 0
	inString := false
	escaped := false
	inComment := false
	for _, r := range s {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case inString:
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
		case r == '"':
			inString = true
		case r == ';':
			inComment = true
		case r == '[' || r == '(' || r == '{':
			depth++
		case r == ']' || r == ')' || r == '}':
			depth--
			if depth < 0 {
				return true
			}
		}
	}
	return depth == 0 && !inString
}

func saveReplHistory(ln *liner.State) {
	if err := os.MkdirAll(filepath.Dir(replHistoryFile), 0o755); err != nil {
		return
	}
	f, err := os.Create(replHistoryFile)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = ln.WriteHistory(f)
}

// completerFor completes keyword operation names from the registry.
func completerFor(eng *engine.Engine) liner.Completer {
	return func(input string) []string {
		start := strings.LastIndexAny(input, " [({") + 1
		word := input[start:]
		if !strings.HasPrefix(word, ":") {
			return nil
		}
		var out []string
		for _, op := range eng.Registry.List() {
			if strings.HasPrefix(op.Name, word) {
				out = append(out, input[:start]+op.Name)
			}
		}
		return out
	}
}
