package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/neromous/Beaver/internal/config"
	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/engine"
	"github.com/neromous/Beaver/internal/logging"
)

const version = "0.3.0"

var (
	flagConfig    string
	flagVerbose   bool
	flagRender    bool
	flagNoHistory bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bf [expression]",
	Short: "Command-dispatch interpreter for bracket-notation scripts",
	Long: `bf evaluates bracket-notation commands. A sequence whose first
element is a keyword dispatches to the named operation; everything else
is data.

Examples:
  bf '[:p "Hello" " " "World"]'
  bf '[:md/h1 "Title"]' --render
  echo '[:rows "a" "b"]' | bf
  bf run report.edn
  bf repl`,
	Version:      version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		return logging.Init(cfg.Settings.LogLevel, cfg.Settings.LogFile, flagVerbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := expressionSource(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if strings.TrimSpace(source) == "" {
			return cmd.Help()
		}
		eng, err := engine.New(cfg, engine.Options{NoHistory: flagNoHistory})
		if err != nil {
			return err
		}
		defer eng.Close()
		out, err := eng.EvalText(cmd.Context(), source)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "skip the execution log")
	rootCmd.Flags().BoolVar(&flagRender, "render", false, "render string results as terminal markdown")

	rootCmd.AddCommand(runCmd, replCmd, opsCmd, configCmd, historyCmd)
}

// expressionSource picks the input: "-" or a pipe reads stdin, otherwise
// the arguments joined with spaces. Empty means show help.
func expressionSource(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if st, err := os.Stdin.Stat(); err == nil && st.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func printResult(w io.Writer, v core.Value) error {
	text := v.Display()
	if flagRender && v.Kind() == core.KindString {
		if rendered, err := renderMarkdown(text); err == nil {
			text = rendered
		}
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

func renderMarkdown(text string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
