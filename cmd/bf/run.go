package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/engine"
	"github.com/neromous/Beaver/internal/logging"
)

var (
	flagRunOutput string
	flagRunWatch  bool
	flagRunQuiet  bool
)

var runCmd = &cobra.Command{
	Use:   "run <script.edn>",
	Short: "Execute a script file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.New(cfg, engine.Options{NoHistory: flagNoHistory})
		if err != nil {
			return err
		}
		defer eng.Close()
		if flagRunWatch {
			return watchAndRun(cmd, eng, args[0])
		}
		return runOnce(cmd, eng, args[0])
	},
}

func init() {
	runCmd.Flags().StringVarP(&flagRunOutput, "output", "o", "", "output format: json")
	runCmd.Flags().BoolVarP(&flagRunWatch, "watch", "w", false, "rerun when the script changes")
	runCmd.Flags().BoolVarP(&flagRunQuiet, "quiet", "q", false, "print a one-line summary instead of results")
}

func runOnce(cmd *cobra.Command, eng *engine.Engine, path string) error {
	out, err := eng.RunScript(cmd.Context(), path)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagRunQuiet {
		return printRunSummary(w, out)
	}
	if flagRunOutput == "json" {
		data, err := json.MarshalIndent(out.Interface(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return printResult(w, out)
}

func printRunSummary(w io.Writer, out core.Value) error {
	status := "failed"
	if ok, found := out.MapGet("success"); found && ok.Bool() {
		status = "ok"
	}
	count, _ := out.MapGet("execution_count")
	elapsed, _ := out.MapGet("execution_time_ms")
	_, err := fmt.Fprintf(w, "%s: %d command(s) in %dms\n", status, count.Int(), elapsed.Int())
	return err
}

// watchAndRun reruns the script whenever it changes. The watch sits on
// the directory because editors replace files on save, which drops a
// watch held on the file itself.
func watchAndRun(cmd *cobra.Command, eng *engine.Engine, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	log := logging.Named("watch")
	runAndReport := func() {
		if err := runOnce(cmd, eng, path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	runAndReport()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", abs)

	changed := make(chan struct{}, 1)
	var debounce *time.Timer
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		case <-changed:
			runAndReport()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
