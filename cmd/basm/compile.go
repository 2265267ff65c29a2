package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/basm-lang/basm/pkgs/compiler"
)

func compileCommand() *cobra.Command {
	var (
		output     string
		noOptimize bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a basm program to brainfuck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = replaceExtension(input, ".bf")
			}

			opts := compiler.DefaultOptions()
			opts.Optimize = !noOptimize

			if watch {
				return watchAndCompile(input, output, opts)
			}
			return compileFile(input, output, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the compiled file (default: the input with a .bf extension)")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Skip the output optimisation pass")
	cmd.Flags().BoolVar(&watch, "watch", false, "Recompile whenever the input file changes")

	return cmd
}

func compileFile(input, output string, opts compiler.Options) error {
	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", input, err)
	}

	compiled, err := compiler.Transpile(string(source), input, opts)
	if err != nil {
		return fmt.Errorf("%s", describeError(err, string(source), input))
	}

	if err := os.WriteFile(output, []byte(compiled), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", output, err)
	}

	return nil
}

// watchAndCompile compiles once, then recompiles on every change to the
// input file until interrupted. Compilation errors are reported but do not
// stop the watch.
func watchAndCompile(input, output string, opts compiler.Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error starting the file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// editors often replace the file instead of writing in place, so watch
	// the directory and filter on the name
	dir := filepath.Dir(input)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error watching %s: %w", dir, err)
	}

	recompile := func() {
		if err := compileFile(input, output, opts); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "compiled %s -> %s\n", input, output)
	}

	recompile()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(input) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			recompile()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func replaceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
