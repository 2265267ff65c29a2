package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basm-lang/basm/pkgs/errors"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "basm",
		Short:         "Compile and run basm programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored error output")

	rootCmd.AddCommand(compileCommand())
	rootCmd.AddCommand(runCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

var noColor bool

// shouldUseColor respects the NO_COLOR convention and skips color when
// stderr is not a terminal
func shouldUseColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
)

// describeError renders a compilation error against its source, coloring it
// when the terminal supports it
func describeError(err error, source, name string) string {
	described := errors.Describe(err, source, name)
	if shouldUseColor() {
		return colorRed + described + colorReset
	}
	return described
}
