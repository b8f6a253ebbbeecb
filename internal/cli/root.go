package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	projectDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depsolver",
	Short: "Dependency closure and injection cycle analysis for Java sources",
	Long: `depsolver computes the minimal set of declarations a Java method needs
to compile, and finds dependency-injection cycles between components along
with the cheapest set of injection points to break them.

Settings are read from .depsolver/config.yml in the project directory and
may be overridden with DEPSOLVER_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <dir>/.depsolver/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project directory (default is the working directory)")
}

// newLogger builds the text logger used by every command. Logs go to w so
// that command output on stdout stays machine readable.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
