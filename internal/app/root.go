package app

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/config"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

var (
	cfg *config.Config

	// out and errOut follow the executing command's writers so tests can
	// capture them.
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr

	flagNoColor       bool
	flagNoInteractive bool
	flagVerbose       bool
	flagConfig        string
)

// commands that run without a valid config
var configOptional = map[string]bool{
	"init":          true,
	"version":       true,
	"completion":    true,
	"hash-password": true,
}

var rootCmd = &cobra.Command{
	Use:   "showcasectl",
	Short: "Serve and manage a product showcase catalog",
	Long: `showcasectl keeps a product and category catalog in memory, backed by a
remote document store with a local mirror and built-in seed data.

Run 'showcasectl serve' to start the HTTP API, or 'showcasectl browse'
to explore the catalog in the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion records the build version reported by the version command.
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fail("%v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagNoInteractive, "no-interactive", false, "Disable interactive TUI mode")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/showcasectl/config.yml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		out, errOut = cmd.OutOrStdout(), cmd.ErrOrStderr()
		util.InitColor(out, flagNoColor)

		if flagConfig != "" {
			if err := os.Setenv("SHOWCASE_CONFIG", flagConfig); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			if configOptional[cmd.Name()] {
				cfg = &config.Config{}
				return nil
			}
			return fmt.Errorf("loading config: %w", err)
		}
		if configOptional[cmd.Name()] {
			return nil
		}
		return cfg.Validate()
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newCollectionCmd(catalog.Products),
		newCollectionCmd(catalog.Categories),
		newBrowseCmd(),
		newReplaceImageCmd(),
		newFeatureCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newRecountCmd(),
		newRefreshCmd(),
		newMirrorCmd(),
		newHashPasswordCmd(),
		newVersionCmd(),
		newCompletionCmd(),
	)
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Fprintln(out, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(errOut, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// fail prints a red error and exits 1.
func fail(format string, a ...interface{}) {
	fmt.Fprintln(errOut, color.RedString("✗"), fmt.Sprintf(format, a...))
	os.Exit(1)
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Fprintln(out, color.CyanString(fmt.Sprintf(format, a...)))
}

func printField(label, value string) {
	fmt.Fprintf(out, "  %-14s %s\n", color.CyanString(label+":"), value)
}
