package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"dexscope/internal/batch"
	"dexscope/internal/config"
	"dexscope/internal/dexscope/log"
	"dexscope/internal/source"
)

func init() {
	rootCmd.PersistentFlags().StringP("config", "C", "", "Path to a JSON config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().BoolP("recursive", "r", false, "Search subdirectories at any depth (default: one level)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Containers decoded in parallel (default GOMAXPROCS)")
	rootCmd.PersistentFlags().Int64("max-size", 0, "Reject containers larger than this many bytes")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show summary without TUI")
	rootCmd.Flags().BoolP("full", "f", false, "List every class in the summary (implies --no-tui)")
	rootCmd.Flags().BoolP("json", "j", false, "Print the decoded containers as JSON")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "dexscope [file]",
	Short: "Inspect Android DEX containers",
	Long: `dexscope decodes Android DEX files, either on their own or inside an APK,
and shows their strings, types, prototypes, fields, methods and classes.
It opens an interactive browser on a terminal and prints a summary otherwise.`,
	Example: `
# Browse the classes of an APK
dexscope app.apk

# Print a summary of a single container
dexscope -n classes.dex

# Dump every container under a directory as JSON tables
dexscope dump ./data/unzipped --out ./outputs -r
  `,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Setup(cfg)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		absPath, err := pathpkg.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		srcs, err := source.Collect(absPath, cfg.Recursive)
		if err != nil {
			return err
		}
		if len(srcs) == 0 {
			return fmt.Errorf("no DEX containers found in %s", args[0])
		}
		slog.Debug("Collected containers", "input", absPath, "count", len(srcs))

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		showFull, _ := cmd.Flags().GetBool("full")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if showFull {
			noTUI = true
		}
		// Plain output when piped.
		if !term.IsTerminal(os.Stdout.Fd()) {
			noTUI = true
			os.Setenv("DEXSCOPE_NO_COLOR", "1")
		}

		opts := batch.Options{Workers: cfg.Workers, MaxInputSize: cfg.MaxInputSize}
		if jsonOutput || noTUI {
			results := batch.Decode(cmd.Context(), srcs, opts)
			if jsonOutput {
				err = writeJSON(cmd.OutOrStdout(), results)
			} else {
				err = writeSummary(cmd.OutOrStdout(), results, showFull, terminalWidth())
			}
			if err != nil {
				return err
			}
			return failures(results)
		}

		// Quitting while containers are still decoding stops the batch.
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		program := tea.NewProgram(
			NewModel(ctx, absPath, srcs, opts),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

// loadConfig reads the config file and environment, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("recursive") {
		cfg.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("max-size") {
		cfg.MaxInputSize, _ = flags.GetInt64("max-size")
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		cfg.OutputDir, _ = flags.GetString("out")
	}
	return cfg, cfg.Validate()
}

func failures(results []batch.Result) error {
	if n := batch.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d containers failed to decode", n, len(results))
	}
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w - 2
	}
	return 100
}

func Execute() {
	// Check if --no-tui, --full or --json is present, or if output is
	// being piped, to bypass fang's styled output.
	plain := false
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--no-tui", "-n", "--full", "-f", "--json", "-j":
			plain = true
		}
	}
	if !plain && !term.IsTerminal(os.Stdout.Fd()) {
		plain = true
	}

	if plain {
		if err := rootCmd.ExecuteContext(context.Background()); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
