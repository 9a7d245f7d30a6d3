// Package main provides the otherlife CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"otherlife/cmd/otherlife/ui"
	"otherlife/internal/config"
	"otherlife/internal/game"
	"otherlife/internal/generator"
	"otherlife/internal/session"
	"otherlife/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.3.0"

var (
	cfgPath string
	verbose bool

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "otherlife",
	Short: "otherlife - 换个人生 narrative life simulator",
	Long: `otherlife is a turn-based narrative life simulator.

An LLM narrates each scene of a life in Chinese; the engine validates and
repairs its structured output, applies personality deltas, grants abilities,
and keeps the whole run persistent across sessions.

Run without arguments to start the interactive interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "otherlife" && cmd.CalledAs() == "otherlife" {
			return nil
		}
		if cmd.Name() == "play" {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// playCmd launches the interactive interface explicitly
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start or resume the interactive life",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// stateCmd prints a summary of the persisted life without playing a turn
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the saved life, if any",
	RunE:  showState,
}

// resetCmd wipes the persisted life
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved life",
	RunE:  resetState,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("otherlife %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: ~/.otherlife/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runInteractive() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file instead of stderr.
	sessLogger, err := buildFileLogger(cfg)
	if err != nil {
		sessLogger = zap.NewNop()
	}
	defer sessLogger.Sync()

	client, err := generator.NewFromConfig(context.Background(), cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := session.New(session.Options{
		Client:        client,
		Store:         st,
		Logger:        sessLogger,
		HistoryWindow: cfg.Game.HistoryWindow,
	})

	p := tea.NewProgram(ui.New(sess), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// buildFileLogger writes structured logs beside the save file so the TUI
// stays clean.
func buildFileLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := home + "/.otherlife"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	zc.OutputPaths = []string{dir + "/otherlife.log"}
	zc.ErrorOutputPaths = []string{dir + "/otherlife.log"}
	return zc.Build()
}

func showState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.Load()
	if err != nil {
		return err
	}
	if state == nil || len(state.Timeline) == 0 {
		fmt.Println("No saved life. Run `otherlife` to start one.")
		return nil
	}

	fmt.Printf("Born:      %s %s, %s\n", state.BirthInfo.Date, state.BirthInfo.Time, state.BirthInfo.Location)
	fmt.Printf("Now:       %s %s (age %d)\n", state.CurrentTime.Date, state.CurrentTime.Time, state.CurrentTime.Age.Int())
	fmt.Printf("Traits:    %s\n", formatTraits(state.Traits))
	fmt.Printf("Abilities: ")
	for i, a := range state.Abilities {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(a.Command)
	}
	fmt.Println()
	fmt.Printf("Turns:     %d\n", len(state.Timeline))

	last := state.Timeline[len(state.Timeline)-1]
	fmt.Printf("\nLast scene:\n%s\n", last.Narrative)
	return nil
}

func resetState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Reset(); err != nil {
		return err
	}
	logger.Info("saved life deleted", zap.String("backend", cfg.Storage.Backend))
	fmt.Println("Saved life deleted.")
	return nil
}

func formatTraits(t game.TraitVector) string {
	return fmt.Sprintf("感知 %d | 直言 %d | 共情 %d | 专注 %d | 摩擦 %d",
		t.SensingOpenness, t.LiteralCommunication, t.EmotionalSync, t.FocusGravity, t.SocialFriction)
}
