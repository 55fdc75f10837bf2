package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollis/convoview/internal/config"
	"github.com/hollis/convoview/internal/engine"
)

var (
	version = "dev"

	flagConfig string
	flagDebug  bool

	cfg *config.Config
	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "convoview",
	Short: "Browse AI coding assistant conversations from one place",
	Long: `convoview reads the conversation logs that AI coding assistants leave
on disk (Claude, Qwen, Cursor, Trae, Kiro) and normalizes them into one
canonical transcript model.

Quick start:
  convoview projects claude              # list a source's projects
  convoview sessions claude <project>    # list a project's sessions
  convoview show claude <project> <id>   # read a conversation`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFrom(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := newLogger(cfg, flagDebug)
		slog.SetDefault(log)
		eng = engine.New(cfg, log)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default ~/.config/convoview/config.json)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
