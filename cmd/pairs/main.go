package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"memory-pairs/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Memory pairs card game",
	Long: `pairs is a single-player memory game: open two cards at a time and
match every pair before the countdown runs out.

Use "pairs play" to play in the terminal or "pairs serve" to host games
over WebSocket.`,
	SilenceUsage: true,
}

// loadConfig reads the configuration and applies its log level
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, playCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("pairs failed")
		os.Exit(1)
	}
}
