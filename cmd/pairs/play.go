package main

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"memory-pairs/internal/game"
	"memory-pairs/internal/tui"
)

var (
	playRows    int
	playCols    int
	playTime    int
	playLogFile string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("rows") {
			cfg.Board.Rows = playRows
		}
		if flags.Changed("cols") {
			cfg.Board.Cols = playCols
		}
		if flags.Changed("time") {
			cfg.Board.TimeLimit = playTime
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// the terminal belongs to the UI
		var out io.Writer = io.Discard
		if playLogFile != "" {
			f, err := os.OpenFile(playLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		log.Logger = zerolog.New(out).With().Timestamp().Logger()

		session := game.NewSession(cfg.Rules())
		defer session.Close()

		_, err = tea.NewProgram(tui.New(session), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	playCmd.Flags().IntVar(&playRows, "rows", 0, "board rows")
	playCmd.Flags().IntVar(&playCols, "cols", 0, "board columns")
	playCmd.Flags().IntVar(&playTime, "time", 0, "seconds per game")
	playCmd.Flags().StringVar(&playLogFile, "log-file", "", "write logs to this file")
}
